// Package fetch performs one logical status query per resource: bounded
// attempts with adaptive timeouts, a per-resource cooldown shared by
// concurrent callers, and an unbounded emergency fetch when every attempt
// timed out.
package fetch

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/metrics"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
)

// Each retry gets this much more patience than the previous attempt.
const attemptGrowth = 1.5

// Config holds the fetch knobs that are not part of the performance profile.
type Config struct {
	// Cooldown is the minimum gap between two real queries for one resource.
	Cooldown time.Duration
	// RetryDelay is the pause between a timed-out attempt and the next one.
	RetryDelay time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Cooldown:   2 * time.Second,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Request identifies one fetch. CallID ties log lines of a bulk call together.
type Request struct {
	ID     domain.ResourceID
	CallID string
	// SkipStats omits the stats sub-call, e.g. when policy hides details.
	SkipStats bool
}

// Outcome is what a fetch produced. Sub-call failures are values here;
// Fetch never returns an error or panics.
type Outcome struct {
	ID         domain.ResourceID
	Attributes domain.Attributes
	InfoErr    error
	Stats      *domain.Stats
	StatsErr   error

	Elapsed   time.Duration
	Attempts  int
	Emergency bool
	// Shared is set when the outcome came from another caller's query.
	Shared bool
	// Canceled is set when the outcome only reports that the caller stopped
	// waiting. It says nothing about the resource.
	Canceled bool
}

// OK reports whether the attributes were obtained.
func (o Outcome) OK() bool { return o.InfoErr == nil }

type lastQuery struct {
	at      time.Time
	outcome Outcome
}

// flight is the context a running query executes under. It outlives any
// single caller and is cancelled once every joined caller has left.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Service runs fetches against a provider and feeds the profile store.
type Service struct {
	reader   provider.StatusReader
	profiles *profile.Store
	cfg      Config
	log      logger.Logger

	group singleflight.Group

	mu      sync.Mutex
	last    map[domain.ResourceID]lastQuery
	flights map[domain.ResourceID]*flight
}

// NewService wires a fetch service. log may be nil.
func NewService(reader provider.StatusReader, profiles *profile.Store, cfg Config, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		reader:   reader,
		profiles: profiles,
		cfg:      cfg,
		log:      log,
		last:     make(map[domain.ResourceID]lastQuery),
		flights:  make(map[domain.ResourceID]*flight),
	}
}

// Fetch returns the status of req.ID. Callers arriving while a query for the
// same id is running join it. A caller arriving within the cooldown after a
// successful query gets that outcome; after a failed one it waits for the
// cooldown to pass and then queries. A caller whose ctx ends stops waiting
// while the query carries on for the callers still joined to it.
func (s *Service) Fetch(ctx context.Context, req Request) Outcome {
	for {
		prev, wait := s.cooldown(req.ID)
		if prev != nil {
			metrics.Shared()
			out := *prev
			out.Shared = true
			return out
		}
		if wait > 0 {
			s.log.Debug("waiting for query cooldown",
				logger.Resource(string(req.ID)), logger.Duration("wait", wait))
			if err := sleep(ctx, wait); err != nil {
				return canceled(req.ID, err)
			}
			continue
		}

		f, ch := s.join(ctx, req)
		select {
		case res := <-ch:
			s.leave(req.ID, f)
			out := res.Val.(Outcome)
			if out.Canceled && ctx.Err() == nil {
				// Joined a query whose own callers all left; start afresh.
				continue
			}
			if res.Shared {
				metrics.Shared()
				out.Shared = true
			}
			return out
		case <-ctx.Done():
			s.leave(req.ID, f)
			return canceled(req.ID, ctx.Err())
		}
	}
}

// join registers the caller on the running query for req.ID, starting one if
// none runs. The query does not inherit the caller's cancellation, so a
// caller giving up never cuts the query short for the others.
func (s *Service) join(ctx context.Context, req Request) (*flight, <-chan singleflight.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.flights[req.ID]
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[req.ID] = f
	}
	f.waiters++

	// DoChan runs under s.mu so a registered flight always matches the
	// singleflight call it joined.
	ch := s.group.DoChan(string(req.ID), func() (any, error) {
		out := s.run(f.ctx, req)
		s.mu.Lock()
		if s.flights[req.ID] == f {
			delete(s.flights, req.ID)
		}
		if !out.Canceled {
			s.last[req.ID] = lastQuery{at: time.Now(), outcome: out}
		}
		s.mu.Unlock()
		return out, nil
	})
	return f, ch
}

// leave drops the caller from f and cancels the query when nobody waits.
func (s *Service) leave(id domain.ResourceID, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flights[id] == f {
		delete(s.flights, id)
	}
}

// cooldown returns the remembered outcome when it may be reused, or how long
// to wait before a new query is allowed.
func (s *Service) cooldown(id domain.ResourceID) (*Outcome, time.Duration) {
	if s.cfg.Cooldown <= 0 {
		return nil, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lq, ok := s.last[id]
	if !ok {
		return nil, 0
	}
	since := time.Since(lq.at)
	if since >= s.cfg.Cooldown {
		delete(s.last, id)
		return nil, 0
	}
	if lq.outcome.OK() {
		out := lq.outcome
		return &out, 0
	}
	return nil, s.cfg.Cooldown - since
}

// Reset forgets the cooldown of id so the next Fetch queries immediately.
// Used after a state-changing action and by garbage collection.
func (s *Service) Reset(id domain.ResourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, id)
}

// attemptTimeout scales the adaptive timeout for the given zero-based attempt.
func attemptTimeout(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(attemptGrowth, float64(attempt)))
}

func (s *Service) run(ctx context.Context, req Request) Outcome {
	id := req.ID
	log := s.log.With(logger.Resource(string(id)), logger.String("call_id", req.CallID))

	start := time.Now()
	out := Outcome{ID: id}
	base := s.profiles.AdaptiveTimeout(id)
	maxAttempts := s.profiles.Config().RetryAttempts

	state := Attempting
	attempt := 0
	for state != Done {
		switch state {
		case Attempting:
			timeout := attemptTimeout(base, attempt)
			res, timedOut := s.attempt(ctx, req, timeout)
			out.Attempts++
			out.apply(res)

			switch {
			case ctx.Err() != nil:
				// Caller gave up; not the resource's fault, so nothing is recorded.
				out.InfoErr = &provider.Error{Op: "fetch", ID: id, Kind: provider.ErrTimeout, Err: ctx.Err()}
				out.Stats = nil
				out.Canceled = true
				state = Done
			case timedOut:
				s.profiles.Record(id, timeout, false)
				metrics.Attempt(string(domain.ErrorTimeout))
				log.Debug("fetch attempt timed out",
					logger.Int("attempt", attempt+1), logger.Duration("timeout", timeout))
				state = TimedOut
			default:
				s.recordCompleted(id, res)
				if res.infoErr != nil && provider.IsTransient(res.infoErr) {
					state = TimedOut
				} else {
					state = Done
				}
			}

		case TimedOut:
			attempt++
			if attempt >= maxAttempts {
				state = Exhausted
			} else {
				state = Retrying
			}

		case Retrying:
			if err := sleep(ctx, s.cfg.RetryDelay); err != nil {
				out.InfoErr = &provider.Error{Op: "fetch", ID: id, Kind: provider.ErrTimeout, Err: err}
				out.Stats = nil
				out.Canceled = true
				state = Done
				continue
			}
			state = Attempting

		case Exhausted:
			log.Warn("fetch retries exhausted, running emergency fetch",
				logger.Int("attempts", out.Attempts), logger.Error(out.InfoErr))
			state = EmergencyFetch

		case EmergencyFetch:
			res := s.query(ctx, req)
			out.Emergency = true
			out.apply(res)
			if ctx.Err() != nil {
				out.Canceled = true
				state = Done
				continue
			}
			s.profiles.Record(id, res.elapsed, res.infoErr == nil)
			metrics.Emergency(res.infoErr == nil)
			if res.infoErr != nil {
				log.Warn("emergency fetch failed", logger.Error(res.infoErr), logger.Duration("elapsed", res.elapsed))
			}
			state = Done
		}
	}

	out.Elapsed = time.Since(start)
	metrics.FetchDuration(out.Elapsed, out.Emergency)
	return out
}

func (s *Service) recordCompleted(id domain.ResourceID, res result) {
	kind := provider.Classify(res.infoErr)
	if kind == "" {
		metrics.Attempt("success")
	} else {
		metrics.Attempt(string(kind))
	}
	if kind == domain.ErrorNotFound {
		// A missing resource says nothing about latency.
		return
	}
	s.profiles.Record(id, res.elapsed, res.infoErr == nil)
}

type result struct {
	attrs    domain.Attributes
	infoErr  error
	stats    *domain.Stats
	statsErr error
	elapsed  time.Duration
}

func (o *Outcome) apply(r result) {
	o.Attributes = r.attrs
	o.InfoErr = r.infoErr
	o.StatsErr = r.statsErr
	o.Stats = r.stats
	if r.infoErr != nil {
		o.Stats = nil
	}
}

// attempt runs one bounded query. It reports timedOut when the attempt's own
// deadline cut the attributes call short.
func (s *Service) attempt(ctx context.Context, req Request, timeout time.Duration) (result, bool) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := s.query(actx, req)
	timedOut := res.infoErr != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	return res, timedOut
}

// query issues the attributes and stats sub-calls concurrently and returns
// once both have exited.
func (s *Service) query(ctx context.Context, req Request) result {
	start := time.Now()
	var res result

	var wg sync.WaitGroup
	if !req.SkipStats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := s.reader.Stats(ctx, req.ID)
			if err != nil {
				res.statsErr = err
				return
			}
			res.stats = &st
		}()
	}

	res.attrs, res.infoErr = s.reader.Attributes(ctx, req.ID)
	wg.Wait()

	res.elapsed = time.Since(start)
	return res
}

func canceled(id domain.ResourceID, err error) Outcome {
	return Outcome{ID: id, Canceled: true, InfoErr: &provider.Error{Op: "fetch", ID: id, Kind: provider.ErrTimeout, Err: err}}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
