// Package orchestrator runs bulk status queries: a reachability preflight,
// concurrent fetches for fast resources, sequential fetches for slow ones,
// and a merge with resource policy into cached StatusResults.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/fetch"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/metrics"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

// UnknownPolicy decides where never-observed resources are batched.
type UnknownPolicy int

const (
	// UnknownAsFast gives new resources an optimistic first try in the
	// concurrent phase.
	UnknownAsFast UnknownPolicy = iota
	// UnknownAsSlow runs them in the sequential phase.
	UnknownAsSlow
)

func (p UnknownPolicy) String() string {
	if p == UnknownAsSlow {
		return "slow"
	}
	return "fast"
}

// Config tunes bulk calls.
type Config struct {
	PingTimeout   time.Duration
	MaxConcurrent int
	Unknown       UnknownPolicy
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PingTimeout:   3 * time.Second,
		MaxConcurrent: 3,
		Unknown:       UnknownAsFast,
	}
}

// Fetcher performs one logical fetch. *fetch.Service implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) fetch.Outcome
}

// Orchestrator is safe for concurrent use; separate bulk calls do not
// coordinate beyond what the fetcher and cache do.
type Orchestrator struct {
	pinger   provider.Pinger
	profiles *profile.Store
	fetcher  Fetcher
	cache    *statuscache.Cache
	policies policy.Source
	cfg      Config
	log      logger.Logger
}

// New wires an orchestrator. pinger may be nil to skip the preflight.
func New(pinger provider.Pinger, profiles *profile.Store, fetcher Fetcher, cache *statuscache.Cache, policies policy.Source, cfg Config, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Orchestrator{
		pinger:   pinger,
		profiles: profiles,
		fetcher:  fetcher,
		cache:    cache,
		policies: policies,
		cfg:      cfg,
		log:      log,
	}
}

// BulkFetch queries ids and returns one StatusResult per distinct id. Every
// result is also written to the formatted cache, except for ids whose query
// was cut short by ctx. Partial failure is reported per id, never as an error.
func (o *Orchestrator) BulkFetch(ctx context.Context, ids []domain.ResourceID) map[domain.ResourceID]domain.StatusResult {
	ids = dedupe(ids)
	results := make(map[domain.ResourceID]domain.StatusResult, len(ids))
	if len(ids) == 0 {
		return results
	}

	callID := uuid.NewString()
	log := o.log.With(logger.String("call_id", callID))
	start := time.Now()

	if err := o.preflight(ctx); err != nil {
		if ctx.Err() != nil {
			// The caller left; the daemon was not necessarily unreachable.
			for _, id := range ids {
				results[id] = abandoned(ctx.Err())
			}
			return results
		}
		log.Warn("control plane unreachable, skipping bulk fetch",
			logger.Int("resources", len(ids)), logger.Error(err))
		metrics.BulkFetch("unreachable")
		now := o.cache.Now()
		for _, id := range ids {
			results[id] = o.cache.SetError(ctx, id, err, now)
		}
		return results
	}

	fast, slow := o.plan(ids)
	metrics.BulkResources("fast", len(fast))
	metrics.BulkResources("slow", len(slow))
	log.Debug("bulk fetch planned", logger.Int("fast", len(fast)), logger.Int("slow", len(slow)))

	var mu sync.Mutex
	store := func(id domain.ResourceID, r domain.StatusResult) {
		mu.Lock()
		results[id] = r
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrent)
	for _, id := range fast {
		id := id
		g.Go(func() error {
			store(id, o.fetchOne(ctx, id, callID))
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range slow {
		store(id, o.fetchOne(ctx, id, callID))
	}

	failed := 0
	for _, r := range results {
		if r.IsError() {
			failed++
		}
	}
	metrics.BulkFetch("ok")
	log.Info("bulk fetch done",
		logger.Int("resources", len(ids)),
		logger.Int("failed", failed),
		logger.Duration("elapsed", time.Since(start)))
	return results
}

// Status returns the cached formatted entry for id, fetching it when the
// cache has nothing live.
func (o *Orchestrator) Status(ctx context.Context, id domain.ResourceID) statuscache.Entry[domain.StatusResult] {
	if e, ok := o.cache.GetFormatted(id); ok {
		return e
	}
	result := o.BulkFetch(ctx, []domain.ResourceID{id})[id]
	if e, ok := o.cache.GetFormatted(id); ok {
		return e
	}
	// Deactivated on this very call; the result was not cached.
	return statuscache.Entry[domain.StatusResult]{
		ID:        id,
		Payload:   result,
		Timestamp: o.cache.Now(),
		TTL:       o.cache.Config().FormattedTTL(),
	}
}

func (o *Orchestrator) preflight(ctx context.Context) error {
	if o.pinger == nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, o.cfg.PingTimeout)
	defer cancel()

	if err := o.pinger.Ping(pctx); err != nil {
		if provider.Classify(err) == domain.ErrorConnectivity {
			return err
		}
		return &provider.Error{Op: "ping", Kind: provider.ErrConnectivity, Err: err}
	}
	return nil
}

// plan splits ids into the concurrent and the sequential phase. Both keep
// input order.
func (o *Orchestrator) plan(ids []domain.ResourceID) (fast, slow []domain.ResourceID) {
	c := o.profiles.Classify(ids)

	sequential := make(map[domain.ResourceID]bool, len(c.Slow)+len(c.Unknown))
	for _, id := range c.Slow {
		sequential[id] = true
	}
	if o.cfg.Unknown == UnknownAsSlow {
		for _, id := range c.Unknown {
			sequential[id] = true
		}
	}

	for _, id := range ids {
		if sequential[id] {
			slow = append(slow, id)
		} else {
			fast = append(fast, id)
		}
	}
	return fast, slow
}

func (o *Orchestrator) fetchOne(ctx context.Context, id domain.ResourceID, callID string) domain.StatusResult {
	pol, hasPolicy := o.policies.Lookup(id)
	details := hasPolicy && pol.AllowDetailedStatus

	out := o.fetcher.Fetch(ctx, fetch.Request{ID: id, CallID: callID, SkipStats: !details})
	if out.Canceled {
		return abandoned(out.InfoErr)
	}
	if !out.OK() {
		return o.cache.SetError(ctx, id, out.InfoErr, o.cache.Now())
	}

	o.cache.SetRaw(id, out.Attributes)

	name := pol.Name()
	if !hasPolicy {
		name = out.Attributes.Name
	}
	if name == "" {
		name = string(id)
	}

	result := merge(name, details, out, o.cache.Now())
	o.cache.SetFormatted(id, result, out.Attributes.FetchedAt)
	return result
}

// abandoned reports a query the caller stopped waiting for. It is never
// cached: the last known status of the resource stays in place.
func abandoned(err error) domain.StatusResult {
	return domain.Failure(domain.ErrorTimeout, err.Error())
}

// merge builds the display result from a successful fetch.
func merge(name string, details bool, out fetch.Outcome, now time.Time) domain.StatusResult {
	attrs := out.Attributes
	if !attrs.Running {
		return domain.Offline(name, details)
	}

	var uptime time.Duration
	if !attrs.StartedAt.IsZero() && now.After(attrs.StartedAt) {
		uptime = now.Sub(attrs.StartedAt)
	}

	var cpu, ram string
	if details && out.Stats != nil {
		cpu = formatCPU(out.Stats.CPUPercent)
		ram = formatMemory(out.Stats.MemoryUsedMB)
	}
	return domain.Success(name, true, cpu, ram, uptime, details)
}

func formatCPU(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

func formatMemory(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.2f GB", mb/1024)
	}
	return fmt.Sprintf("%.1f MB", mb)
}

func dedupe(ids []domain.ResourceID) []domain.ResourceID {
	seen := make(map[domain.ResourceID]bool, len(ids))
	out := make([]domain.ResourceID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
