// Package profile keeps a rolling latency and success history per resource
// and derives adaptive timeouts and fast/slow classification from it.
package profile

import (
	"sort"
	"sync"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// Below this success rate a resource is treated as slow and its timeout gets
// extra headroom.
const reliableSuccessRate = 0.8

const (
	maxObservedFactor = 1.5
	unreliableFactor  = 1.5
)

// Profile is a copy of what the store knows about one resource.
type Profile struct {
	ID              domain.ResourceID `json:"id"`
	ResponseTimes   []time.Duration   `json:"response_times"`
	AvgResponseTime time.Duration     `json:"avg_response_time"`
	MinResponseTime time.Duration     `json:"min_response_time"`
	MaxResponseTime time.Duration     `json:"max_response_time"`
	TotalAttempts   int               `json:"total_attempts"`
	Successes       int               `json:"successes"`
	SuccessRate     float64           `json:"success_rate"`
	IsSlow          bool              `json:"is_slow"`
	LastUpdated     time.Time         `json:"last_updated"`
}

// Classification partitions a queried set of ids.
type Classification struct {
	Fast    []domain.ResourceID
	Slow    []domain.ResourceID
	Unknown []domain.ResourceID
}

// Len returns the number of classified ids.
func (c Classification) Len() int { return len(c.Fast) + len(c.Slow) + len(c.Unknown) }

// Store holds one profile per resource. Profiles are created lazily on the
// first Record and live for the process lifetime.
type Store struct {
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	profiles map[domain.ResourceID]*Profile
}

// NewStore creates an empty store. cfg is expected to be valid.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:      cfg,
		now:      time.Now,
		profiles: make(map[domain.ResourceID]*Profile),
	}
}

// Config returns the configuration the store was built with.
func (s *Store) Config() Config { return s.cfg }

func (s *Store) seed(id domain.ResourceID) *Profile {
	return &Profile{
		ID:              id,
		AvgResponseTime: s.cfg.DefaultTimeout,
		SuccessRate:     1.0,
	}
}

// Profile returns a copy of the profile for id, or a freshly seeded default
// when nothing was recorded yet. The default is not stored.
func (s *Store) Profile(id domain.ResourceID) Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[id]; ok {
		return p.clone()
	}
	return *s.seed(id)
}

// Record feeds one observed attempt into the profile for id. SuccessRate is
// successes over attempts, so a run of failures lowers it strictly only while
// earlier successes remain: a fresh profile goes from the seeded 1.0 straight
// to 0 and stays there.
func (s *Store) Record(id domain.ResourceID, elapsed time.Duration, success bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		p = s.seed(id)
		s.profiles[id] = p
	}

	p.TotalAttempts++
	if success {
		p.Successes++
		p.ResponseTimes = append(p.ResponseTimes, elapsed)
		if over := len(p.ResponseTimes) - s.cfg.HistoryWindow; over > 0 {
			p.ResponseTimes = append(p.ResponseTimes[:0:0], p.ResponseTimes[over:]...)
		}
		p.recompute(s.cfg.DefaultTimeout)
	}
	p.SuccessRate = float64(p.Successes) / float64(p.TotalAttempts)
	p.IsSlow = p.AvgResponseTime > s.cfg.SlowThreshold
	p.LastUpdated = now
}

func (p *Profile) recompute(fallback time.Duration) {
	if len(p.ResponseTimes) == 0 {
		p.AvgResponseTime = fallback
		p.MinResponseTime, p.MaxResponseTime = 0, 0
		return
	}
	var sum time.Duration
	lo, hi := p.ResponseTimes[0], p.ResponseTimes[0]
	for _, d := range p.ResponseTimes {
		sum += d
		lo = min(lo, d)
		hi = max(hi, d)
	}
	p.AvgResponseTime = sum / time.Duration(len(p.ResponseTimes))
	p.MinResponseTime = lo
	p.MaxResponseTime = hi
}

func (p *Profile) clone() Profile {
	out := *p
	out.ResponseTimes = append([]time.Duration(nil), p.ResponseTimes...)
	return out
}

// AdaptiveTimeout computes the per-attempt budget for id:
// max(avg*multiplier, max_observed*1.5, MinTimeout), stretched by 1.5 when the
// success rate is below 0.8, and never above MaxTimeout.
func (s *Store) AdaptiveTimeout(id domain.ResourceID) time.Duration {
	return s.cfg.timeoutFor(s.Profile(id))
}

func (c Config) timeoutFor(p Profile) time.Duration {
	t := max(
		scale(p.AvgResponseTime, c.TimeoutMultiplier),
		scale(p.MaxResponseTime, maxObservedFactor),
		c.MinTimeout,
	)
	if p.SuccessRate < reliableSuccessRate {
		t = scale(t, unreliableFactor)
	}
	return min(t, c.MaxTimeout)
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

// Classify partitions ids. A resource never observed is Unknown; one that is
// slow on average or unreliable is Slow; everything else is Fast. Duplicate
// ids are kept, each landing in the same bucket.
func (s *Store) Classify(ids []domain.ResourceID) Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Classification
	for _, id := range ids {
		p, ok := s.profiles[id]
		switch {
		case !ok || p.TotalAttempts == 0:
			c.Unknown = append(c.Unknown, id)
		case p.IsSlow || p.SuccessRate < reliableSuccessRate:
			c.Slow = append(c.Slow, id)
		default:
			c.Fast = append(c.Fast, id)
		}
	}
	return c
}

// Snapshot returns copies of every stored profile sorted by id.
func (s *Store) Snapshot() []Profile {
	s.mu.RLock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Forget drops the profile for id.
func (s *Store) Forget(id domain.ResourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
}

// Len returns the number of stored profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
