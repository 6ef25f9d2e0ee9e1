// Package statuscache is the two-tier status cache: a short-lived raw tier
// holding provider snapshots and a longer-lived formatted tier holding the
// StatusResult consumers render. Expiry is evaluated lazily on read.
package statuscache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/metrics"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
)

const (
	tierRaw       = "raw"
	tierFormatted = "formatted"
)

// Deactivator stops a resource from being polled once it is known to be gone.
type Deactivator interface {
	Deactivate(ctx context.Context, id domain.ResourceID, reason string) error
}

// Config sizes the two tiers.
type Config struct {
	RawTTL time.Duration
	// FormattedTTLMultiplier scales RawTTL for the formatted tier.
	FormattedTTLMultiplier float64
	// NotFoundThreshold is how many not-found results in a row make the
	// absence persistent.
	NotFoundThreshold int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RawTTL:                 30 * time.Second,
		FormattedTTLMultiplier: 2.5,
		NotFoundThreshold:      2,
	}
}

// FormattedTTL returns the formatted tier TTL.
func (c Config) FormattedTTL() time.Duration {
	return time.Duration(float64(c.RawTTL) * c.FormattedTTLMultiplier)
}

// Stats summarises both tiers.
type Stats struct {
	Raw             TierStats `json:"raw"`
	Formatted       TierStats `json:"formatted"`
	NotFoundPending int       `json:"not_found_pending"`
	Deactivated     uint64    `json:"deactivated"`
}

// Cache is safe for concurrent use. No lock is held while calling the
// Deactivator.
type Cache struct {
	cfg         Config
	deactivator Deactivator
	log         logger.Logger
	now         func() time.Time

	raw       *tier[domain.Attributes]
	formatted *tier[domain.StatusResult]

	mu          sync.Mutex
	notFound    map[domain.ResourceID]int
	deactivated uint64
}

// New creates an empty cache. deactivator and log may be nil.
func New(cfg Config, deactivator Deactivator, log logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.NotFoundThreshold < 1 {
		cfg.NotFoundThreshold = 1
	}
	return &Cache{
		cfg:         cfg,
		deactivator: deactivator,
		log:         log,
		now:         time.Now,
		raw:         newTier[domain.Attributes](tierRaw, cfg.RawTTL),
		formatted:   newTier[domain.StatusResult](tierFormatted, cfg.FormattedTTL()),
		notFound:    make(map[domain.ResourceID]int),
	}
}

// Config returns the tier configuration.
func (c *Cache) Config() Config { return c.cfg }

// Now is the cache clock, exposed so callers compute ages consistently.
func (c *Cache) Now() time.Time { return c.now() }

// GetRaw returns the live raw attributes of id. An expired entry is evicted
// and reported as a miss.
func (c *Cache) GetRaw(id domain.ResourceID) (Entry[domain.Attributes], bool) {
	return c.raw.get(id, c.now())
}

// SetRaw stores attrs for id, stamped with the cache clock.
func (c *Cache) SetRaw(id domain.ResourceID, attrs domain.Attributes) {
	c.raw.set(id, attrs, c.now())
}

// GetFormatted returns the live formatted result of id, with the same
// eviction rule as GetRaw.
func (c *Cache) GetFormatted(id domain.ResourceID) (Entry[domain.StatusResult], bool) {
	return c.formatted.get(id, c.now())
}

// SetFormatted stores result with timestamp ts (zero means now). A determined
// result clears any not-found streak for id.
func (c *Cache) SetFormatted(id domain.ResourceID, result domain.StatusResult, ts time.Time) {
	if result.IsDetermined() {
		c.mu.Lock()
		delete(c.notFound, id)
		c.mu.Unlock()
	}
	c.formatted.set(id, result, c.stamp(ts))
}

// SetError classifies err, stores the Error result in the formatted tier and
// returns it. When not-found has been seen NotFoundThreshold times in a row
// the resource is evicted from both tiers and deactivated instead.
func (c *Cache) SetError(ctx context.Context, id domain.ResourceID, err error, ts time.Time) domain.StatusResult {
	kind := provider.Classify(err)
	if kind == "" {
		kind = domain.ErrorGeneric
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	result := domain.Failure(kind, msg)

	if kind != domain.ErrorNotFound {
		c.formatted.set(id, result, c.stamp(ts))
		return result
	}

	c.mu.Lock()
	c.notFound[id]++
	streak := c.notFound[id]
	persistent := streak >= c.cfg.NotFoundThreshold
	if persistent {
		delete(c.notFound, id)
		c.deactivated++
	}
	c.mu.Unlock()

	if !persistent {
		c.formatted.set(id, result, c.stamp(ts))
		return result
	}

	c.raw.delete(id)
	c.formatted.delete(id)
	metrics.Deactivation()

	reason := fmt.Sprintf("not found %d times in a row", streak)
	c.log.Warn("resource persistently missing, deactivating",
		logger.Resource(string(id)), logger.Int("streak", streak))
	if c.deactivator != nil {
		if derr := c.deactivator.Deactivate(ctx, id, reason); derr != nil {
			c.log.Error("failed to deactivate resource", logger.Resource(string(id)), logger.Error(derr))
		}
	}
	return result
}

func (c *Cache) stamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return c.now()
	}
	return ts
}

// Invalidate drops id from both tiers.
func (c *Cache) Invalidate(id domain.ResourceID) {
	c.raw.delete(id)
	c.formatted.delete(id)
}

// InvalidateAll empties both tiers.
func (c *Cache) InvalidateAll() {
	c.raw.clear()
	c.formatted.clear()
}

// Forget drops everything known about id, including its not-found streak.
func (c *Cache) Forget(id domain.ResourceID) {
	c.Invalidate(id)
	c.mu.Lock()
	delete(c.notFound, id)
	c.mu.Unlock()
}

// Formatted returns every live formatted entry sorted by id.
func (c *Cache) Formatted() []Entry[domain.StatusResult] {
	out := c.formatted.live(c.now())
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of formatted entries held, expired ones included.
func (c *Cache) Len() int { return c.formatted.snapshot().Size }

// Stats returns per-tier counters plus the not-found bookkeeping.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	pending, deactivated := len(c.notFound), c.deactivated
	c.mu.Unlock()

	return Stats{
		Raw:             c.raw.snapshot(),
		Formatted:       c.formatted.snapshot(),
		NotFoundPending: pending,
		Deactivated:     deactivated,
	}
}
