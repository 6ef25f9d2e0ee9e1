package statuscache

import (
	"sync"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/metrics"
)

// Entry is one cached payload. It is expired once now-Timestamp exceeds TTL.
type Entry[T any] struct {
	ID        domain.ResourceID `json:"id"`
	Payload   T                 `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
	TTL       time.Duration     `json:"ttl"`
}

// Expired reports whether the entry outlived its TTL at now.
func (e Entry[T]) Expired(now time.Time) bool { return now.Sub(e.Timestamp) > e.TTL }

// Age is how old the entry is at now.
func (e Entry[T]) Age(now time.Time) time.Duration { return now.Sub(e.Timestamp) }

// Stale reports whether a still-live entry is older than fresh. Callers pass
// the raw tier TTL to flag formatted entries served past it.
func (e Entry[T]) Stale(now time.Time, fresh time.Duration) bool { return e.Age(now) > fresh }

// TierStats counts reads against one tier.
type TierStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Expired uint64 `json:"expired"`
	Size    int    `json:"size"`
}

// tier is a TTL map guarded by its own mutex.
type tier[T any] struct {
	name string
	ttl  time.Duration

	mu      sync.Mutex
	entries map[domain.ResourceID]Entry[T]
	stats   TierStats
}

func newTier[T any](name string, ttl time.Duration) *tier[T] {
	return &tier[T]{
		name:    name,
		ttl:     ttl,
		entries: make(map[domain.ResourceID]Entry[T]),
	}
}

// get treats missing and expired alike; expired entries are dropped here.
func (t *tier[T]) get(id domain.ResourceID, now time.Time) (Entry[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	switch {
	case !ok:
		t.stats.Misses++
		metrics.CacheLookup(t.name, "miss")
		return Entry[T]{}, false
	case e.Expired(now):
		delete(t.entries, id)
		t.stats.Expired++
		metrics.CacheLookup(t.name, "expired")
		return Entry[T]{}, false
	}
	t.stats.Hits++
	metrics.CacheLookup(t.name, "hit")
	return e, true
}

func (t *tier[T]) set(id domain.ResourceID, payload T, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = Entry[T]{ID: id, Payload: payload, Timestamp: ts, TTL: t.ttl}
}

func (t *tier[T]) delete(id domain.ResourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *tier[T]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[domain.ResourceID]Entry[T])
}

// live returns unexpired entries without touching the counters.
func (t *tier[T]) live(now time.Time) []Entry[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry[T], 0, len(t.entries))
	for _, e := range t.entries {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	return out
}

func (t *tier[T]) snapshot() TierStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Size = len(t.entries)
	return s
}
