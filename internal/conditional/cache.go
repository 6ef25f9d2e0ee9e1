// Package conditional remembers the last content published per channel and
// resource so unchanged content is not sent again.
package conditional

import (
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// Key identifies one published message.
type Key struct {
	ChannelID  string
	ResourceID domain.ResourceID
}

// Field is one name/value line of rendered content.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Content is what gets published. Comparison is structural over every field.
type Content struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

// Config bounds the cache size.
type Config struct {
	// MaxKeys is how many keys survive a trim.
	MaxKeys int
	// TrimEvery runs a trim after this many commits.
	TrimEvery int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{MaxKeys: 500, TrimEvery: 100}
}

// Stats reports publish decisions.
type Stats struct {
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"`
	Size    int    `json:"size"`
	Trims   uint64 `json:"trims"`
}

// nil and empty field lists render the same.
var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

type baseline struct {
	content Content
	seq     uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	cfg Config

	mu      sync.RWMutex
	entries map[Key]baseline
	seq     uint64
	stats   Stats
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	if cfg.MaxKeys < 1 {
		cfg.MaxKeys = DefaultConfig().MaxKeys
	}
	if cfg.TrimEvery < 1 {
		cfg.TrimEvery = DefaultConfig().TrimEvery
	}
	return &Cache{
		cfg:     cfg,
		entries: make(map[Key]baseline),
	}
}

// HasChanged reports whether content differs from the last committed content
// for key. A key never committed has always changed. It is read-only: neither
// baselines nor counters move.
func (c *Cache) HasChanged(key Key, content Content) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.entries[key]
	if !ok {
		return true
	}
	return !cmp.Equal(b.content, content, equalOpts)
}

// Skip counts a publish suppressed because HasChanged said no.
func (c *Cache) Skip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Skipped++
}

// Commit records content as the published baseline for key. Every TrimEvery
// commits the cache is cut back to the MaxKeys most recently committed keys;
// key itself is always the newest and survives.
func (c *Cache) Commit(key Key, content Content) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = baseline{content: clone(content), seq: c.seq}
	c.stats.Sent++

	if c.stats.Sent%uint64(c.cfg.TrimEvery) == 0 {
		c.trimLocked()
	}
}

func (c *Cache) trimLocked() {
	c.stats.Trims++
	over := len(c.entries) - c.cfg.MaxKeys
	if over <= 0 {
		return
	}

	type keyed struct {
		key Key
		seq uint64
	}
	all := make([]keyed, 0, len(c.entries))
	for k, b := range c.entries {
		all = append(all, keyed{k, b.seq})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	for _, k := range all[:over] {
		delete(c.entries, k.key)
	}
}

// Forget drops every key of resource id.
func (c *Cache) Forget(id domain.ResourceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.ResourceID == id {
			delete(c.entries, k)
		}
	}
}

// Statistics returns a snapshot of the counters.
func (c *Cache) Statistics() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

func clone(c Content) Content {
	c.Fields = append([]Field(nil), c.Fields...)
	return c
}
