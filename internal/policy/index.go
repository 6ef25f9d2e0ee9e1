// Package policy loads the resource policy file and keeps it in memory.
package policy

import (
	"sort"
	"sync"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// Source answers policy lookups for the orchestrator.
type Source interface {
	Lookup(id domain.ResourceID) (domain.ResourcePolicy, bool)
}

// Index is the in-memory policy store.
type Index struct {
	mu         sync.RWMutex
	policies   map[domain.ResourceID]*domain.ResourcePolicy
	subs       []domain.Subscription
	lastReload time.Time
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		policies: make(map[domain.ResourceID]*domain.ResourcePolicy),
	}
}

// Replace swaps the whole content. The file is the truth: resources
// deactivated at runtime become active again if the file says so.
func (idx *Index) Replace(policies []*domain.ResourcePolicy, subs []domain.Subscription) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.policies = make(map[domain.ResourceID]*domain.ResourcePolicy, len(policies))
	for _, p := range policies {
		cp := *p
		idx.policies[p.ID] = &cp
	}
	idx.subs = append([]domain.Subscription(nil), subs...)
	idx.lastReload = time.Now()
}

// Lookup returns a copy of the policy for id.
func (idx *Index) Lookup(id domain.ResourceID) (domain.ResourcePolicy, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, ok := idx.policies[id]
	if !ok {
		return domain.ResourcePolicy{}, false
	}
	return *p, true
}

// ActiveIDs returns the ids to poll, sorted by Order then id.
func (idx *Index) ActiveIDs() []domain.ResourceID {
	idx.mu.RLock()
	active := make([]*domain.ResourcePolicy, 0, len(idx.policies))
	for _, p := range idx.policies {
		if p.Active {
			active = append(active, p)
		}
	}
	idx.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		if active[i].Order != active[j].Order {
			return active[i].Order < active[j].Order
		}
		return active[i].ID < active[j].ID
	})

	ids := make([]domain.ResourceID, len(active))
	for i, p := range active {
		ids[i] = p.ID
	}
	return ids
}

// Inactive returns copies of the deactivated policies.
func (idx *Index) Inactive() []domain.ResourcePolicy {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []domain.ResourcePolicy
	for _, p := range idx.policies {
		if !p.Active {
			out = append(out, *p)
		}
	}
	return out
}

// Deactivate marks id inactive. It reports whether the id was known and
// active before the call.
func (idx *Index) Deactivate(id domain.ResourceID) bool {
	return idx.DeactivateSince(id, time.Now())
}

// DeactivateSince is Deactivate with an explicit deactivation time, used
// when restoring state persisted by an earlier run.
func (idx *Index) DeactivateSince(id domain.ResourceID, since time.Time) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	p, ok := idx.policies[id]
	if !ok || !p.Active {
		return false
	}
	p.Active = false
	p.UpdatedAt = since
	return true
}

// Subscriptions returns the channel bindings. Channels only list active
// resources.
func (idx *Index) Subscriptions() []domain.Subscription {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.Subscription, 0, len(idx.subs))
	for _, sub := range idx.subs {
		s := domain.Subscription{ChannelID: sub.ChannelID}
		for _, id := range sub.Resources {
			if p, ok := idx.policies[id]; ok && p.Active {
				s.Resources = append(s.Resources, id)
			}
		}
		out = append(out, s)
	}
	return out
}

// Count returns the number of known resources.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.policies)
}

// LastReload returns when Replace last ran.
func (idx *Index) LastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lastReload
}
