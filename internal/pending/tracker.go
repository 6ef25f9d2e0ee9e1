// Package pending tracks start/stop/restart actions the dashboard issued so
// it can show "pending" until the observed state catches up.
package pending

import (
	"sync"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
)

// DefaultTimeout bounds how long an action stays pending without confirmation.
const DefaultTimeout = 2 * time.Minute

// Action is an issued, not yet observed action.
type Action struct {
	ID       domain.ResourceID `json:"id"`
	Action   string            `json:"action"`
	IssuedAt time.Time         `json:"issued_at"`
}

// WantsRunning reports the state the action should end in.
func (a Action) WantsRunning() bool { return a.Action != provider.ActionStop }

// Tracker is safe for concurrent use.
type Tracker struct {
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	actions map[domain.ResourceID]Action
}

// NewTracker creates a tracker; timeout <= 0 selects DefaultTimeout.
func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		timeout: timeout,
		now:     time.Now,
		actions: make(map[domain.ResourceID]Action),
	}
}

// Mark records action for id, replacing any earlier one.
func (t *Tracker) Mark(id domain.ResourceID, action string) Action {
	a := Action{ID: id, Action: action, IssuedAt: t.now()}
	t.mu.Lock()
	t.actions[id] = a
	t.mu.Unlock()
	return a
}

// Get returns the pending action for id. Actions older than the timeout are
// dropped and reported as absent.
func (t *Tracker) Get(id domain.ResourceID) (Action, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.actions[id]
	if !ok {
		return Action{}, false
	}
	if t.now().Sub(a.IssuedAt) > t.timeout {
		delete(t.actions, id)
		return Action{}, false
	}
	return a, true
}

// Observe clears the pending action once result shows the expected state. A
// restart is confirmed only by an uptime shorter than the time since it was
// issued. It reports whether id is still pending.
func (t *Tracker) Observe(id domain.ResourceID, result domain.StatusResult) bool {
	a, ok := t.Get(id)
	if !ok {
		return false
	}
	if !result.IsDetermined() || result.Running() != a.WantsRunning() {
		return true
	}
	if a.Action == provider.ActionRestart && result.Uptime > 0 && result.Uptime > t.now().Sub(a.IssuedAt) {
		return true
	}

	t.mu.Lock()
	if cur, ok := t.actions[id]; ok && cur.IssuedAt.Equal(a.IssuedAt) {
		delete(t.actions, id)
	}
	t.mu.Unlock()
	return false
}

// Len returns the number of tracked actions, expired ones included.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.actions)
}
