// Package providertest provides an in-memory control plane for tests.
package providertest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
)

// Resource scripts how the fake answers for one container.
type Resource struct {
	Attributes domain.Attributes
	Stats      domain.Stats

	// Latency delays every Attributes call; StatsLatency delays Stats calls.
	Latency      time.Duration
	StatsLatency time.Duration

	// LatencyFn, when set, overrides Latency per call (call numbers start at 1).
	LatencyFn func(call int) time.Duration

	AttrErr  error
	StatsErr error
}

// Fake is a scriptable provider.ControlPlane. It is safe for concurrent use
// and honours context cancellation the way a real client would.
type Fake struct {
	mu         sync.Mutex
	resources  map[domain.ResourceID]*Resource
	attrCalls  map[domain.ResourceID]int
	statsCalls map[domain.ResourceID]int
	actions    []string
	pingErr    error
	pings      int

	inflight atomic.Int64
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		resources:  make(map[domain.ResourceID]*Resource),
		attrCalls:  make(map[domain.ResourceID]int),
		statsCalls: make(map[domain.ResourceID]int),
	}
}

// Add registers or replaces a resource.
func (f *Fake) Add(id domain.ResourceID, r Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Attributes.ID == "" {
		r.Attributes.ID = id
	}
	if r.Attributes.Name == "" {
		r.Attributes.Name = string(id)
	}
	f.resources[id] = &r
}

// Remove deletes a resource so later calls report not found.
func (f *Fake) Remove(id domain.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resources, id)
}

// SetPingError makes Ping fail with err (nil restores success).
func (f *Fake) SetPingError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

// Calls returns how many Attributes calls id received.
func (f *Fake) Calls(id domain.ResourceID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attrCalls[id]
}

// StatsCalls returns how many Stats calls id received.
func (f *Fake) StatsCalls(id domain.ResourceID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statsCalls[id]
}

// Pings returns the number of Ping calls.
func (f *Fake) Pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// Actions returns "action:id" strings in call order.
func (f *Fake) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.actions))
	copy(out, f.actions)
	return out
}

// Inflight reports calls currently blocked inside the fake. It drops back to
// zero once every cancelled call has returned.
func (f *Fake) Inflight() int64 { return f.inflight.Load() }

func (f *Fake) Attributes(ctx context.Context, id domain.ResourceID) (domain.Attributes, error) {
	f.mu.Lock()
	f.attrCalls[id]++
	call := f.attrCalls[id]
	r, ok := f.resources[id]
	var res Resource
	if ok {
		res = *r
	}
	f.mu.Unlock()

	if !ok {
		return domain.Attributes{}, &provider.Error{Op: "attributes", ID: id, Kind: provider.ErrNotFound}
	}

	latency := res.Latency
	if res.LatencyFn != nil {
		latency = res.LatencyFn(call)
	}
	if err := f.wait(ctx, latency); err != nil {
		return domain.Attributes{}, &provider.Error{Op: "attributes", ID: id, Kind: provider.ErrTimeout, Err: err}
	}
	if res.AttrErr != nil {
		return domain.Attributes{}, res.AttrErr
	}
	attrs := res.Attributes
	attrs.FetchedAt = time.Now()
	return attrs, nil
}

func (f *Fake) Stats(ctx context.Context, id domain.ResourceID) (domain.Stats, error) {
	f.mu.Lock()
	f.statsCalls[id]++
	r, ok := f.resources[id]
	var res Resource
	if ok {
		res = *r
	}
	f.mu.Unlock()

	if !ok {
		return domain.Stats{}, &provider.Error{Op: "stats", ID: id, Kind: provider.ErrNotFound}
	}
	if err := f.wait(ctx, res.StatsLatency); err != nil {
		return domain.Stats{}, &provider.Error{Op: "stats", ID: id, Kind: provider.ErrTimeout, Err: err}
	}
	if res.StatsErr != nil {
		return domain.Stats{}, res.StatsErr
	}
	return res.Stats, nil
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	f.pings++
	err := f.pingErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (f *Fake) Start(ctx context.Context, id domain.ResourceID) error {
	return f.act(provider.ActionStart, id, true)
}

func (f *Fake) Stop(ctx context.Context, id domain.ResourceID) error {
	return f.act(provider.ActionStop, id, false)
}

func (f *Fake) Restart(ctx context.Context, id domain.ResourceID) error {
	return f.act(provider.ActionRestart, id, true)
}

func (f *Fake) act(action string, id domain.ResourceID, running bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+":"+string(id))
	r, ok := f.resources[id]
	if !ok {
		return &provider.Error{Op: action, ID: id, Kind: provider.ErrNotFound}
	}
	r.Attributes.Running = running
	if running {
		r.Attributes.StartedAt = time.Now()
	}
	return nil
}

func (f *Fake) wait(ctx context.Context, d time.Duration) error {
	f.inflight.Add(1)
	defer f.inflight.Add(-1)

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

var _ provider.ControlPlane = (*Fake)(nil)
