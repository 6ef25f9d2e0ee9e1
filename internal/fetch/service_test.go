package fetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider/providertest"
)

// fastConfig keeps attempt budgets in the tens of milliseconds.
func fastConfig() profile.Config {
	return profile.Config{
		MinTimeout:        20 * time.Millisecond,
		MaxTimeout:        200 * time.Millisecond,
		DefaultTimeout:    20 * time.Millisecond,
		SlowThreshold:     time.Second,
		HistoryWindow:     10,
		RetryAttempts:     3,
		TimeoutMultiplier: 1.0,
	}
}

func newService(fake *providertest.Fake, cooldown time.Duration) (*Service, *profile.Store) {
	store := profile.NewStore(fastConfig())
	svc := NewService(fake, store, Config{Cooldown: cooldown, RetryDelay: time.Millisecond}, nil)
	return svc, store
}

func TestAttemptTimeoutGrows(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 3 * time.Second},
		{2, 4500 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, attemptTimeout(2*time.Second, tt.attempt))
	}
}

func TestFetchSuccess(t *testing.T) {
	fake := providertest.New()
	fake.Add("web", providertest.Resource{
		Attributes: domain.Attributes{Running: true},
		Stats:      domain.Stats{CPUPercent: 1.5, MemoryUsedMB: 64},
	})
	svc, store := newService(fake, 0)

	out := svc.Fetch(context.Background(), Request{ID: "web", CallID: "c1"})

	require.True(t, out.OK())
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.Emergency)
	assert.False(t, out.Shared)
	require.NotNil(t, out.Stats)
	assert.Equal(t, 1.5, out.Stats.CPUPercent)
	assert.True(t, out.Attributes.Running)
	assert.Equal(t, 1, store.Profile("web").Successes)
}

func TestFetchSkipStats(t *testing.T) {
	fake := providertest.New()
	fake.Add("web", providertest.Resource{})
	svc, _ := newService(fake, 0)

	out := svc.Fetch(context.Background(), Request{ID: "web", SkipStats: true})

	assert.True(t, out.OK())
	assert.Nil(t, out.Stats)
	assert.Equal(t, 0, fake.StatsCalls("web"))
}

func TestFetchStatsFailureIsAValue(t *testing.T) {
	fake := providertest.New()
	fake.Add("web", providertest.Resource{StatsErr: &provider.Error{Op: "stats", Kind: provider.ErrDataFormat}})
	svc, _ := newService(fake, 0)

	out := svc.Fetch(context.Background(), Request{ID: "web"})

	assert.True(t, out.OK())
	assert.Nil(t, out.Stats)
	assert.ErrorIs(t, out.StatsErr, provider.ErrDataFormat)
}

func TestFetchTimesOutThenEmergency(t *testing.T) {
	fake := providertest.New()
	svc, store := newService(fake, 0)

	// Two quick successes so the success rate has room to fall.
	store.Record("B", 10*time.Millisecond, true)
	store.Record("B", 10*time.Millisecond, true)

	var mu sync.Mutex
	var rates []float64
	fake.Add("B", providertest.Resource{
		LatencyFn: func(call int) time.Duration {
			mu.Lock()
			rates = append(rates, store.Profile("B").SuccessRate)
			mu.Unlock()
			if call <= 3 {
				return time.Second
			}
			return 0
		},
	})

	out := svc.Fetch(context.Background(), Request{ID: "B"})

	assert.Equal(t, 3, out.Attempts, "bounded attempts")
	assert.True(t, out.Emergency)
	assert.True(t, out.OK(), "emergency fetch succeeded")
	assert.Equal(t, 4, fake.Calls("B"), "three attempts plus one emergency")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, rates, 4)
	for i := 1; i < len(rates); i++ {
		assert.Less(t, rates[i], rates[i-1], "success rate after failure %d", i)
	}

	p := store.Profile("B")
	assert.Equal(t, 6, p.TotalAttempts, "two seeds, three timeouts, one emergency")
	assert.Equal(t, int64(0), fake.Inflight(), "cancelled attempts must not leak")
}

func TestFetchTimeoutsFromFreshProfile(t *testing.T) {
	fake := providertest.New()
	svc, store := newService(fake, 0)

	var mu sync.Mutex
	var rates []float64
	fake.Add("B", providertest.Resource{
		LatencyFn: func(call int) time.Duration {
			mu.Lock()
			rates = append(rates, store.Profile("B").SuccessRate)
			mu.Unlock()
			if call <= 3 {
				return time.Second
			}
			return 0
		},
	})

	out := svc.Fetch(context.Background(), Request{ID: "B"})
	require.True(t, out.Emergency)
	require.True(t, out.OK())

	mu.Lock()
	defer mu.Unlock()
	// Seeded 1.0, then no success left to dilute: the rate bottoms out at 0.
	assert.Equal(t, []float64{1.0, 0, 0, 0}, rates)
	for i := 1; i < len(rates); i++ {
		assert.LessOrEqual(t, rates[i], rates[i-1], "success rate never rises on failure")
	}
	assert.InDelta(t, 0.25, store.Profile("B").SuccessRate, 1e-9, "emergency success after three timeouts")
}

func TestFetchEmergencyFailureCarriesError(t *testing.T) {
	fake := providertest.New()
	svc, store := newService(fake, 0)
	fake.Add("B", providertest.Resource{
		LatencyFn: func(call int) time.Duration {
			if call <= 3 {
				return time.Second
			}
			return 0
		},
		AttrErr: &provider.Error{Op: "attributes", ID: "B", Kind: provider.ErrConnectionRefused},
	})

	out := svc.Fetch(context.Background(), Request{ID: "B"})

	assert.True(t, out.Emergency)
	assert.ErrorIs(t, out.InfoErr, provider.ErrConnectionRefused)
	assert.Nil(t, out.Stats)
	assert.Equal(t, 4, store.Profile("B").TotalAttempts)
}

func TestFetchNonTransientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permission", &provider.Error{Op: "attributes", Kind: provider.ErrPermission}},
		{"data format", &provider.Error{Op: "attributes", Kind: provider.ErrDataFormat}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := providertest.New()
			fake.Add("web", providertest.Resource{AttrErr: tt.err})
			svc, store := newService(fake, 0)

			out := svc.Fetch(context.Background(), Request{ID: "web"})

			assert.Equal(t, 1, out.Attempts)
			assert.False(t, out.Emergency)
			assert.ErrorIs(t, out.InfoErr, tt.err)
			p := store.Profile("web")
			assert.Equal(t, 1, p.TotalAttempts)
			assert.Equal(t, 0, p.Successes)
		})
	}
}

func TestFetchNotFoundIsNotProfiled(t *testing.T) {
	fake := providertest.New()
	svc, store := newService(fake, 0)

	out := svc.Fetch(context.Background(), Request{ID: "gone"})

	assert.True(t, provider.IsNotFound(out.InfoErr))
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 0, store.Len())
}

func TestFetchCooldownDedupsSimultaneousRequests(t *testing.T) {
	fake := providertest.New()
	fake.Add("web", providertest.Resource{Latency: 50 * time.Millisecond})
	svc, _ := newService(fake, time.Second)

	var wg sync.WaitGroup
	outs := make([]Outcome, 2)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = svc.Fetch(context.Background(), Request{ID: "web"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, fake.Calls("web"), "one provider call for two requests")
	assert.True(t, outs[0].OK())
	assert.True(t, outs[1].OK())
	assert.True(t, outs[0].Shared || outs[1].Shared)

	later := svc.Fetch(context.Background(), Request{ID: "web"})
	assert.True(t, later.Shared, "reused within cooldown")
	assert.Equal(t, 1, fake.Calls("web"))

	svc.Reset("web")
	svc.Fetch(context.Background(), Request{ID: "web"})
	assert.Equal(t, 2, fake.Calls("web"))
}

func TestFetchWaitsOutCooldownAfterFailure(t *testing.T) {
	fake := providertest.New()
	svc, _ := newService(fake, 100*time.Millisecond)

	first := svc.Fetch(context.Background(), Request{ID: "gone"})
	require.False(t, first.OK())

	start := time.Now()
	second := svc.Fetch(context.Background(), Request{ID: "gone"})

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.False(t, second.Shared)
	assert.Equal(t, 2, fake.Calls("gone"))
}

func TestFetchCallerCancellation(t *testing.T) {
	fake := providertest.New()
	fake.Add("slow", providertest.Resource{Latency: time.Second})
	store := profile.NewStore(profile.DefaultConfig())
	svc := NewService(fake, store, Config{RetryDelay: time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	out := svc.Fetch(ctx, Request{ID: "slow"})

	assert.ErrorIs(t, out.InfoErr, provider.ErrTimeout)
	assert.False(t, out.Emergency)
	assert.Equal(t, 0, store.Profile("slow").TotalAttempts, "caller cancellation is not profiled")
	assert.Eventually(t, func() bool { return fake.Inflight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestFetchLeaderCancellationDoesNotFailFollowers(t *testing.T) {
	fake := providertest.New()
	fake.Add("web", providertest.Resource{
		Attributes: domain.Attributes{Running: true},
		Latency:    200 * time.Millisecond,
	})
	store := profile.NewStore(profile.DefaultConfig())
	svc := NewService(fake, store, Config{Cooldown: time.Second, RetryDelay: time.Millisecond}, nil)

	leaderCtx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var leader, follower Outcome
	wg.Add(2)
	go func() {
		defer wg.Done()
		leader = svc.Fetch(leaderCtx, Request{ID: "web"})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		follower = svc.Fetch(context.Background(), Request{ID: "web"})
	}()
	wg.Wait()

	assert.True(t, leader.Canceled)
	assert.ErrorIs(t, leader.InfoErr, provider.ErrTimeout)

	require.True(t, follower.OK(), "follower keeps the shared query alive")
	assert.False(t, follower.Canceled)
	assert.True(t, follower.Attributes.Running)
	assert.Equal(t, 1, fake.Calls("web"))

	later := svc.Fetch(context.Background(), Request{ID: "web"})
	assert.True(t, later.Shared, "answered query is remembered")
	assert.Equal(t, 1, fake.Calls("web"))
}

func TestFetchCanceledQueryIsNotRemembered(t *testing.T) {
	fake := providertest.New()
	fake.Add("web", providertest.Resource{
		LatencyFn: func(call int) time.Duration {
			if call == 1 {
				return time.Second
			}
			return 0
		},
	})
	store := profile.NewStore(profile.DefaultConfig())
	svc := NewService(fake, store, Config{Cooldown: time.Second, RetryDelay: time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	first := svc.Fetch(ctx, Request{ID: "web"})
	require.True(t, first.Canceled)
	assert.Eventually(t, func() bool { return fake.Inflight() == 0 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	second := svc.Fetch(context.Background(), Request{ID: "web"})

	assert.True(t, second.OK())
	assert.False(t, second.Shared)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "no cooldown wait after a cancelled query")
	assert.Equal(t, 2, fake.Calls("web"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "emergency_fetch", EmergencyFetch.String())
	assert.Equal(t, "unknown", State(42).String())
}
