package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/fetch"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider/providertest"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

type harness struct {
	fake     *providertest.Fake
	profiles *profile.Store
	cache    *statuscache.Cache
	index    *policy.Index
	orch     *Orchestrator
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	fake := providertest.New()
	profiles := profile.NewStore(profile.Config{
		MinTimeout:        20 * time.Millisecond,
		MaxTimeout:        200 * time.Millisecond,
		DefaultTimeout:    20 * time.Millisecond,
		SlowThreshold:     time.Second,
		HistoryWindow:     10,
		RetryAttempts:     3,
		TimeoutMultiplier: 1.0,
	})
	fetcher := fetch.NewService(fake, profiles, fetch.Config{RetryDelay: time.Millisecond}, nil)
	index := policy.NewIndex()
	cache := statuscache.New(statuscache.DefaultConfig(), policy.NewDeactivator(index, nil, nil), nil)
	return &harness{
		fake:     fake,
		profiles: profiles,
		cache:    cache,
		index:    index,
		orch:     New(fake, profiles, fetcher, cache, index, cfg, nil),
	}
}

func TestBulkFetchPartialFailureIsolation(t *testing.T) {
	h := newHarness(t, Config{PingTimeout: time.Second, MaxConcurrent: 4})

	var ids []domain.ResourceID
	var policies []*domain.ResourcePolicy
	for i := 0; i < 10; i++ {
		id := domain.ResourceID(fmt.Sprintf("r%d", i))
		ids = append(ids, id)
		policies = append(policies, &domain.ResourcePolicy{ID: id, Active: true, AllowDetailedStatus: true})
		h.fake.Add(id, providertest.Resource{
			Attributes: domain.Attributes{Running: i%2 == 0, StartedAt: time.Now().Add(-time.Hour)},
			Stats:      domain.Stats{CPUPercent: 2, MemoryUsedMB: 128},
		})
	}
	h.fake.Add("r5", providertest.Resource{Latency: 10 * time.Second})
	h.index.Replace(policies, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	results := h.orch.BulkFetch(ctx, ids)

	require.Len(t, results, 10)
	for _, id := range ids {
		r := results[id]
		if id == "r5" {
			assert.True(t, r.IsError(), "r5 should fail")
			assert.Equal(t, domain.ErrorTimeout, r.ErrorKind)
			continue
		}
		assert.True(t, r.IsDetermined(), "%s should be determined, got %s", id, r)
	}

	r0 := results["r0"]
	assert.Equal(t, domain.KindSuccess, r0.Kind)
	assert.Equal(t, "2.0%", r0.CPU)
	assert.Equal(t, "128.0 MB", r0.RAM)
	assert.GreaterOrEqual(t, r0.Uptime, time.Hour)
	assert.Equal(t, domain.KindOffline, results["r1"].Kind)

	assert.Len(t, h.cache.Formatted(), 9, "determined results are cached")
	_, cached := h.cache.GetFormatted("r5")
	assert.False(t, cached, "r5 was cut short by the caller")
	assert.Eventually(t, func() bool { return h.fake.Inflight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBulkFetchConnectivityShortCircuit(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fake.Add("web", providertest.Resource{})
	h.fake.Add("db", providertest.Resource{})
	h.fake.SetPingError(errors.New("dial unix /var/run/docker.sock: connect: no such file"))

	results := h.orch.BulkFetch(context.Background(), []domain.ResourceID{"web", "db", "web"})

	require.Len(t, results, 2)
	for id, r := range results {
		assert.Equal(t, domain.ErrorConnectivity, r.ErrorKind, id)
		e, ok := h.cache.GetFormatted(id)
		require.True(t, ok)
		assert.True(t, e.Payload.IsError())
	}
	assert.Equal(t, 0, h.fake.Calls("web"))
	assert.Equal(t, 0, h.fake.Calls("db"))
	assert.Equal(t, 1, h.fake.Pings())
}

func TestBulkFetchCallerCancellationKeepsLastStatus(t *testing.T) {
	tests := []struct {
		name  string
		slow  bool
		ctxFn func() (context.Context, context.CancelFunc)
	}{
		{"during fetch", true, func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
		{"before preflight", false, func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultConfig())
			h.fake.Add("web", providertest.Resource{Attributes: domain.Attributes{Running: true}})

			first := h.orch.BulkFetch(context.Background(), []domain.ResourceID{"web"})
			require.Equal(t, domain.KindSuccess, first["web"].Kind)

			if tt.slow {
				h.fake.Add("web", providertest.Resource{
					Attributes: domain.Attributes{Running: true},
					Latency:    200 * time.Millisecond,
				})
			}
			ctx, cancel := tt.ctxFn()
			defer cancel()
			results := h.orch.BulkFetch(ctx, []domain.ResourceID{"web"})

			assert.Equal(t, domain.ErrorTimeout, results["web"].ErrorKind)
			e, ok := h.cache.GetFormatted("web")
			require.True(t, ok)
			assert.Equal(t, domain.KindSuccess, e.Payload.Kind, "cached status survives an abandoned call")
			assert.Eventually(t, func() bool { return h.fake.Inflight() == 0 }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestBulkFetchMergesPolicy(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.index.Replace([]*domain.ResourcePolicy{
		{ID: "web", DisplayName: "Web Server", Active: true, AllowDetailedStatus: true},
		{ID: "db", DisplayName: "Database", Active: true},
	}, nil)
	running := providertest.Resource{
		Attributes: domain.Attributes{Running: true, StartedAt: time.Now().Add(-5 * time.Minute)},
		Stats:      domain.Stats{CPUPercent: 12.345, MemoryUsedMB: 2048},
	}
	h.fake.Add("web", running)
	h.fake.Add("db", running)
	h.fake.Add("unlisted", providertest.Resource{Attributes: domain.Attributes{Name: "unlisted-container"}})

	results := h.orch.BulkFetch(context.Background(), []domain.ResourceID{"web", "db", "unlisted"})

	web := results["web"]
	assert.Equal(t, "Web Server", web.DisplayName)
	assert.True(t, web.DetailsAllowed)
	assert.Equal(t, "12.3%", web.CPU)
	assert.Equal(t, "2.00 GB", web.RAM)

	db := results["db"]
	assert.Equal(t, "Database", db.DisplayName)
	assert.False(t, db.DetailsAllowed)
	assert.Empty(t, db.CPU)
	assert.Empty(t, db.RAM)
	assert.Equal(t, 0, h.fake.StatsCalls("db"), "stats are not queried when details are hidden")

	assert.Equal(t, "unlisted-container", results["unlisted"].DisplayName)
	assert.Equal(t, domain.KindOffline, results["unlisted"].Kind)

	raw, ok := h.cache.GetRaw("web")
	require.True(t, ok)
	assert.True(t, raw.Payload.Running)
}

func TestSlowResourcesRunSequentiallyInInputOrder(t *testing.T) {
	h := newHarness(t, Config{PingTimeout: time.Second, MaxConcurrent: 4})

	var mu sync.Mutex
	var order []domain.ResourceID
	track := func(id domain.ResourceID) providertest.Resource {
		return providertest.Resource{LatencyFn: func(int) time.Duration {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return 5 * time.Millisecond
		}}
	}
	for _, id := range []domain.ResourceID{"s1", "s2", "s3", "f1"} {
		h.fake.Add(id, track(id))
	}
	for _, id := range []domain.ResourceID{"s1", "s2", "s3"} {
		h.profiles.Record(id, 2*time.Second, true)
	}
	h.profiles.Record("f1", 10*time.Millisecond, true)

	h.orch.BulkFetch(context.Background(), []domain.ResourceID{"s3", "f1", "s1", "s2"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.ResourceID{"f1", "s3", "s1", "s2"}, order)
}

func TestPlanUnknownPolicy(t *testing.T) {
	ids := []domain.ResourceID{"new", "slow", "fast"}

	for _, tt := range []struct {
		policy   UnknownPolicy
		wantFast []domain.ResourceID
		wantSlow []domain.ResourceID
	}{
		{UnknownAsFast, []domain.ResourceID{"new", "fast"}, []domain.ResourceID{"slow"}},
		{UnknownAsSlow, []domain.ResourceID{"fast"}, []domain.ResourceID{"new", "slow"}},
	} {
		t.Run(tt.policy.String(), func(t *testing.T) {
			h := newHarness(t, Config{Unknown: tt.policy})
			h.profiles.Record("slow", 2*time.Second, true)
			h.profiles.Record("fast", 10*time.Millisecond, true)

			fast, slow := h.orch.plan(ids)
			assert.Equal(t, tt.wantFast, fast)
			assert.Equal(t, tt.wantSlow, slow)
		})
	}
}

func TestStatusIsCacheFirst(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fake.Add("web", providertest.Resource{Attributes: domain.Attributes{Running: true}})

	first := h.orch.Status(context.Background(), "web")
	second := h.orch.Status(context.Background(), "web")

	assert.Equal(t, domain.KindSuccess, first.Payload.Kind)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, 1, h.fake.Calls("web"))
}

func TestStatusPersistentNotFoundDeactivates(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.index.Replace([]*domain.ResourcePolicy{{ID: "ghost", Active: true}}, nil)

	first := h.orch.Status(context.Background(), "ghost")
	assert.Equal(t, domain.ErrorNotFound, first.Payload.ErrorKind)

	h.cache.Invalidate("ghost")
	second := h.orch.Status(context.Background(), "ghost")
	assert.Equal(t, domain.ErrorNotFound, second.Payload.ErrorKind)

	assert.Empty(t, h.index.ActiveIDs(), "ghost is deactivated after the second miss")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0.5%", formatCPU(0.5))
	assert.Equal(t, "512.0 MB", formatMemory(512))
	assert.Equal(t, "1.50 GB", formatMemory(1536))
}

var _ provider.Pinger = (*providertest.Fake)(nil)
