package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/pending"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

type staticSubs []domain.Subscription

func (s staticSubs) Subscriptions() []domain.Subscription { return s }

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func setup() (*statuscache.Cache, *conditional.Cache, *recordingPublisher, *pending.Tracker, *Cycle) {
	cache := statuscache.New(statuscache.DefaultConfig(), nil, nil)
	dedup := conditional.New(conditional.DefaultConfig())
	pub := &recordingPublisher{}
	tracker := pending.NewTracker(time.Minute)
	subs := staticSubs{
		{ChannelID: "1", Resources: []domain.ResourceID{"web", "db"}},
		{ChannelID: "2", Resources: []domain.ResourceID{"web"}},
	}
	return cache, dedup, pub, tracker, NewCycle(subs, cache, tracker, nil, dedup, pub, logger.NewNop())
}

func TestCyclePublishesOnlyChanges(t *testing.T) {
	cache, dedup, pub, _, cycle := setup()
	cache.SetFormatted("web", domain.Success("Web", true, "1.0%", "10.0 MB", time.Hour, true), time.Time{})

	rep := cycle.Run(context.Background())
	assert.Equal(t, Report{Sent: 2, Missing: 1}, rep)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "Web", pub.msgs[0].Content.Title)

	rep = cycle.Run(context.Background())
	assert.Equal(t, Report{Skipped: 2, Missing: 1}, rep)

	cache.SetFormatted("web", domain.Offline("Web", true), time.Time{})
	rep = cycle.Run(context.Background())
	assert.Equal(t, 2, rep.Sent)
	assert.Equal(t, uint64(4), dedup.Statistics().Sent)
	assert.Equal(t, uint64(2), dedup.Statistics().Skipped)
}

func TestCycleFailedPublishIsRetried(t *testing.T) {
	cache, _, pub, _, cycle := setup()
	cache.SetFormatted("db", domain.Offline("DB", false), time.Time{})

	pub.err = errors.New("redis down")
	rep := cycle.Run(context.Background())
	assert.Equal(t, 1, rep.Failed)

	pub.err = nil
	rep = cycle.Run(context.Background())
	assert.Equal(t, 1, rep.Sent, "baseline was not committed on failure")
}

func TestCyclePendingOverride(t *testing.T) {
	cache, _, pub, tracker, cycle := setup()
	cache.SetFormatted("db", domain.Offline("DB", false), time.Time{})
	tracker.Mark("db", provider.ActionStart)

	cycle.Run(context.Background())
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "pending start", pub.msgs[0].Content.Fields[0].Value)

	cache.SetFormatted("db", domain.Success("DB", true, "", "", time.Second, false), time.Time{})
	cycle.Run(context.Background())
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "running", pub.msgs[1].Content.Fields[0].Value)
	_, still := tracker.Get("db")
	assert.False(t, still)
}

func TestPlainRenderer(t *testing.T) {
	r := PlainRenderer{}

	ok := r.Render(View{ID: "web", Result: domain.Success("", true, "", "", 90*time.Minute, true)})
	assert.Equal(t, "web", ok.Title)
	assert.Equal(t, colorRunning, ok.Color)
	require.Len(t, ok.Fields, 4)
	assert.Equal(t, "-", ok.Fields[1].Value)
	assert.Equal(t, "1h 30m", ok.Fields[3].Value)

	hidden := r.Render(View{ID: "web", Result: domain.Success("Web", true, "1%", "1 MB", time.Hour, false)})
	assert.Len(t, hidden.Fields, 1)

	failed := r.Render(View{ID: "web", Result: domain.Failure(domain.ErrorConnectionRefused, "x"), Stale: true})
	assert.Equal(t, colorError, failed.Color)
	assert.Equal(t, "status unavailable: connection refused", failed.Description)
	assert.Equal(t, "data may be outdated", failed.Footer)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(logger.NewNop())
	assert.NoError(t, p.Publish(context.Background(), Message{ChannelID: "1", ResourceID: "web"}))
}
