// Package publish renders cached statuses per subscribed channel and sends
// only what changed since the last accepted publish.
package publish

import (
	"context"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/metrics"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/pending"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

// Subscriptions lists channel bindings. *policy.Index implements it.
type Subscriptions interface {
	Subscriptions() []domain.Subscription
}

// Report summarises one cycle.
type Report struct {
	Sent    int
	Skipped int
	Failed  int
	Missing int
}

// Cycle wires the publish pipeline.
type Cycle struct {
	subs      Subscriptions
	cache     *statuscache.Cache
	pending   *pending.Tracker
	renderer  Renderer
	dedup     *conditional.Cache
	publisher Publisher
	log       logger.Logger
}

// NewCycle builds a cycle. renderer nil selects PlainRenderer; tracker may be nil.
func NewCycle(subs Subscriptions, cache *statuscache.Cache, tracker *pending.Tracker, renderer Renderer, dedup *conditional.Cache, publisher Publisher, log logger.Logger) *Cycle {
	if renderer == nil {
		renderer = PlainRenderer{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Cycle{
		subs:      subs,
		cache:     cache,
		pending:   tracker,
		renderer:  renderer,
		dedup:     dedup,
		publisher: publisher,
		log:       log,
	}
}

// Run publishes changed content for every subscribed resource. A failed
// publish leaves the baseline untouched so the next cycle retries it.
func (c *Cycle) Run(ctx context.Context) Report {
	var rep Report
	rawTTL := c.cache.Config().RawTTL

	for _, sub := range c.subs.Subscriptions() {
		for _, id := range sub.Resources {
			if ctx.Err() != nil {
				return rep
			}

			entry, ok := c.cache.GetFormatted(id)
			if !ok {
				rep.Missing++
				continue
			}

			view := View{ID: id, Result: entry.Payload, Stale: entry.Stale(c.cache.Now(), rawTTL)}
			if c.pending != nil && c.pending.Observe(id, entry.Payload) {
				if a, ok := c.pending.Get(id); ok {
					view.Pending = &a
				}
			}

			content := c.renderer.Render(view)
			key := conditional.Key{ChannelID: sub.ChannelID, ResourceID: id}
			if !c.dedup.HasChanged(key, content) {
				c.dedup.Skip()
				rep.Skipped++
				metrics.Publish("skipped")
				continue
			}

			msg := Message{ChannelID: sub.ChannelID, ResourceID: id, Content: content, RenderedAt: time.Now()}
			if err := c.publisher.Publish(ctx, msg); err != nil {
				rep.Failed++
				metrics.Publish("failed")
				c.log.Warn("failed to publish status",
					logger.String("channel_id", sub.ChannelID),
					logger.Resource(string(id)),
					logger.Error(err))
				continue
			}
			c.dedup.Commit(key, content)
			rep.Sent++
			metrics.Publish("sent")
		}
	}

	if rep.Sent > 0 || rep.Failed > 0 {
		c.log.Info("publish cycle done",
			logger.Int("sent", rep.Sent),
			logger.Int("skipped", rep.Skipped),
			logger.Int("failed", rep.Failed))
	}
	return rep
}
