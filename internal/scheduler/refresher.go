package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/publish"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
	redisstore "github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/store/redis"
)

// BulkFetcher is the part of the orchestrator the refresher drives.
type BulkFetcher interface {
	BulkFetch(ctx context.Context, ids []domain.ResourceID) map[domain.ResourceID]domain.StatusResult
}

// Refresher periodically bulk-fetches every active resource, mirrors the
// formatted snapshots to Redis and runs the publish cycle.
type Refresher struct {
	fetcher       BulkFetcher
	loader        *policy.Loader
	index         *policy.Index
	cache         *statuscache.Cache
	store         *redisstore.Store
	cycle         *publish.Cycle
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRefresher creates a refresher. interval <= 0 disables the periodic
// refresh; manual triggers still work. store and cycle may be nil.
func NewRefresher(
	fetcher BulkFetcher,
	loader *policy.Loader,
	idx *policy.Index,
	cache *statuscache.Cache,
	store *redisstore.Store,
	cycle *publish.Cycle,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Refresher {
	return &Refresher{
		fetcher:       fetcher,
		loader:        loader,
		index:         idx,
		cache:         cache,
		store:         store,
		cycle:         cycle,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs one refresh immediately, then loops until Stop or ctx is done.
func (r *Refresher) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh failed: %w", err)
	}

	var tick <-chan time.Time
	var ticker *time.Ticker
	if r.interval > 0 {
		ticker = time.NewTicker(r.interval)
		tick = ticker.C
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Error("failed to refresh statuses", logger.Error(err))
				}
			case <-r.manualTrigger:
				r.logger.Info("manual reload triggered")
				if err := r.Reload(ctx); err != nil {
					r.logger.Error("failed to reload policy", logger.Error(err))
					continue
				}
				if err := r.Refresh(ctx); err != nil {
					r.logger.Error("failed to refresh statuses", logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the loop.
func (r *Refresher) Stop() {
	close(r.stopCh)
}

// Reload re-reads the policy file. Resources deactivated at runtime become
// active again when the file still lists them, so the persisted inactive set
// is cleared as well.
func (r *Refresher) Reload(ctx context.Context) error {
	if r.loader == nil {
		return nil
	}
	if err := policy.LoadIndex(r.loader, r.index); err != nil {
		return err
	}
	r.logger.Info("policy reloaded",
		logger.String("file", r.loader.Path()),
		logger.Int("count", r.index.Count()))

	if r.store != nil {
		if err := r.store.ClearInactive(ctx); err != nil {
			r.logger.Warn("failed to clear inactive set in redis", logger.Error(err))
		}
	}
	return nil
}

// Refresh bulk-fetches all active resources, then mirrors and publishes.
// Only a cancelled context is reported as an error; per-resource failures
// are cached results.
func (r *Refresher) Refresh(ctx context.Context) error {
	ids := r.index.ActiveIDs()
	if len(ids) == 0 {
		r.logger.Debug("no active resources to refresh")
		return nil
	}

	results := r.fetcher.BulkFetch(ctx, ids)
	if err := ctx.Err(); err != nil {
		return err
	}

	determined := 0
	for _, res := range results {
		if res.IsDetermined() {
			determined++
		}
	}
	r.logger.Debug("statuses refreshed",
		logger.Int("count", len(results)),
		logger.Int("determined", determined))

	if r.store != nil {
		// Redis is a mirror; the in-memory cache stays authoritative.
		if err := r.store.SaveStatusesMany(ctx, r.cache.Formatted()); err != nil {
			r.logger.Warn("failed to mirror statuses to redis", logger.Error(err))
		}
	}

	if r.cycle != nil {
		r.cycle.Run(ctx)
	}
	return nil
}
