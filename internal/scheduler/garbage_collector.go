package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
	redisstore "github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/store/redis"
)

const (
	// DefaultGCThreshold is how long a resource stays inactive before its
	// runtime state is dropped.
	DefaultGCThreshold = 24 * time.Hour
)

// Resetter forgets per-resource fetch state. *fetch.Service implements it.
type Resetter interface {
	Reset(id domain.ResourceID)
}

// GarbageCollector drops profiles, cache entries and publish baselines of
// resources that have been inactive for longer than the threshold. The policy
// entry itself stays so a reload can bring the resource back.
type GarbageCollector struct {
	index     *policy.Index
	profiles  *profile.Store
	cache     *statuscache.Cache
	dedup     *conditional.Cache
	fetcher   Resetter
	store     *redisstore.Store
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	stopCh    chan struct{}
	now       func() time.Time

	mu        sync.Mutex
	collected map[domain.ResourceID]struct{}
}

// NewGarbageCollector creates a new garbage collector. fetcher, dedup and
// store may be nil.
func NewGarbageCollector(
	idx *policy.Index,
	profiles *profile.Store,
	cache *statuscache.Cache,
	dedup *conditional.Cache,
	fetcher Resetter,
	store *redisstore.Store,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}
	if interval <= 0 {
		interval = time.Hour
	}

	return &GarbageCollector{
		index:     idx,
		profiles:  profiles,
		cache:     cache,
		dedup:     dedup,
		fetcher:   fetcher,
		store:     store,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		stopCh:    make(chan struct{}),
		now:       time.Now,
		collected: make(map[domain.ResourceID]struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect runs one pass. Each inactive resource is collected once; it becomes
// eligible again after it was reactivated.
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	gc.logger.Debug("running garbage collection for inactive resources")

	now := gc.now()
	inactive := gc.index.Inactive()

	gc.mu.Lock()
	defer gc.mu.Unlock()

	still := make(map[domain.ResourceID]struct{}, len(inactive))
	for _, p := range inactive {
		still[p.ID] = struct{}{}
	}
	for id := range gc.collected {
		if _, ok := still[id]; !ok {
			delete(gc.collected, id)
		}
	}

	deleted := 0
	for _, p := range inactive {
		if _, done := gc.collected[p.ID]; done {
			continue
		}
		if p.UpdatedAt.IsZero() {
			continue
		}
		inactiveFor := now.Sub(p.UpdatedAt)
		if inactiveFor < gc.threshold {
			continue
		}

		gc.forget(ctx, p.ID)
		gc.collected[p.ID] = struct{}{}

		gc.logger.Info("garbage collected inactive resource",
			logger.Resource(string(p.ID)),
			logger.String("inactive_for", inactiveFor.String()))
		deleted++
	}

	if deleted > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("resources_collected", deleted))
	} else {
		gc.logger.Debug("no resources to garbage collect")
	}

	return nil
}

func (gc *GarbageCollector) forget(ctx context.Context, id domain.ResourceID) {
	gc.profiles.Forget(id)
	gc.cache.Forget(id)
	if gc.dedup != nil {
		gc.dedup.Forget(id)
	}
	if gc.fetcher != nil {
		gc.fetcher.Reset(id)
	}

	// Best effort
	if gc.store != nil {
		if err := gc.store.DeleteStatus(ctx, id); err != nil {
			gc.logger.Warn("failed to delete status from redis",
				logger.Resource(string(id)),
				logger.Error(err))
		}
	}
}
