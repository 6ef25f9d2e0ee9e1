package scheduler

import (
	"context"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	redisstore "github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/store/redis"
)

// InactiveSource lists resources deactivated by an earlier run.
type InactiveSource interface {
	GetInactive(ctx context.Context) (map[domain.ResourceID]redisstore.InactiveRecord, error)
}

// RedisSyncer restores runtime deactivations into the policy index on startup
type RedisSyncer struct {
	store  InactiveSource
	index  *policy.Index
	logger logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store InactiveSource,
	idx *policy.Index,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Sync applies the persisted inactive set to the index. Ids the policy file
// no longer lists are ignored.
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing inactive resources from redis")

	records, err := rs.store.GetInactive(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		rs.logger.Info("no inactive resources found in redis")
		return nil
	}

	applied := 0
	for id, rec := range records {
		if rs.index.DeactivateSince(id, rec.Since) {
			applied++
		}
	}

	rs.logger.Info("synced inactive resources from redis",
		logger.Int("stored", len(records)),
		logger.Int("applied", applied))

	return nil
}
