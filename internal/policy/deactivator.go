package policy

import (
	"context"
	"fmt"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
)

// InactiveStore persists deactivated ids across restarts.
type InactiveStore interface {
	AddInactive(ctx context.Context, id domain.ResourceID, reason string) error
}

// Deactivator takes resources out of polling: it flips the index entry and
// records the id in the store when one is configured.
type Deactivator struct {
	index *Index
	store InactiveStore
	log   logger.Logger
}

// NewDeactivator wires a deactivator. store may be nil.
func NewDeactivator(index *Index, store InactiveStore, log logger.Logger) *Deactivator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Deactivator{index: index, store: store, log: log}
}

func (d *Deactivator) Deactivate(ctx context.Context, id domain.ResourceID, reason string) error {
	if d.index.Deactivate(id) {
		d.log.Info("resource deactivated", logger.Resource(string(id)), logger.String("reason", reason))
	}
	if d.store == nil {
		return nil
	}
	if err := d.store.AddInactive(ctx, id, reason); err != nil {
		return fmt.Errorf("failed to persist inactive resource %s: %w", id, err)
	}
	return nil
}
