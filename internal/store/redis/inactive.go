package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// InactiveRecord explains why a resource was deactivated
type InactiveRecord struct {
	Reason string    `json:"reason"`
	Since  time.Time `json:"since"`
}

// AddInactive records id as deactivated
func (s *Store) AddInactive(ctx context.Context, id domain.ResourceID, reason string) error {
	data, err := json.Marshal(InactiveRecord{Reason: reason, Since: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal inactive record: %w", err)
	}
	if err := s.client.HSet(ctx, InactiveKey(), string(id), data).Err(); err != nil {
		return fmt.Errorf("failed to add inactive resource: %w", err)
	}
	return nil
}

// GetInactive returns every deactivated resource. Unreadable records are
// kept with an empty reason.
func (s *Store) GetInactive(ctx context.Context) (map[domain.ResourceID]InactiveRecord, error) {
	raw, err := s.client.HGetAll(ctx, InactiveKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get inactive resources: %w", err)
	}

	out := make(map[domain.ResourceID]InactiveRecord, len(raw))
	for id, data := range raw {
		var rec InactiveRecord
		_ = json.Unmarshal([]byte(data), &rec)
		out[domain.ResourceID(id)] = rec
	}
	return out, nil
}

// RemoveInactive forgets that id was deactivated
func (s *Store) RemoveInactive(ctx context.Context, id domain.ResourceID) error {
	if err := s.client.HDel(ctx, InactiveKey(), string(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove inactive resource: %w", err)
	}
	return nil
}

// ClearInactive drops the whole inactive set
func (s *Store) ClearInactive(ctx context.Context) error {
	if err := s.client.Del(ctx, InactiveKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear inactive resources: %w", err)
	}
	return nil
}
