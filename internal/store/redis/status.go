// Package redis mirrors formatted statuses to Redis for out-of-process
// consumers and persists the set of deactivated resources.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("not found in redis")

// StatusEntry is the mirrored form of a formatted cache entry
type StatusEntry = statuscache.Entry[domain.StatusResult]

// Store handles Redis operations for statuses and the inactive set
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Client exposes the underlying client for pub/sub publishers
func (s *Store) Client() *redis.Client {
	return s.client
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// remaining is the Redis expiry matching the entry's cache TTL
func remaining(e StatusEntry, now time.Time) time.Duration {
	return e.TTL - e.Age(now)
}

// SaveStatus stores one entry; it expires together with the cache entry
func (s *Store) SaveStatus(ctx context.Context, e StatusEntry) error {
	ttl := remaining(e, time.Now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := s.client.Set(ctx, StatusKey(e.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	if err := s.client.SAdd(ctx, AllStatusesKey(), string(e.ID)).Err(); err != nil {
		return fmt.Errorf("failed to add status to set: %w", err)
	}
	return nil
}

// SaveStatusesMany stores multiple entries in one pipeline
func (s *Store) SaveStatusesMany(ctx context.Context, entries []StatusEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	pipe := s.client.Pipeline()

	for _, e := range entries {
		ttl := remaining(e, now)
		if ttl <= 0 {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal status %s: %w", e.ID, err)
		}
		pipe.Set(ctx, StatusKey(e.ID), data, ttl)
		pipe.SAdd(ctx, AllStatusesKey(), string(e.ID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save statuses: %w", err)
	}
	return nil
}

// GetStatus retrieves a mirrored status by resource id
func (s *Store) GetStatus(ctx context.Context, id domain.ResourceID) (StatusEntry, error) {
	data, err := s.client.Get(ctx, StatusKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StatusEntry{}, fmt.Errorf("status %s: %w", id, ErrNotFound)
		}
		return StatusEntry{}, fmt.Errorf("failed to get status: %w", err)
	}

	var e StatusEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return StatusEntry{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return e, nil
}

// GetAllStatuses retrieves every mirrored status that has not expired.
// Expired ids are pruned from the set on the way.
func (s *Store) GetAllStatuses(ctx context.Context) ([]StatusEntry, error) {
	ids, err := s.client.SMembers(ctx, AllStatusesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get status ids: %w", err)
	}

	entries := make([]StatusEntry, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetStatus(ctx, domain.ResourceID(id))
		if errors.Is(err, ErrNotFound) {
			_ = s.client.SRem(ctx, AllStatusesKey(), id).Err()
			continue
		}
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DeleteStatus removes a mirrored status
func (s *Store) DeleteStatus(ctx context.Context, id domain.ResourceID) error {
	if err := s.client.Del(ctx, StatusKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	if err := s.client.SRem(ctx, AllStatusesKey(), string(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove status from set: %w", err)
	}
	return nil
}

// FlushStatuses removes every mirrored status
func (s *Store) FlushStatuses(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixStatus+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete status key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush statuses: %w", err)
	}
	if err := s.client.Del(ctx, AllStatusesKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete status set: %w", err)
	}
	return nil
}
