package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// newTestStore connects to the Redis named by DDC_TEST_REDIS_ADDR and skips
// the test otherwise. DB 15 is flushed before use.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("DDC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DDC_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("FlushDB: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client)
}

func TestStatusMirror(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fresh := StatusEntry{
		ID:        "web",
		Payload:   domain.Success("Web", true, "1.0%", "10.0 MB", time.Minute, true),
		Timestamp: time.Now(),
		TTL:       time.Minute,
	}
	expired := StatusEntry{ID: "old", Timestamp: time.Now().Add(-time.Hour), TTL: time.Minute}

	if err := s.SaveStatusesMany(ctx, []StatusEntry{fresh, expired}); err != nil {
		t.Fatalf("SaveStatusesMany() error = %v", err)
	}

	got, err := s.GetStatus(ctx, "web")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if got.Payload != fresh.Payload {
		t.Errorf("GetStatus() payload = %+v, want %+v", got.Payload, fresh.Payload)
	}
	if _, err := s.GetStatus(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entry should not be mirrored, err = %v", err)
	}

	all, err := s.GetAllStatuses(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAllStatuses() = %d entries, err %v", len(all), err)
	}

	if err := s.DeleteStatus(ctx, "web"); err != nil {
		t.Fatalf("DeleteStatus() error = %v", err)
	}
	if _, err := s.GetStatus(ctx, "web"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStatus() after delete err = %v", err)
	}
}

func TestInactiveSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddInactive(ctx, "ghost", "not found twice"); err != nil {
		t.Fatalf("AddInactive() error = %v", err)
	}
	inactive, err := s.GetInactive(ctx)
	if err != nil {
		t.Fatalf("GetInactive() error = %v", err)
	}
	if rec, ok := inactive["ghost"]; !ok || rec.Reason != "not found twice" {
		t.Errorf("GetInactive() = %+v", inactive)
	}

	if err := s.ClearInactive(ctx); err != nil {
		t.Fatalf("ClearInactive() error = %v", err)
	}
	inactive, _ = s.GetInactive(ctx)
	if len(inactive) != 0 {
		t.Errorf("ClearInactive() left %d entries", len(inactive))
	}
}
