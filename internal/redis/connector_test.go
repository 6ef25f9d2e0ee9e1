package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
)

type scriptedPinger struct {
	failures int
	calls    int
}

func (p *scriptedPinger) Ping(ctx context.Context) *redis.StatusCmd {
	p.calls++
	if p.calls <= p.failures {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	return redis.NewStatusResult("PONG", nil)
}

func testOptions() Options {
	return Options{
		Addr:           "localhost:6379",
		ConnectTimeout: time.Second,
		RetryInterval:  5 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestWaitReadyRetries(t *testing.T) {
	p := &scriptedPinger{failures: 3}
	if err := waitReady(context.Background(), p, testOptions(), logger.NewNop()); err != nil {
		t.Fatalf("waitReady() error = %v", err)
	}
	if p.calls != 4 {
		t.Errorf("pinged %d times, want 4", p.calls)
	}
}

func TestWaitReadyTimesOut(t *testing.T) {
	opts := testOptions()
	opts.ConnectTimeout = 30 * time.Millisecond
	p := &scriptedPinger{failures: 1 << 30}

	err := waitReady(context.Background(), p, opts, logger.NewNop())
	if err == nil {
		t.Fatal("waitReady() should fail when redis never answers")
	}
}

func TestNextWaitCaps(t *testing.T) {
	if got := nextWait(4*time.Second, 10*time.Second); got != 8*time.Second {
		t.Errorf("nextWait() = %v, want 8s", got)
	}
	if got := nextWait(8*time.Second, 10*time.Second); got != 10*time.Second {
		t.Errorf("nextWait() = %v, want 10s", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := testOptions().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	bad := testOptions()
	bad.Addr = ""
	bad.PingTimeout = 0
	if err := bad.Validate(); err == nil {
		t.Error("Validate() should reject empty addr and zero ping timeout")
	}
}
