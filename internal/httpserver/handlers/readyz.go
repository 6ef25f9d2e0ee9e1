package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
)

type componentStatus struct {
	OK    bool   `json:"ok"`
	Mode  string `json:"mode,omitempty"`
	Error string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz is ready when the daemon answers a ping. Redis is reported but never
// blocks readiness; without it the engine runs from memory.
func Readyz(d deps.Deps) http.HandlerFunc {
	timeout := d.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		daemon := componentStatus{OK: true}
		if err := d.Pinger.Ping(ctx); err != nil {
			daemon = componentStatus{OK: false, Error: err.Error()}
		}

		resp := readyzResponse{
			Ready: daemon.OK,
			Components: map[string]componentStatus{
				"daemon": daemon,
				"redis":  checkRedis(ctx, d),
			},
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: false, Mode: "memory-only", Error: "disabled"}
	}
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "memory-only", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: "mirrored"}
}
