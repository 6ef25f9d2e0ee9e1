package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/handlers"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/mw"
)

func init() { Register(registerResources) }

func registerResources(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.ActionBurst,
		RefillPerIPPerMin: d.ActionPerMinute,
		MaxEntries:        1024,
		TrustProxy:        d.TrustProxy,
	})
	guarded(r, d).With(limit).Post("/api/resources/{id}/{action}", handlers.Action(d))
}
