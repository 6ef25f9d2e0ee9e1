package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/handlers"
)

func init() { Register(registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	g := guarded(r, d)
	g.Post("/api/reload", handlers.Reload(d))
	g.Get("/api/stats", handlers.Stats(d))
}
