package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/handlers"
)

func init() { Register(registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	g := guarded(r, d)
	g.Get("/api/status", handlers.StatusList(d))
	g.Get("/api/status/{id}", handlers.Status(d))
	g.Post("/api/status/{id}/refresh", handlers.RefreshStatus(d))
}
