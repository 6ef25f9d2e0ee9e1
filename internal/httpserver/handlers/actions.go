package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
)

const defaultActionTimeout = 30 * time.Second

type actionResponse struct {
	ID       domain.ResourceID `json:"id"`
	Action   string            `json:"action"`
	Pending  bool              `json:"pending"`
	IssuedAt time.Time         `json:"issued_at"`
}

// Action starts, stops or restarts a resource. On success the resource shows
// as pending and its cached status is dropped so the next read refetches.
func Action(d deps.Deps) http.HandlerFunc {
	timeout := d.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.ResourceID(chi.URLParam(r, "id"))
		action := chi.URLParam(r, "action")

		switch action {
		case provider.ActionStart, provider.ActionStop, provider.ActionRestart:
		default:
			writeJSONError(w, http.StatusBadRequest, "unsupported action")
			return
		}
		if _, ok := d.Policies.Lookup(id); !ok {
			writeJSONError(w, http.StatusNotFound, "unknown resource")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := provider.Apply(ctx, d.Controller, id, action); err != nil {
			d.Logger.Warn("resource action failed",
				logger.Resource(string(id)),
				logger.String("action", action),
				logger.Error(err))
			writeJSONError(w, actionStatus(err), err.Error())
			return
		}

		a := d.Pending.Mark(id, action)
		d.Cache.Invalidate(id)
		d.Fetcher.Reset(id)

		d.Logger.Info("resource action issued",
			logger.Resource(string(id)),
			logger.String("action", action),
			logger.String("remote_ip", r.RemoteAddr))

		writeJSON(w, http.StatusAccepted, actionResponse{
			ID:       id,
			Action:   action,
			Pending:  true,
			IssuedAt: a.IssuedAt,
		})
	}
}

func actionStatus(err error) int {
	if errors.Is(err, provider.ErrUnsupported) {
		return http.StatusBadRequest
	}
	switch provider.Classify(err) {
	case domain.ErrorNotFound:
		return http.StatusNotFound
	case domain.ErrorPermission:
		return http.StatusForbidden
	case domain.ErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
