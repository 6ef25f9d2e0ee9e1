// Package provider defines the control-plane contract the status engine polls,
// the error taxonomy shared by every layer above it, and a Docker Engine
// implementation.
package provider

import (
	"context"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// StatusReader answers the two sub-queries a status fetch is made of.
type StatusReader interface {
	// Attributes returns the container's identity and state.
	Attributes(ctx context.Context, id domain.ResourceID) (domain.Attributes, error)
	// Stats returns CPU and memory usage. It may be slow (seconds) because the
	// daemon samples twice to compute CPU deltas.
	Stats(ctx context.Context, id domain.ResourceID) (domain.Stats, error)
}

// Pinger is the lightweight reachability probe used before bulk fetches.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller changes container state. The status engine only calls it from
// the dashboard action endpoint; calendar-driven actions live elsewhere.
type Controller interface {
	Start(ctx context.Context, id domain.ResourceID) error
	Stop(ctx context.Context, id domain.ResourceID) error
	Restart(ctx context.Context, id domain.ResourceID) error
}

// ControlPlane is everything the daemon client offers.
type ControlPlane interface {
	StatusReader
	Pinger
	Controller
}

// Action names accepted by Apply.
const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionRestart = "restart"
)

// Apply dispatches a named action to c.
func Apply(ctx context.Context, c Controller, id domain.ResourceID, action string) error {
	switch action {
	case ActionStart:
		return c.Start(ctx, id)
	case ActionStop:
		return c.Stop(ctx, id)
	case ActionRestart:
		return c.Restart(ctx, id)
	default:
		return &Error{Op: action, ID: id, Kind: ErrUnsupported}
	}
}
