package domain

import (
	"fmt"
	"time"
)

// Kind selects the active variant of a StatusResult.
type Kind int

const (
	KindError Kind = iota
	KindSuccess
	KindOffline
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindOffline:
		return "offline"
	default:
		return "error"
	}
}

// ErrorKind categorises why a status could not be determined. It is stored in
// the Error variant so the rendering side never re-derives the cause.
type ErrorKind string

const (
	ErrorTimeout           ErrorKind = "timeout"
	ErrorNotFound          ErrorKind = "not_found"
	ErrorPermission        ErrorKind = "permission"
	ErrorConnectionRefused ErrorKind = "connection_refused"
	ErrorDataFormat        ErrorKind = "data_format"
	ErrorConnectivity      ErrorKind = "connectivity"
	ErrorGeneric           ErrorKind = "generic"
)

// StatusResult is the single status representation handed to consumers.
//
// Exactly one variant is active, selected by Kind:
//   - KindSuccess: IsRunning, CPU, RAM, Uptime, DisplayName, DetailsAllowed
//   - KindOffline: DisplayName, DetailsAllowed
//   - KindError:   ErrorKind, Message
//
// Build values with Success, Offline or Failure; the zero value is an Error
// without a cause.
type StatusResult struct {
	Kind Kind `json:"kind"`

	IsRunning      bool          `json:"is_running,omitempty"`
	CPU            string        `json:"cpu,omitempty"`
	RAM            string        `json:"ram,omitempty"`
	Uptime         time.Duration `json:"uptime,omitempty"`
	DisplayName    string        `json:"display_name,omitempty"`
	DetailsAllowed bool          `json:"details_allowed,omitempty"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Success builds a determined status for a container the daemon answered for.
func Success(displayName string, running bool, cpu, ram string, uptime time.Duration, detailsAllowed bool) StatusResult {
	return StatusResult{
		Kind:           KindSuccess,
		IsRunning:      running,
		CPU:            cpu,
		RAM:            ram,
		Uptime:         uptime,
		DisplayName:    displayName,
		DetailsAllowed: detailsAllowed,
	}
}

// Offline builds a determined status for a stopped container.
func Offline(displayName string, detailsAllowed bool) StatusResult {
	return StatusResult{
		Kind:           KindOffline,
		DisplayName:    displayName,
		DetailsAllowed: detailsAllowed,
	}
}

// Failure builds an Error status.
func Failure(kind ErrorKind, message string) StatusResult {
	if kind == "" {
		kind = ErrorGeneric
	}
	return StatusResult{
		Kind:      KindError,
		ErrorKind: kind,
		Message:   message,
	}
}

// IsDetermined reports whether the daemon gave a definitive answer
// (Success or Offline).
func (r StatusResult) IsDetermined() bool {
	return r.Kind == KindSuccess || r.Kind == KindOffline
}

// IsError reports whether r is the Error variant.
func (r StatusResult) IsError() bool { return r.Kind == KindError }

// Running reports whether the container was observed running.
func (r StatusResult) Running() bool { return r.Kind == KindSuccess && r.IsRunning }

func (r StatusResult) String() string {
	switch r.Kind {
	case KindSuccess:
		return fmt.Sprintf("%s: running=%t cpu=%s ram=%s uptime=%s", r.DisplayName, r.IsRunning, r.CPU, r.RAM, r.Uptime)
	case KindOffline:
		return fmt.Sprintf("%s: offline", r.DisplayName)
	default:
		return fmt.Sprintf("error(%s): %s", r.ErrorKind, r.Message)
	}
}

// LegacyTuple is the positional shape older consumers expect:
// (display_name, is_running, cpu, ram, uptime, details_allowed).
// Error results map to a stopped resource with empty details.
type LegacyTuple struct {
	DisplayName    string
	IsRunning      bool
	CPU            string
	RAM            string
	Uptime         string
	DetailsAllowed bool
}

// Legacy adapts r for the legacy boundary. It is the only conversion out of
// StatusResult; nothing inside the engine uses the tuple form.
func (r StatusResult) Legacy(fallbackName string) LegacyTuple {
	switch r.Kind {
	case KindSuccess:
		return LegacyTuple{
			DisplayName:    r.DisplayName,
			IsRunning:      r.IsRunning,
			CPU:            r.CPU,
			RAM:            r.RAM,
			Uptime:         FormatUptime(r.Uptime),
			DetailsAllowed: r.DetailsAllowed,
		}
	case KindOffline:
		return LegacyTuple{DisplayName: r.DisplayName, DetailsAllowed: r.DetailsAllowed}
	default:
		return LegacyTuple{DisplayName: fallbackName}
	}
}

// FormatUptime renders d as "3d 4h 5m", "4h 5m" or "5m".
func FormatUptime(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
