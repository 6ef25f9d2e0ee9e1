package provider

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

// Sentinel causes. Wrap them in *Error so callers can match with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrTimeout           = errors.New("timed out")
	ErrPermission        = errors.New("permission denied")
	ErrConnectionRefused = errors.New("connection refused")
	ErrConnectivity      = errors.New("control plane unreachable")
	ErrDataFormat        = errors.New("malformed payload")
	ErrUnsupported       = errors.New("unsupported operation")
)

// Error is a typed failure from the control plane.
type Error struct {
	Op   string // "attributes", "stats", "ping", "start", ...
	ID   domain.ResourceID
	Kind error // one of the sentinels above
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + string(e.ID)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Classify maps any error returned by a ControlPlane (or by the context it
// ran under) to the ErrorKind stored in cached Error results.
func Classify(err error) domain.ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return domain.ErrorNotFound
	case errors.Is(err, ErrConnectivity):
		return domain.ErrorConnectivity
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorTimeout
	case errors.Is(err, ErrPermission), errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EACCES):
		return domain.ErrorPermission
	case errors.Is(err, ErrConnectionRefused), errors.Is(err, syscall.ECONNREFUSED):
		return domain.ErrorConnectionRefused
	case errors.Is(err, ErrDataFormat):
		return domain.ErrorDataFormat
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrorTimeout
	}
	return domain.ErrorGeneric
}

// IsTransient reports whether retrying the same call may succeed. Only
// timeouts qualify; everything else is surfaced on first sight.
func IsTransient(err error) bool {
	return Classify(err) == domain.ErrorTimeout
}

// IsNotFound reports whether err says the resource is gone.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// classifyTransport turns a raw transport failure into a typed *Error.
func classifyTransport(op string, id domain.ResourceID, err error) error {
	var kind error
	switch Classify(err) {
	case domain.ErrorTimeout:
		kind = ErrTimeout
	case domain.ErrorPermission:
		kind = ErrPermission
	case domain.ErrorConnectionRefused:
		kind = ErrConnectionRefused
	}
	if kind == nil && errors.Is(err, syscall.ENOENT) {
		// Missing unix socket: the daemon is not there at all.
		kind = ErrConnectionRefused
	}
	return &Error{Op: op, ID: id, Kind: kind, Err: err}
}
