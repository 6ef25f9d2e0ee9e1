package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/utils"
)

const (
	// DefaultDockerHost is the local daemon socket.
	DefaultDockerHost = "unix:///var/run/docker.sock"

	// Pinned so request paths do not depend on version negotiation.
	dockerAPIVersion = "1.41"
)

// Docker talks to the Docker Engine through the official client. Deadlines
// come from the caller's context only; the client sets no timeout of its own
// so the emergency fetch can run unbounded.
type Docker struct {
	api *client.Client
}

// NewDocker builds a client for host, e.g. "unix:///var/run/docker.sock" or
// "tcp://host:2375".
func NewDocker(host string) (*Docker, error) {
	if host == "" {
		host = DefaultDockerHost
	}
	api, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithVersion(dockerAPIVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid docker host %q: %w", host, err)
	}
	return &Docker{api: api}, nil
}

// Host returns the daemon address the client dials.
func (d *Docker) Host() string { return d.api.DaemonHost() }

// Close releases idle connections.
func (d *Docker) Close() error { return d.api.Close() }

type cpuStats struct {
	CPUUsage struct {
		TotalUsage  uint64   `json:"total_usage"`
		PercpuUsage []uint64 `json:"percpu_usage"`
	} `json:"cpu_usage"`
	SystemUsage uint64 `json:"system_cpu_usage"`
	OnlineCPUs  uint32 `json:"online_cpus"`
}

// statsResponse is the subset of the stats payload we read.
type statsResponse struct {
	CPUStats    cpuStats `json:"cpu_stats"`
	PreCPUStats cpuStats `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64            `json:"usage"`
		Limit uint64            `json:"limit"`
		Stats map[string]uint64 `json:"stats"`
	} `json:"memory_stats"`
}

// Attributes implements StatusReader.
func (d *Docker) Attributes(ctx context.Context, id domain.ResourceID) (domain.Attributes, error) {
	info, err := d.api.ContainerInspect(ctx, string(id))
	if err != nil {
		return domain.Attributes{}, apiError(ctx, "attributes", id, err)
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return domain.Attributes{}, &Error{Op: "attributes", ID: id, Kind: ErrDataFormat, Err: errors.New("inspect response without state")}
	}

	attrs := domain.Attributes{
		ID:        id,
		Name:      strings.TrimPrefix(info.Name, "/"),
		Running:   info.State.Running,
		Status:    string(info.State.Status),
		FetchedAt: time.Now(),
	}
	if info.Config != nil {
		attrs.Image = info.Config.Image
	}
	if info.State.StartedAt != "" {
		started, err := time.Parse(time.RFC3339Nano, info.State.StartedAt)
		if err != nil {
			return domain.Attributes{}, &Error{Op: "attributes", ID: id, Kind: ErrDataFormat, Err: err}
		}
		attrs.StartedAt = started
	}
	return attrs, nil
}

// Stats implements StatusReader. It asks for a single non-streamed sample so
// the daemon fills in precpu_stats.
func (d *Docker) Stats(ctx context.Context, id domain.ResourceID) (domain.Stats, error) {
	resp, err := d.api.ContainerStats(ctx, string(id), false)
	if err != nil {
		return domain.Stats{}, apiError(ctx, "stats", id, err)
	}
	defer utils.DrainClose(resp.Body)

	var body statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Stats{}, apiError(ctx, "stats", id, err)
	}
	return computeStats(body), nil
}

// Ping implements Pinger.
func (d *Docker) Ping(ctx context.Context) error {
	if _, err := d.api.Ping(ctx); err != nil {
		return &Error{Op: "ping", Kind: ErrConnectivity, Err: err}
	}
	return nil
}

// Start, Stop and Restart treat "already in that state" (304) as success.
func (d *Docker) Start(ctx context.Context, id domain.ResourceID) error {
	if err := d.api.ContainerStart(ctx, string(id), container.StartOptions{}); err != nil {
		return apiError(ctx, ActionStart, id, err)
	}
	return nil
}

func (d *Docker) Stop(ctx context.Context, id domain.ResourceID) error {
	if err := d.api.ContainerStop(ctx, string(id), container.StopOptions{}); err != nil {
		return apiError(ctx, ActionStop, id, err)
	}
	return nil
}

func (d *Docker) Restart(ctx context.Context, id domain.ResourceID) error {
	if err := d.api.ContainerRestart(ctx, string(id), container.StopOptions{}); err != nil {
		return apiError(ctx, ActionRestart, id, err)
	}
	return nil
}

// apiError maps a client failure to a typed *Error. The client already turns
// daemon status codes into errdefs classes.
func apiError(ctx context.Context, op string, id domain.ResourceID, err error) error {
	var kind error
	switch {
	case errdefs.IsNotFound(err):
		kind = ErrNotFound
	case errdefs.IsUnauthorized(err), errdefs.IsForbidden(err):
		kind = ErrPermission
	case errdefs.IsDeadline(err):
		kind = ErrTimeout
	case client.IsErrConnectionFailed(err):
		kind = ErrConnectionRefused
	case isDecodeError(err):
		if ctx.Err() != nil {
			// A body cut short by the deadline is not a format problem.
			return classifyTransport(op, id, ctx.Err())
		}
		kind = ErrDataFormat
	default:
		return classifyTransport(op, id, err)
	}
	return &Error{Op: op, ID: id, Kind: kind, Err: err}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// computeStats applies the docker CLI formulas: CPU percent from the delta
// between the two samples scaled by online CPUs, memory excluding page cache.
func computeStats(s statsResponse) domain.Stats {
	var out domain.Stats

	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(s.CPUStats.SystemUsage) - float64(s.PreCPUStats.SystemUsage)
	online := float64(s.CPUStats.OnlineCPUs)
	if online == 0 {
		online = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
	}
	if online == 0 {
		online = 1
	}
	if cpuDelta > 0 && sysDelta > 0 {
		out.CPUPercent = cpuDelta / sysDelta * online * 100
	}

	used := s.MemoryStats.Usage
	// cgroup v2 reports inactive_file, v1 reports cache
	if v, ok := s.MemoryStats.Stats["inactive_file"]; ok && v < used {
		used -= v
	} else if v, ok := s.MemoryStats.Stats["cache"]; ok && v < used {
		used -= v
	}
	out.MemoryUsedMB = float64(used) / (1024 * 1024)
	out.MemoryLimitMB = float64(s.MemoryStats.Limit) / (1024 * 1024)
	return out
}

// compile-time check
var _ ControlPlane = (*Docker)(nil)
