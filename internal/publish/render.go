package publish

import (
	"strings"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/pending"
)

const (
	colorRunning = 0x2ecc71
	colorStopped = 0xe74c3c
	colorError   = 0x95a5a6
	colorPending = 0xf1c40f
)

// View is what a renderer gets for one resource.
type View struct {
	ID      domain.ResourceID
	Result  domain.StatusResult
	Stale   bool
	Pending *pending.Action
}

// Renderer turns a view into publishable content.
type Renderer interface {
	Render(v View) conditional.Content
}

// PlainRenderer produces a compact, time-independent card so identical states
// render identically.
type PlainRenderer struct{}

func (PlainRenderer) Render(v View) conditional.Content {
	r := v.Result
	title := r.DisplayName
	if title == "" {
		title = string(v.ID)
	}
	c := conditional.Content{Title: title}

	switch {
	case v.Pending != nil:
		c.Color = colorPending
		c.Fields = []conditional.Field{{Name: "Status", Value: "pending " + v.Pending.Action, Inline: true}}
	case r.Kind == domain.KindSuccess:
		c.Color = colorRunning
		c.Fields = []conditional.Field{{Name: "Status", Value: "running", Inline: true}}
		if r.DetailsAllowed {
			c.Fields = append(c.Fields,
				conditional.Field{Name: "CPU", Value: orDash(r.CPU), Inline: true},
				conditional.Field{Name: "RAM", Value: orDash(r.RAM), Inline: true},
				conditional.Field{Name: "Uptime", Value: orDash(domain.FormatUptime(r.Uptime)), Inline: true},
			)
		}
	case r.Kind == domain.KindOffline:
		c.Color = colorStopped
		c.Fields = []conditional.Field{{Name: "Status", Value: "stopped", Inline: true}}
	default:
		c.Color = colorError
		c.Fields = []conditional.Field{{Name: "Status", Value: "unknown", Inline: true}}
		c.Description = "status unavailable: " + strings.ReplaceAll(string(r.ErrorKind), "_", " ")
	}

	if v.Stale {
		c.Footer = "data may be outdated"
	}
	return c
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
