package handlers

import (
	"net/http"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

type policyStats struct {
	Resources  int    `json:"resources"`
	Active     int    `json:"active"`
	LastReload string `json:"last_reload"`
}

type statsResponse struct {
	Policy      policyStats         `json:"policy"`
	Cache       statuscache.Stats   `json:"cache"`
	Conditional conditional.Stats   `json:"conditional"`
	Pending     int                 `json:"pending"`
	Profiles    []profile.Profile   `json:"profiles"`
	Classes     map[string][]string `json:"classes"`
}

// Stats reports engine internals for operators.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := d.Policies.ActiveIDs()
		cls := d.Profiles.Classify(active)

		resp := statsResponse{
			Policy: policyStats{
				Resources:  d.Policies.Count(),
				Active:     len(active),
				LastReload: formatTime(d.Policies.LastReload()),
			},
			Cache:       d.Cache.Stats(),
			Conditional: d.Conditional.Statistics(),
			Pending:     d.Pending.Len(),
			Profiles:    d.Profiles.Snapshot(),
			Classes: map[string][]string{
				"fast":    toStrings(cls.Fast),
				"slow":    toStrings(cls.Slow),
				"unknown": toStrings(cls.Unknown),
			},
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
