package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/httpserver/deps"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

// statusItem is one resource as the dashboard sees it. Age and Stale let the
// UI tell known-good, known-bad and stale-but-available apart.
type statusItem struct {
	ID          domain.ResourceID `json:"id"`
	DisplayName string            `json:"display_name"`
	Kind        string            `json:"kind"`
	Running     bool              `json:"running"`
	CPU         string            `json:"cpu,omitempty"`
	RAM         string            `json:"ram,omitempty"`
	Uptime      string            `json:"uptime,omitempty"`
	ErrorKind   domain.ErrorKind  `json:"error_kind,omitempty"`
	Message     string            `json:"message,omitempty"`
	Pending     string            `json:"pending,omitempty"`
	Available   bool              `json:"available"`
	AgeSeconds  float64           `json:"age_seconds"`
	Stale       bool              `json:"stale"`

	Legacy *domain.LegacyTuple `json:"legacy,omitempty"`
}

type statusListResponse struct {
	Resources []statusItem `json:"resources"`
	Refreshed bool         `json:"refreshed"`
}

// StatusList returns every active resource from the cache. Resources with no
// live entry are fetched once; ?refresh=1 refetches everything.
func StatusList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := d.Policies.ActiveIDs()
		refresh := r.URL.Query().Get("refresh") == "1"

		if refresh {
			d.Orchestrator.BulkFetch(r.Context(), ids)
		} else {
			var missing []domain.ResourceID
			for _, id := range ids {
				if _, ok := d.Cache.GetFormatted(id); !ok {
					missing = append(missing, id)
				}
			}
			if len(missing) > 0 {
				d.Logger.Debug("fetching uncached resources", logger.Int("count", len(missing)))
				d.Orchestrator.BulkFetch(r.Context(), missing)
			}
		}

		legacy := r.URL.Query().Get("format") == "legacy"
		resp := statusListResponse{Resources: make([]statusItem, 0, len(ids)), Refreshed: refresh}
		for _, id := range ids {
			entry, ok := d.Cache.GetFormatted(id)
			resp.Resources = append(resp.Resources, buildItem(d, id, entry, ok, legacy))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Status returns one resource, cache first.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.ResourceID(chi.URLParam(r, "id"))
		if _, ok := d.Policies.Lookup(id); !ok {
			writeJSONError(w, http.StatusNotFound, "unknown resource")
			return
		}
		entry := d.Orchestrator.Status(r.Context(), id)
		writeJSON(w, http.StatusOK, buildItem(d, id, entry, true, r.URL.Query().Get("format") == "legacy"))
	}
}

// RefreshStatus drops the cached state of one resource and fetches it again.
func RefreshStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.ResourceID(chi.URLParam(r, "id"))
		p, ok := d.Policies.Lookup(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "unknown resource")
			return
		}
		if !p.Active {
			writeJSONError(w, http.StatusConflict, "resource is inactive")
			return
		}

		d.Cache.Invalidate(id)
		d.Fetcher.Reset(id)
		entry := d.Orchestrator.Status(r.Context(), id)
		writeJSON(w, http.StatusOK, buildItem(d, id, entry, true, false))
	}
}

func buildItem(d deps.Deps, id domain.ResourceID, entry statuscache.Entry[domain.StatusResult], ok bool, legacy bool) statusItem {
	name := string(id)
	if p, found := d.Policies.Lookup(id); found {
		name = p.Name()
	}
	item := statusItem{ID: id, DisplayName: name, Kind: domain.KindError.String()}

	if ok {
		now := d.Cache.Now()
		res := entry.Payload
		item.Available = true
		item.Kind = res.Kind.String()
		item.Running = res.Running()
		item.AgeSeconds = entry.Age(now).Seconds()
		item.Stale = entry.Stale(now, d.Cache.Config().RawTTL)
		if res.DisplayName != "" {
			item.DisplayName = res.DisplayName
		}
		switch res.Kind {
		case domain.KindSuccess:
			item.CPU, item.RAM = res.CPU, res.RAM
			item.Uptime = domain.FormatUptime(res.Uptime)
		case domain.KindError:
			item.ErrorKind, item.Message = res.ErrorKind, res.Message
		}
		if legacy {
			t := res.Legacy(name)
			item.Legacy = &t
		}
		if d.Pending != nil && d.Pending.Observe(id, res) {
			if a, found := d.Pending.Get(id); found {
				item.Pending = a.Action
			}
		}
	} else if d.Pending != nil {
		if a, found := d.Pending.Get(id); found {
			item.Pending = a.Action
		}
	}
	return item
}
