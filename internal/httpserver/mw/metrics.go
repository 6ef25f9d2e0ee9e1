package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/metrics"
)

// Metrics instruments requests for Prometheus. Paths are labelled with the
// chi route pattern to keep label cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		path := routePatternOrPath(r)
		code := strconv.Itoa(status)
		metrics.HTTPRequests.WithLabelValues(path, r.Method, code).Inc()
		metrics.HTTPDuration.WithLabelValues(path, r.Method, code).Observe(time.Since(start).Seconds())
	})
}

func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
