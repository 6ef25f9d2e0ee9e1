// Package metrics holds the Prometheus collectors for the status engine.
// Collectors live on the default registry and are exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ddc"

var (
	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Bounded fetch attempts by outcome",
		},
		[]string{"result"},
	)

	fetchEmergency = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "emergency_total",
			Help:      "Unbounded emergency fetches after retries were exhausted",
		},
		[]string{"result"},
	)

	fetchShared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "shared_total",
			Help:      "Fetch requests answered from an in-flight or cooled-down query",
		},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Wall time of a logical fetch including retries",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"emergency"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Status cache reads by tier and result",
		},
		[]string{"tier", "result"},
	)

	deactivations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "deactivations_total",
			Help:      "Resources deactivated after persistent not-found",
		},
	)

	bulkFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "fetches_total",
			Help:      "Bulk status calls by outcome",
		},
		[]string{"result"},
	)

	bulkResources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "resources_total",
			Help:      "Resources dispatched by bulk calls per class",
		},
		[]string{"class"},
	)

	publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "decisions_total",
			Help:      "Publish cycle decisions (sent, skipped, failed)",
		},
		[]string{"result"},
	)

	// HTTP collectors are used by the server middleware.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		fetchAttempts, fetchEmergency, fetchShared, fetchDuration,
		cacheLookups, deactivations,
		bulkFetches, bulkResources,
		publishes,
		HTTPRequests, HTTPDuration,
	)
}

// Attempt counts one bounded fetch attempt. result is "success", "timeout",
// "not_found" or another error kind.
func Attempt(result string) { fetchAttempts.WithLabelValues(result).Inc() }

// Emergency counts one emergency fetch.
func Emergency(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	fetchEmergency.WithLabelValues(result).Inc()
}

// Shared counts a fetch answered without a new provider query.
func Shared() { fetchShared.Inc() }

// FetchDuration observes the wall time of one logical fetch.
func FetchDuration(d time.Duration, emergency bool) {
	label := "false"
	if emergency {
		label = "true"
	}
	fetchDuration.WithLabelValues(label).Observe(d.Seconds())
}

// CacheLookup counts one cache read. tier is "raw" or "formatted"; result
// is "hit", "miss" or "expired".
func CacheLookup(tier, result string) { cacheLookups.WithLabelValues(tier, result).Inc() }

// Deactivation counts a resource deactivated for persistent absence.
func Deactivation() { deactivations.Inc() }

// BulkFetch counts one bulk call. result is "ok" or "unreachable".
func BulkFetch(result string) { bulkFetches.WithLabelValues(result).Inc() }

// BulkResources adds n resources dispatched as class ("fast" or "slow").
func BulkResources(class string, n int) {
	if n > 0 {
		bulkResources.WithLabelValues(class).Add(float64(n))
	}
}

// Publish counts one publish decision.
func Publish(result string) { publishes.WithLabelValues(result).Inc() }
