// Package metrics holds the Prometheus collectors for the HTTP surface and the
// media pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess    = "success"
	OutcomeRetry      = "retry"
	OutcomeDeadLetter = "dead_letter"
)

var (
	MediaJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_jobs_total",
			Help: "Media jobs handled by the worker, by outcome",
		},
		[]string{"outcome"},
	)

	MediaJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_job_duration_seconds",
			Help:    "Duration of media job processing in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	MediaJobsEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_jobs_enqueued_total",
			Help: "Media jobs enqueued by the recipe service",
		},
	)

	CleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_cleanup_failures_total",
			Help: "Best-effort cleanup steps that failed after a recipe delete",
		},
		[]string{"step"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordMediaJob(outcome string, d time.Duration) {
	MediaJobsTotal.WithLabelValues(outcome).Inc()
	MediaJobDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func RecordCleanupFailure(step string) {
	CleanupFailuresTotal.WithLabelValues(step).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
