package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts counts retry waits by error kind.
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_retry_attempts_total",
			Help: "Total number of retried external calls",
		},
		[]string{"kind"},
	)

	// BreakerState is 0 closed, 1 half open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studio_breaker_state",
			Help: "Circuit breaker state per endpoint (0 closed, 1 half open, 2 open)",
		},
		[]string{"endpoint"},
	)

	// CacheRequests counts analysis cache lookups.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_cache_requests_total",
			Help: "Total number of analysis cache lookups",
		},
		[]string{"result"},
	)

	// GenerationImages counts per-image generation outcomes.
	GenerationImages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_generation_images_total",
			Help: "Total number of image generation outcomes",
		},
		[]string{"outcome"},
	)

	// ExternalCallLatency tracks model API latency.
	ExternalCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_external_call_seconds",
			Help:    "External model call latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"operation"},
	)

	// TasksCleaned counts tasks removed by retention cleanup.
	TasksCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_tasks_cleaned_total",
			Help: "Total number of tasks removed by retention cleanup",
		},
	)
)

// BreakerStateValue maps a breaker state name onto the gauge value.
func BreakerStateValue(state string) float64 {
	switch state {
	case "OPEN":
		return 2
	case "HALF_OPEN":
		return 1
	default:
		return 0
	}
}

// CacheLookup records one cache lookup.
func CacheLookup(hit bool) {
	if hit {
		CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	CacheRequests.WithLabelValues("miss").Inc()
}
