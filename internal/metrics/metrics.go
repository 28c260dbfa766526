package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prema_client",
			Name:      "requests_total",
			Help:      "Backend requests by operation and HTTP status (0 for network failures).",
		},
		[]string{"op", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prema_client",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	backgroundFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prema_client",
			Name:      "background_task_failures_total",
			Help:      "Best-effort tasks that returned an error.",
		},
		[]string{"task"},
	)
)

// ObserveRequest records one backend round trip.
func ObserveRequest(op string, status int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// BackgroundFailure records a failed best-effort task.
func BackgroundFailure(task string) {
	backgroundFailuresTotal.WithLabelValues(task).Inc()
}
