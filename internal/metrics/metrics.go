// Package metrics provides Prometheus instrumentation for the watchdog services.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watchdog"

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ClassificationsTotal counts signed verdicts by strategy and classification.
	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total signed classifications by scoring strategy and verdict.",
		},
		[]string{"strategy", "classification"},
	)

	// OracleFailuresTotal counts scoring calls that fell back to score 0.
	OracleFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_failures_total",
			Help:      "Scoring oracle failures absorbed as score 0, by strategy and reason.",
		},
		[]string{"strategy", "reason"},
	)

	// OracleDuration observes scoring latency.
	OracleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_duration_seconds",
			Help:      "Scoring oracle call duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"strategy"},
	)

	// OracleBreakerTransitionsTotal counts circuit state changes for the model upstream.
	OracleBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_breaker_transitions_total",
			Help:      "Model upstream circuit breaker transitions by upstream, from-state, and to-state.",
		},
		[]string{"upstream", "from_state", "to_state"},
	)

	// SigningErrorsTotal counts attestations that could not be produced.
	SigningErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signing_errors_total",
		Help:      "Total attestation signing failures.",
	})

	// MempoolTriggersTotal counts rug simulations triggered.
	MempoolTriggersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mempool_triggers_total",
		Help:      "Total rug simulations triggered.",
	})

	// MempoolEventsTotal counts simulated events emitted by kind.
	MempoolEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mempool_events_total",
			Help:      "Total simulated mempool events emitted by kind.",
		},
		[]string{"event"},
	)

	// DroppedDeliveriesTotal counts best-effort deliveries that were dropped.
	DroppedDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mempool_dropped_deliveries_total",
			Help:      "Deliveries dropped because a subscriber was closed, slow, or failed a write.",
		},
		[]string{"reason"},
	)

	// ActiveSubscribers tracks connected WebSocket subscribers.
	ActiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscribers",
			Help:      "Number of currently connected mempool subscribers.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ClassificationsTotal,
		OracleFailuresTotal,
		OracleDuration,
		OracleBreakerTransitionsTotal,
		SigningErrorsTotal,
		MempoolTriggersTotal,
		MempoolEventsTotal,
		DroppedDeliveriesTotal,
		ActiveSubscribers,
	)
}

// Middleware records request count and latency per route pattern.
// Requests that match no route share one "unmatched" label so probes
// for random paths cannot grow the series count.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := routeLabel(c)
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(c.Request.Method, route))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, statusBucket(c.Writer.Status())).Inc()
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
