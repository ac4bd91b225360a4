// Package metrics holds the Prometheus collectors for the scoring service
// and the store node.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scoring",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoring",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scoring",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoring",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Dispatched method calls by method name and status code.",
		},
		[]string{"method", "code"},
	)

	storeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoring",
			Subsystem: "store",
			Name:      "attempts_total",
			Help:      "Store backend attempts by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	storeHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scoring",
			Subsystem: "store",
			Name:      "healthy",
			Help:      "1 when the store backend answers health checks, 0 otherwise.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		calls,
		storeAttempts,
		storeHealthy,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCall counts one dispatched method call.
func RecordCall(method string, code int) {
	calls.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// RecordStoreAttempt counts one store backend attempt. Outcome is "ok",
// "retryable" or "failed".
func RecordStoreAttempt(op, outcome string) {
	storeAttempts.WithLabelValues(op, outcome).Inc()
}

// SetStoreHealthy publishes the health monitor's verdict.
func SetStoreHealthy(healthy bool) {
	if healthy {
		storeHealthy.Set(1)
		return
	}
	storeHealthy.Set(0)
}

// InstrumentHandler wraps next with HTTP metrics collection. The route label
// is the fixed path given by the caller to keep label cardinality bounded.
func InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
