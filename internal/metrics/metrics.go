// Package metrics provides Prometheus instrumentation for the KinemaTV API.
//
// Metrics exposed at GET /metrics:
//
//	kinema_http_requests_total              counter: HTTP requests by method/path/status
//	kinema_http_request_duration_seconds    histogram: HTTP latency by method/path
//	kinema_analysis_requests_total          counter: analysis calls by kind/outcome
//	kinema_analysis_duration_seconds        histogram: analysis latency by kind
//	kinema_analysis_retries_total           counter: caller-side retries by kind
//	kinema_analysis_cache_total             counter: cache lookups by kind/result
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors. Create one per process with New;
// tests pass prometheus.NewRegistry() to stay isolated from the default registry.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	analysisRequests *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisRetries  *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
}

// New creates the KinemaTV collectors and registers them with reg.
// It panics on duplicate registration, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinema_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kinema_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		analysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinema_analysis_requests_total",
			Help: "Analysis requests by subject kind and outcome.",
		}, []string{"kind", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "kinema_analysis_duration_seconds",
			Help: "End-to-end analysis latency including model calls.",
			// Model calls routinely take tens of seconds.
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"kind"}),
		analysisRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinema_analysis_retries_total",
			Help: "Analysis attempts repeated after a retryable failure.",
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kinema_analysis_cache_total",
			Help: "Analysis cache lookups by result (hit, miss, error).",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.analysisRequests,
		m.analysisDuration,
		m.analysisRetries,
		m.cacheLookups,
	)
	return m
}

// Handler returns the Prometheus HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape handler for a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveAnalysis records one finished analysis. outcome is "ok" or an error code.
func (m *Metrics) ObserveAnalysis(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.analysisRequests.WithLabelValues(kind, outcome).Inc()
	m.analysisDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveRetry records one repeated analysis attempt.
func (m *Metrics) ObserveRetry(kind string) {
	if m == nil {
		return
	}
	m.analysisRetries.WithLabelValues(kind).Inc()
}

// ObserveCache records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) ObserveCache(kind, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// Middleware records request counts and latency. The path label is the chi
// route pattern (e.g. /api/favorites/{userId}) so user ids never become labels.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		if m == nil {
			return
		}
		path := routePattern(r)
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the matched chi pattern, or "unmatched" for 404s.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}
