package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestObserveAnalysis(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveAnalysis("movie", "ok", 2*time.Second)
	m.ObserveAnalysis("movie", "malformed_response", time.Second)
	m.ObserveAnalysis("movie", "ok", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("movie", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("movie", "malformed_response")))
}

func TestObserveRetryAndCache(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRetry("series")
	m.ObserveCache("actor", "hit")
	m.ObserveCache("actor", "hit")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRetries.WithLabelValues("series")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("actor", "hit")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis("movie", "ok", time.Second)
		m.ObserveRetry("movie")
		m.ObserveCache("movie", "miss")
	})
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/user/550e8400", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/user/{id}", "418"))
	assert.Equal(t, 1.0, got)
}

func TestHandlerFor_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveAnalysis("movie", "ok", time.Second)

	rr := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "kinema_analysis_requests_total"))
}
