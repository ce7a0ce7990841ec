package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/420btc/KinemaTV/internal/analysis"
	"github.com/420btc/KinemaTV/internal/chat"
	"github.com/420btc/KinemaTV/internal/library"
	"github.com/420btc/KinemaTV/internal/metrics"
	"github.com/420btc/KinemaTV/internal/openai"
	"github.com/420btc/KinemaTV/internal/ratelimit"
	"github.com/420btc/KinemaTV/internal/retry"
	"github.com/420btc/KinemaTV/internal/testutil"
)

const inceptionJSON = `{
  "cast": [
    {"name": "Leonardo DiCaprio", "character": "Dom Cobb", "biography": "Actor estadounidense.", "filmography": ["Titanic", "The Revenant"]},
    {"name": "Elliot Page", "character": "Ariadne", "biography": "Actor canadiense.", "filmography": ["Juno"]}
  ],
  "boxOffice": {"budget": "$160 millones", "worldwide": "$836.8 millones", "domestic": "$292.6 millones", "international": "$544.2 millones", "profitability": "Muy rentable"},
  "production": {"studio": "Warner Bros.", "producers": ["Emma Thomas", "Christopher Nolan"], "director": "Christopher Nolan", "writers": ["Christopher Nolan"], "cinematographer": "Wally Pfister", "composer": "Hans Zimmer"},
  "awards": {"oscars": ["Mejor fotografía", "Mejores efectos visuales"], "goldenGlobes": [], "otherAwards": ["BAFTA a los mejores efectos visuales"]},
  "criticalReception": {"rottenTomatoes": "87%", "imdb": "8.8/10", "metacritic": "74/100", "criticsConsensus": "Inteligente y emocionante."},
  "culturalImpact": {"legacy": "Referente de la ciencia ficción.", "influence": "Popularizó el sonido BRAAAM.", "trivia": ["La peonza pertenecía a Mal"]},
  "technicalAspects": {"cinematography": "Rodada en 35 mm e IMAX.", "soundtrack": "Hans Zimmer.", "visualEffects": "Efectos prácticos.", "editing": "Lee Smith."}
}`

func fixedNow() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

// scriptedCompleter answers with replies[i] and errs[i] on the i-th call,
// repeating the last entry once the script runs out.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	gate    chan struct{}
	calls   int
	last    analysis.Completion
}

func (c *scriptedCompleter) Complete(ctx context.Context, comp analysis.Completion) (string, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	c.last = comp
	c.mu.Unlock()

	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	var reply string
	var err error
	if len(c.replies) > 0 {
		reply = c.replies[min(i, len(c.replies)-1)]
	}
	if len(c.errs) > 0 {
		err = c.errs[min(i, len(c.errs)-1)]
	}
	return reply, err
}

func (c *scriptedCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedCompleter) lastCompletion() analysis.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []openai.ChatRequest
}

func (p *fakeProvider) Chat(_ context.Context, req openai.ChatRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return p.reply, p.err
}

type fixture struct {
	handler   http.Handler
	completer *scriptedCompleter
	provider  *fakeProvider
	store     *library.Store
	hook      *test.Hook
	reg       *prometheus.Registry
}

// newFixture wires a Server around fakes and an in-memory library database.
func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	store, err := library.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	reg := prometheus.NewRegistry()

	f := &fixture{
		completer: &scriptedCompleter{replies: []string{inceptionJSON}},
		provider:  &fakeProvider{reply: "¡Hola! ¿Qué quieres ver hoy?"},
		store:     store,
		hook:      hook,
		reg:       reg,
	}
	d := Deps{
		Analyzer:         analysis.New(f.completer, analysis.WithClock(fixedNow)),
		Assistant:        chat.New(f.provider, chat.Config{}),
		Library:          store,
		RetryPolicy:      retry.Policy{MaxAttempts: 2, Multiplier: 1},
		Metrics:          metrics.New(reg),
		Gatherer:         reg,
		Log:              logrus.NewEntry(log),
		Environment:      "test",
		OpenAIConfigured: true,
		Now:              fixedNow,
	}
	for _, opt := range opts {
		opt(&d)
	}
	f.handler = New(d).Routes()
	return f
}

func TestMovieAnalysis_EndToEnd(t *testing.T) {
	f := newFixture(t)

	rr := testutil.PostJSON(t, f.handler, "/api/movie-analysis", map[string]any{"movieTitle": "Inception", "movieYear": 2010})

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, inceptionJSON, rr.Body.String())
	assert.Equal(t, 1, f.completer.callCount())
	assert.Contains(t, f.completer.lastCompletion().User, `"Inception" (2010)`)
}

func TestMovieAnalysis_MissingTitle(t *testing.T) {
	f := newFixture(t)

	rr := testutil.PostJSON(t, f.handler, "/api/movie-analysis", map[string]any{})

	testutil.AssertError(t, rr, http.StatusBadRequest, "Movie title is required")
	assert.Zero(t, f.completer.callCount())
}

func TestMovieAnalysis_UpstreamTimeout(t *testing.T) {
	// The provider never answers before the per-call timeout.
	f := newFixtureWithCompleter(t, &scriptedCompleter{gate: make(chan struct{})}, analysis.WithTimeout(20*time.Millisecond))

	rr := testutil.PostJSON(t, f.handler, "/api/movie-analysis", map[string]any{"movieTitle": "Inception", "movieYear": 2010})

	testutil.AssertError(t, rr, http.StatusInternalServerError, "Error analyzing movie")
	assert.NotContains(t, rr.Body.String(), "deadline")
	assert.Equal(t, 2, f.completer.callCount(), "one retry after a transient failure")

	logged := findEntry(f.hook, "analysis failed")
	require.NotNil(t, logged, "failure must be logged")
	assert.Equal(t, logrus.ErrorLevel, logged.Level)
	assert.Equal(t, "upstream_unavailable", logged.Data["code"])
	assert.Contains(t, fmt.Sprint(logged.Data[logrus.ErrorKey]), "deadline exceeded")
}

// findEntry returns the last log entry with the given message, or nil.
func findEntry(hook *test.Hook, msg string) *logrus.Entry {
	entries := hook.AllEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Message == msg {
			return entries[i]
		}
	}
	return nil
}

// newFixtureWithCompleter is newFixture with a custom provider and analysis options.
func newFixtureWithCompleter(t *testing.T, c *scriptedCompleter, opts ...analysis.Option) *fixture {
	t.Helper()
	f := newFixture(t, func(d *Deps) {
		d.Analyzer = analysis.New(c, append([]analysis.Option{analysis.WithClock(fixedNow)}, opts...)...)
	})
	f.completer = c
	return f
}

func TestPreflight_ReturnsEmptyOK(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/movie-analysis", "/api/series-analysis", "/api/actor-details"} {
		rr := testutil.Do(t, f.handler, http.MethodOptions, path, nil)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Empty(t, rr.Body.String(), path)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	}
}

func TestAnalysisRoutes_RejectOtherMethods(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/movie-analysis", "/api/series-analysis", "/api/actor-details", "/api/chat"} {
		rr := testutil.GetJSON(t, f.handler, path)
		testutil.AssertError(t, rr, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func TestUnknownRoute(t *testing.T) {
	rr := testutil.GetJSON(t, newFixture(t).handler, "/api/nope")
	testutil.AssertError(t, rr, http.StatusNotFound, "Not found")
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t)

	rr := testutil.GetJSON(t, f.handler, "/health")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"status":"OK"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = testutil.GetJSON(t, f.handler, "/api/status")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"openaiConfigured":true,"environment":"test"}`, rr.Body.String())
}

func TestHealth_DatabaseDown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	rr := testutil.GetJSON(t, f.handler, "/health")
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	testutil.PostJSON(t, f.handler, "/api/movie-analysis", map[string]any{"movieTitle": "Inception"})

	rr := testutil.GetJSON(t, f.handler, "/metrics")
	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.Contains(t, body, `kinema_analysis_requests_total{kind="movie",outcome="ok"} 1`)
	assert.Contains(t, body, `kinema_http_requests_total{method="POST",path="/api/movie-analysis",status="200"} 1`)
}

func TestRequestBody_TooLarge(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"movieTitle":"` + strings.Repeat("a", maxBodyBytes) + `"}`)

	rr := testutil.Do(t, f.handler, http.MethodPost, "/api/movie-analysis", body)

	testutil.AssertError(t, rr, http.StatusRequestEntityTooLarge, "Request body too large")
	assert.Zero(t, f.completer.callCount())
}

func TestRequestBody_InvalidJSON(t *testing.T) {
	f := newFixture(t)
	rr := testutil.Do(t, f.handler, http.MethodPost, "/api/movie-analysis", []byte(`{"movieTitle":`))
	testutil.AssertError(t, rr, http.StatusBadRequest, "Invalid JSON body")
}

// memRateStore is an in-process ratelimit.Store.
type memRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memRateStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memRateStore) TTL(context.Context, string) (time.Duration, error) {
	return 30 * time.Second, nil
}

func TestModelRoutes_RateLimited(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Limiter = ratelimit.New(&memRateStore{}, 2, time.Minute)
	})

	for i := 0; i < 2; i++ {
		rr := testutil.PostJSON(t, f.handler, "/api/chat", map[string]any{"message": "hola"})
		testutil.AssertStatus(t, rr, http.StatusOK)
	}
	rr := testutil.PostJSON(t, f.handler, "/api/movie-analysis", map[string]any{"movieTitle": "Inception"})
	testutil.AssertError(t, rr, http.StatusTooManyRequests, "Too many requests")
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))

	// Library routes are not throttled.
	rr = testutil.GetJSON(t, f.handler, "/api/favorites/user_1")
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestModelRoutes_RateLimitStoreDownFailsOpen(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Limiter = ratelimit.New(&memRateStore{err: errors.New("connection refused")}, 1, time.Minute)
	})
	for i := 0; i < 3; i++ {
		rr := testutil.PostJSON(t, f.handler, "/api/chat", map[string]any{"message": "hola"})
		testutil.AssertStatus(t, rr, http.StatusOK)
	}
}
