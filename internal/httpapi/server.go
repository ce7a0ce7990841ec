// server.go: KinemaTV API server: shared dependencies, middleware chain, route registration.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/420btc/KinemaTV/internal/analysis"
	"github.com/420btc/KinemaTV/internal/cache"
	"github.com/420btc/KinemaTV/internal/chat"
	"github.com/420btc/KinemaTV/internal/library"
	"github.com/420btc/KinemaTV/internal/logger"
	"github.com/420btc/KinemaTV/internal/metrics"
	"github.com/420btc/KinemaTV/internal/middleware"
	"github.com/420btc/KinemaTV/internal/ratelimit"
	"github.com/420btc/KinemaTV/internal/retry"
	"github.com/420btc/KinemaTV/internal/telemetry"
)

const (
	maxBodyBytes          = 1 << 20
	defaultRequestTimeout = 3 * time.Minute
)

// Analyzer produces analysis documents. *analysis.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Output, error)
}

// Assistant answers chat turns. *chat.Service satisfies it.
type Assistant interface {
	Reply(ctx context.Context, message string, pc chat.Context) (string, error)
	Recommend(ctx context.Context, mediaType string, m chat.Media) (string, error)
}

// Deps holds everything the handlers need. Analyzer, Assistant and Library
// are required; the rest are optional.
type Deps struct {
	Analyzer  Analyzer
	Assistant Assistant
	Library   *library.Store

	// Cache is consulted before every analysis when non-nil.
	Cache    cache.Store
	CacheTTL time.Duration

	RetryPolicy retry.Policy
	Limiter     *ratelimit.Limiter
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics. Nil uses the default Prometheus gatherer.
	Gatherer prometheus.Gatherer

	Log            *logrus.Entry
	AllowedOrigins []string
	RequestTimeout time.Duration

	Environment      string
	OpenAIConfigured bool

	// Now defaults to time.Now. The current year fills in omitted years.
	Now func() time.Time
}

// Server serves the KinemaTV JSON API.
type Server struct {
	d       Deps
	log     *logrus.Entry
	retrier *retry.Retrier
	flight  singleflight.Group
}

// New creates a Server.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}
	if d.RetryPolicy.MaxAttempts == 0 {
		d.RetryPolicy = retry.DefaultPolicy()
	}

	s := &Server{d: d, log: d.Log}
	s.retrier = retry.New(d.RetryPolicy, d.Log)
	s.retrier.OnRetry = func(op string, _ int, _ error) {
		d.Metrics.ObserveRetry(op)
	}
	return s
}

// Routes returns the chi router with all routes registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(telemetry.PanicRecoveryMiddleware(s.log))
	r.Use(s.d.Metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(s.d.AllowedOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))
	r.Use(chimw.Timeout(s.d.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		// Model-backed routes share one per-client budget.
		r.Group(func(r chi.Router) {
			r.Use(s.d.Limiter.Middleware("ai"))
			r.Post("/movie-analysis", s.handleMovieAnalysis)
			r.Post("/series-analysis", s.handleSeriesAnalysis)
			r.Post("/actor-details", s.handleActorDetails)
			r.Post("/chat", s.handleChat)
			r.Post("/recommendations", s.handleRecommendations)
		})

		r.Post("/user", s.handleUpsertUser)
		r.Get("/user/{id}", s.handleGetUser)

		r.Get("/favorites/{userId}", s.handleListFavorites)
		r.Post("/favorites", s.handleAddFavorite)
		r.Delete("/favorites/{userId}/{mediaId}", s.handleRemoveFavorite)

		r.Get("/watchlist/{userId}", s.handleListWatchlist)
		r.Post("/watchlist", s.handleAddToWatchlist)
		r.Delete("/watchlist/{userId}/{mediaId}", s.handleRemoveFromWatchlist)

		r.Get("/comments", s.handleGetComments)
		r.Post("/comments", s.handleCreateComment)
	})

	return r
}

func (s *Server) metricsHandler() http.Handler {
	if s.d.Gatherer != nil {
		return metrics.HandlerFor(s.d.Gatherer)
	}
	return metrics.Handler()
}

// handleHealth reports liveness and checks the library database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.d.Library.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).WithError(err).Warn("health: database ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "DEGRADED"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// handleStatus tells the frontend whether the model-backed features are usable.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"openaiConfigured": s.d.OpenAIConfigured,
		"environment":      s.d.Environment,
	})
}
