// main.go: KinemaTV API.
// Serves the JSON backend of the KinemaTV frontend: model-generated movie,
// series and actor documents, the page assistant, and the per-user library
// (profile, favorites, watchlist, comments).
//
// Port: 3001 (env: PORT). Configuration is read from the environment and an
// optional .env file; see internal/config.
//
// Routes:
//
//	POST /api/movie-analysis                     structured movie document
//	POST /api/series-analysis                    structured series document
//	POST /api/actor-details                      actor biography card
//	POST /api/chat                               page assistant reply
//	POST /api/recommendations                    similar titles
//	POST /api/user, GET /api/user/{id}           profile
//	GET|POST /api/favorites, DELETE /api/favorites/{userId}/{mediaId}
//	GET|POST /api/watchlist, DELETE /api/watchlist/{userId}/{mediaId}
//	GET|POST /api/comments
//	GET  /api/status
//	GET  /health
//	GET  /metrics
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/420btc/KinemaTV/internal/analysis"
	"github.com/420btc/KinemaTV/internal/cache"
	"github.com/420btc/KinemaTV/internal/chat"
	"github.com/420btc/KinemaTV/internal/config"
	"github.com/420btc/KinemaTV/internal/httpapi"
	"github.com/420btc/KinemaTV/internal/library"
	"github.com/420btc/KinemaTV/internal/logger"
	"github.com/420btc/KinemaTV/internal/metrics"
	"github.com/420btc/KinemaTV/internal/openai"
	"github.com/420btc/KinemaTV/internal/ratelimit"
	"github.com/420btc/KinemaTV/internal/retry"
	"github.com/420btc/KinemaTV/internal/shutdown"
	"github.com/420btc/KinemaTV/internal/telemetry"
)

const serviceName = "kinema-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(serviceName, cfg.LogLevel, cfg.LogFormat)
	log.WithFields(logrus.Fields{
		"env":            cfg.Env,
		"openai_key":     logger.RedactToken(cfg.OpenAIAPIKey),
		"model":          cfg.OpenAIModel,
		"db_driver":      cfg.DatabaseDriver,
		"cache_enabled":  cfg.CacheEnabled(),
		"rate_limit_on":  cfg.RateLimitEnabled(),
		"retry_attempts": cfg.AnalysisMaxAttempts,
	}).Info("configuration loaded")

	if err := telemetry.InitSentry(cfg.SentryDSN, serviceName, cfg.Env, cfg.Release); err != nil {
		log.WithError(err).Warn("sentry disabled")
	}
	defer telemetry.Flush()

	// Assign the interfaces only on success so a missing key leaves them nil
	// rather than holding a typed nil pointer.
	var completer analysis.Completer
	var provider chat.Provider
	client, err := openai.New(openai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		VisionModel: cfg.OpenAIVisionModel,
		Timeout:     cfg.OpenAITimeout,
	})
	if err != nil {
		log.WithError(err).Warn("OPENAI_API_KEY not set; model-backed endpoints will answer 500")
	} else {
		completer, provider = client, client
	}

	analyzer := analysis.New(completer,
		analysis.WithModel(cfg.OpenAIModel),
		analysis.WithTimeout(cfg.AnalysisTimeout),
	)
	assistant := chat.New(provider, chat.Config{Model: cfg.OpenAIModel, VisionModel: cfg.OpenAIVisionModel})

	var store cache.Store
	var limiter *ratelimit.Limiter
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		defer rs.Close()
		if cfg.CacheEnabled() {
			store = rs
		}
		if cfg.RateLimitEnabled() {
			limiter = ratelimit.New(ratelimit.NewRedisStore(rs.Client()), cfg.AIRateLimit, cfg.AIRateWindow).
				TrustProxyHeaders(cfg.TrustProxyHeaders)
		}
	}

	lib, err := library.Open(cfg.DatabaseDriver, cfg.DatabaseURL, log.WithField("component", "library"))
	if err != nil {
		log.WithError(err).Fatal("library database unavailable")
	}
	defer lib.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	policy := retry.Policy{
		MaxAttempts:     cfg.AnalysisMaxAttempts,
		InitialInterval: cfg.AnalysisRetryBackoff,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
	}

	srv := httpapi.New(httpapi.Deps{
		Analyzer:         analyzer,
		Assistant:        assistant,
		Library:          lib,
		Cache:            store,
		CacheTTL:         cfg.AnalysisCacheTTL,
		RetryPolicy:      policy,
		Limiter:          limiter,
		Metrics:          m,
		Log:              log,
		AllowedOrigins:   cfg.AllowedOrigins,
		RequestTimeout:   requestTimeout(cfg),
		Environment:      cfg.Env,
		OpenAIConfigured: cfg.OpenAIConfigured(),
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := shutdown.GracefulServe(httpSrv, cfg.ShutdownDrainTimeout, log); err != nil {
		log.WithError(err).Error("server exited")
		telemetry.Flush()
		os.Exit(1)
	}
}

// requestTimeout leaves room for every analysis attempt plus its backoff.
func requestTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.AnalysisMaxAttempts)
	return attempts*(cfg.AnalysisTimeout+cfg.AnalysisRetryBackoff) + 30*time.Second
}
