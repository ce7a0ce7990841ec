// Package config provides centralized configuration loading for the KinemaTV API.
//
// Values come from the process environment; an optional .env file in the
// working directory is loaded first. Nothing outside this package reads the
// environment: components receive their settings through Config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all KinemaTV service configuration.
type Config struct {
	// Core
	Port string `envconfig:"PORT" default:"3001"`
	Env  string `envconfig:"KINEMA_ENV" default:"development"`

	// Generative model provider
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIVisionModel string        `envconfig:"OPENAI_VISION_MODEL" default:"gpt-4o"`
	OpenAITimeout     time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`

	// Analysis
	AnalysisTimeout      time.Duration `envconfig:"ANALYSIS_TIMEOUT" default:"90s"`
	AnalysisMaxAttempts  int           `envconfig:"ANALYSIS_MAX_ATTEMPTS" default:"2"`
	AnalysisRetryBackoff time.Duration `envconfig:"ANALYSIS_RETRY_BACKOFF" default:"500ms"`

	// Redis cache (optional; empty URL disables caching)
	RedisURL         string        `envconfig:"REDIS_URL"`
	AnalysisCacheTTL time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"6h"`

	// Per-client limit on the model-backed endpoints. Needs Redis; 0 disables.
	AIRateLimit  int           `envconfig:"AI_RATE_LIMIT" default:"30"`
	AIRateWindow time.Duration `envconfig:"AI_RATE_WINDOW" default:"1m"`
	// Key the limit on X-Forwarded-For/X-Real-IP. Only set behind a reverse proxy.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

	// Library database
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"kinema.db"`

	// HTTP
	AllowedOrigins       []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	ShutdownDrainTimeout time.Duration `envconfig:"SHUTDOWN_DRAIN_TIMEOUT" default:"15s"`

	// Telemetry
	SentryDSN string `envconfig:"SENTRY_DSN"`
	Release   string `envconfig:"KINEMA_RELEASE" default:"dev"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the environment only and validates it.
func FromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that envconfig cannot express as types.
// A missing OPENAI_API_KEY is not a validation failure: the analysis
// endpoints answer with a configuration error instead of the process exiting.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.AnalysisMaxAttempts < 1 {
		return fmt.Errorf("config: ANALYSIS_MAX_ATTEMPTS must be at least 1")
	}
	if c.OpenAITimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("config: OPENAI_TIMEOUT and ANALYSIS_TIMEOUT must be positive")
	}
	if c.AnalysisRetryBackoff < 0 || c.AnalysisCacheTTL < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	if c.AIRateLimit < 0 || (c.AIRateLimit > 0 && c.AIRateWindow <= 0) {
		return fmt.Errorf("config: AI_RATE_LIMIT must not be negative and AI_RATE_WINDOW must be positive")
	}
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	return nil
}

// OpenAIConfigured reports whether a provider credential is present.
func (c *Config) OpenAIConfigured() bool {
	return c.OpenAIAPIKey != ""
}

// CacheEnabled reports whether analysis documents should be cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != "" && c.AnalysisCacheTTL > 0
}

// RateLimitEnabled reports whether the model-backed endpoints are throttled.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisURL != "" && c.AIRateLimit > 0
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
