package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "3001", c.Port)
	assert.Equal(t, "gpt-4o-mini", c.OpenAIModel)
	assert.Equal(t, 60*time.Second, c.OpenAITimeout)
	assert.Equal(t, 2, c.AnalysisMaxAttempts)
	assert.Equal(t, "sqlite", c.DatabaseDriver)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.False(t, c.OpenAIConfigured())
	assert.False(t, c.CacheEnabled())
	assert.True(t, c.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "  sk-test-key  ")
	t.Setenv("PORT", "8080")
	t.Setenv("ANALYSIS_MAX_ATTEMPTS", "3")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ALLOWED_ORIGINS", "https://kinema.tv,http://localhost:5173")
	t.Setenv("KINEMA_ENV", "production")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", c.OpenAIAPIKey)
	assert.True(t, c.OpenAIConfigured())
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 3, c.AnalysisMaxAttempts)
	assert.True(t, c.CacheEnabled())
	assert.Equal(t, []string{"https://kinema.tv", "http://localhost:5173"}, c.AllowedOrigins)
	assert.False(t, c.IsDevelopment())
}

func TestFromEnv_InvalidDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DRIVER")
}

func TestFromEnv_InvalidAttempts(t *testing.T) {
	t.Setenv("ANALYSIS_MAX_ATTEMPTS", "0")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_MalformedDuration(t *testing.T) {
	t.Setenv("OPENAI_TIMEOUT", "soon")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestCacheEnabled_RequiresTTL(t *testing.T) {
	c := &Config{RedisURL: "redis://localhost:6379", AnalysisCacheTTL: 0}
	assert.False(t, c.CacheEnabled())
}

func TestFromEnv_RateLimit(t *testing.T) {
	t.Setenv("AI_RATE_LIMIT", "-1")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("AI_RATE_LIMIT", "10")
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, c.AIRateWindow)
	assert.False(t, c.RateLimitEnabled())

	assert.False(t, c.TrustProxyHeaders)

	c.RedisURL = "redis://localhost:6379/0"
	assert.True(t, c.RateLimitEnabled())

	t.Setenv("TRUST_PROXY_HEADERS", "true")
	c, err = FromEnv()
	require.NoError(t, err)
	assert.True(t, c.TrustProxyHeaders)
}
