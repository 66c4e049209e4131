package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window())
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, []string{"GET"}, cfg.RateLimit.Methods)
	assert.Equal(t, time.Minute, cfg.RateLimit.SweepInterval())
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.Empty(t, cfg.App.ProxyHeader)
	assert.Empty(t, cfg.App.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_PROXY_HEADER", "X-Forwarded-For")
	t.Setenv("APP_TRUSTED_PROXIES", "10.0.0.1, 10.0.0.0/8,")
	t.Setenv("AUTH_TOKEN_TTL_SECONDS", "120")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "500")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "7")
	t.Setenv("RATE_LIMIT_METHODS", "get, post ,")
	t.Setenv("RATE_LIMIT_STATS_ENABLED", "false")
	t.Setenv("RATE_LIMIT_SWEEP_INTERVAL_SECONDS", "0")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "nope")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, "X-Forwarded-For", cfg.App.ProxyHeader)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.0/8"}, cfg.App.TrustedProxies)
	assert.Equal(t, 2*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.Window())
	assert.Equal(t, 7, cfg.RateLimit.MaxRequests)
	assert.Equal(t, []string{"get", "post"}, cfg.RateLimit.Methods)
	assert.False(t, cfg.RateLimit.StatsEnabled)
	assert.Zero(t, cfg.RateLimit.SweepInterval())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoad_RejectsInvalidLimiter(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
