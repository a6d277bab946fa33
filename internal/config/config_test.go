package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "$", cfg.CurrencySymbol)
	assert.Equal(t, 336*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "/media", cfg.Storage.MediaURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Nil(t, cfg.CORSAllowOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("CURRENCY_SYMBOL", "€")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("SESSION_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "€", cfg.CurrencySymbol)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}
