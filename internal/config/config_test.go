package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-campaigns/internal/config/configs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, uint16(8080), cfg.HTTP.Port)
	assert.Equal(t, "localhost:5432", cfg.Psql.Addr.Host)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Redis.LockTTL)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Minute, cfg.Scheduler.Timeout())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("PSQL_ADDRESS", "postgres://u:p@db:5433/campaigns?sslmode=disable")
	t.Setenv("PSQL_RUN_MIGRATIONS", "true")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDRESS", "cache:6380")
	t.Setenv("REDIS_LOCK_WAIT", "250ms")
	t.Setenv("SCHEDULER_TICK_INTERVAL", "30s")
	t.Setenv("SCHEDULER_TICK_TIMEOUT", "20s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.HTTP.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.SlogFormat())
	assert.Equal(t, "db:5433", cfg.Psql.Addr.Host)
	assert.Equal(t, "/campaigns", cfg.Psql.Addr.Path)
	assert.True(t, cfg.Psql.RunMigrations)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.LockWait)
	assert.Equal(t, 20*time.Second, cfg.Scheduler.Timeout())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("SCHEDULER_TICK_INTERVAL", "often")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoggerHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(configs.Logger{Level: "warn", Format: "JSON"}.Handler(&buf))

	logger.Info("dropped")
	logger.Warn("kept", slog.Int64("campaign_id", 7))

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"campaign_id":7`)

	buf.Reset()
	slog.New(configs.Logger{Format: "yaml"}.Handler(&buf)).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
