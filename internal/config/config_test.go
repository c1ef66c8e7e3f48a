package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	// Значения по умолчанию
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "entsync.db", cfg.Storage.Path)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, 8, cfg.Sync.MaxParallel)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 120, cfg.RateLimit.Requests)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SYNC_MAX_PARALLEL", "16")
	t.Setenv("AUDIT_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 16, cfg.Sync.MaxParallel)
	assert.True(t, cfg.Audit.Enabled)
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  addr: ":7070"
storage:
  path: /tmp/custom.db
sync:
  max_parallel: 4
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/custom.db", cfg.Storage.Path)
	assert.Equal(t, 4, cfg.Sync.MaxParallel)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
