package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, BackendRemote, cfg.StorageBackend)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "Anonymous", cfg.FallbackUser)
	assert.Contains(t, cfg.DSN(), "dbname=stock_resi")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", " Local ")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/stock")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, cfg.StorageBackend)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "postgres://u:p@db:5432/stock", cfg.DSN())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "firebase")

	_, err := Load()
	assert.ErrorContains(t, err, "STORAGE_BACKEND")
}
