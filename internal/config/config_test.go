package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, "MOCK-PROJECT", cfg.ProjectID)
	assert.Equal(t, 500*time.Millisecond, cfg.Autosave.Debounce())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://db.example:27017")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("AUTOSAVE_DEBOUNCE_MS", "250")
	t.Setenv("PROJECT_ID", "PROJ-42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMongo, cfg.Store.Backend)
	assert.Equal(t, "mongodb://db.example:27017", cfg.Store.MongoURI)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, 250*time.Millisecond, cfg.Autosave.Debounce())
	assert.Equal(t, "PROJ-42", cfg.ProjectID)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestLoad_FloorsNonPositiveDebounce(t *testing.T) {
	t.Setenv("AUTOSAVE_DEBOUNCE_MS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Autosave.Debounce())
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.example", Port: "6380"}
	assert.Equal(t, "cache.example:6380", cfg.Addr())
}
