// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Store backends selectable at startup.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port string `env:"SERVER_PORT" envDefault:"3000"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Backend is one of mongo, sqlite, memory. The sqlite backend is the
	// local fallback used when no remote deployment is available.
	Backend string `env:"STORE_BACKEND" envDefault:"sqlite"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"scene_store"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/scene-store.db"`
}

// RedisConfig configures the optional scene-listing cache.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_CACHE_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	Database int    `env:"REDIS_DATABASE" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	TTLMs    int    `env:"REDIS_CACHE_TTL_MS" envDefault:"30000"`
}

// Addr returns the Redis address.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// TTL returns the cache entry lifetime.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLMs) * time.Millisecond
}

// AutosaveConfig configures the autosave loop.
type AutosaveConfig struct {
	// DebounceMs is the quiet window over which edits are coalesced before
	// a save is attempted.
	DebounceMs int `env:"AUTOSAVE_DEBOUNCE_MS" envDefault:"500"`
}

// Debounce returns the quiet window as a duration.
func (c AutosaveConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	Autosave AutosaveConfig

	// ProjectID is the development fallback project identity, used when a
	// request carries no project header. Mirrors the host's mock project
	// in non-production runs.
	ProjectID string `env:"PROJECT_ID" envDefault:"MOCK-PROJECT"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	for _, nested := range []interface{}{&cfg.Server, &cfg.Store, &cfg.Redis, &cfg.Autosave} {
		if err := env.Parse(nested); err != nil {
			return nil, errors.New("failed to load configuration from environment: " + err.Error())
		}
	}

	switch cfg.Store.Backend {
	case BackendMongo, BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: %s, %s, %s)",
			cfg.Store.Backend, BackendMongo, BackendSQLite, BackendMemory)
	}
	if cfg.Store.Backend == BackendMongo && cfg.Store.MongoURI == "" {
		return nil, errors.New("MONGODB_URI must be set for the mongo backend")
	}
	if cfg.Autosave.DebounceMs <= 0 {
		cfg.Autosave.DebounceMs = 500
	}

	return cfg, nil
}
