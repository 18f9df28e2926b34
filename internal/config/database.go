// Package config loads the ambient, JOBENGINE_-prefixed configuration
// for each binary in cmd/, using the same internal/env reflection
// loader the engine's own RunnerConfig uses. Each Load* function
// starts from its Default* values and lets env.Load override them, mirroring
// engine.DefaultRunnerConfig rather than relying on struct tags for
// defaults.
package config

import (
	"errors"
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

// ErrDSNRequired is returned when the database DSN is not configured.
var ErrDSNRequired = errors.New("JOBENGINE_DB_DSN is required")

// DatabaseConfig configures the postgres-backed Job Record Store
// (store/postgres).
type DatabaseConfig struct {
	DSN string `env:"JOBENGINE_DB_DSN"`

	MaxOpenConns    int `env:"JOBENGINE_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int `env:"JOBENGINE_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int `env:"JOBENGINE_DB_CONN_MAX_LIFETIME_SEC"`
	ConnMaxIdleTime int `env:"JOBENGINE_DB_CONN_MAX_IDLE_TIME_SEC"`
}

func (c *DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return ErrDSNRequired
	}
	return nil
}

// DefaultDatabaseConfig returns pool sizing sane for a single worker
// process; dsn comes from the environment and is never defaulted.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 300,
		ConnMaxIdleTime: 60,
	}
}

// LoadDatabaseConfig loads and validates DatabaseConfig from the
// environment, filling in pool defaults first so env.Load only needs
// to override what's actually set.
func LoadDatabaseConfig() (DatabaseConfig, error) {
	cfg := DefaultDatabaseConfig()
	if err := env.Load(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("jobengine/config: load database config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DatabaseConfig{}, err
	}
	return cfg, nil
}
