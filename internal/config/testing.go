package config

import (
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

// TestConfig holds configuration for integration tests that need a
// real Postgres database (store/postgres's conformance suite).
type TestConfig struct {
	Database DatabaseConfig
}

func LoadTestConfig() (*TestConfig, error) {
	cfg := &TestConfig{Database: DefaultDatabaseConfig()}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("jobengine/config: load test config: %w", err)
	}
	return cfg, nil
}
