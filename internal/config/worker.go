package config

import (
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

// WorkerConfig holds the ambient configuration for cmd/worker: the
// Postgres store, attachment blob backend, and observability
// bootstrap. The engine's own scheduling knobs (poll interval,
// backoff, worker ID, ...) are engine.RunnerConfig's concern: cmd/worker
// starts from engine.DefaultRunnerConfig and applies env.Load to it.
type WorkerConfig struct {
	Database      DatabaseConfig
	Blob          BlobConfig
	Network       NetworkConfig
	Observability ObservabilityConfig
	WorkerID      string `env:"JOBENGINE_WORKER_ID"`
}

func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{
		Database:      DefaultDatabaseConfig(),
		Blob:          DefaultBlobConfig(),
		Network:       DefaultNetworkConfig(),
		Observability: DefaultObservabilityConfig("jobengine-worker"),
		WorkerID:      "jobengine-worker-1",
	}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("jobengine/config: load worker config: %w", err)
	}
	return cfg, nil
}
