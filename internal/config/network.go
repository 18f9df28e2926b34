package config

import (
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

// NetworkConfig configures the gRPC collaborator (collaborators/netclient/grpc)
// that implements engine.Network for cmd/worker's file-server/storage-server
// RPCs (section 6).
type NetworkConfig struct {
	Target string `env:"JOBENGINE_NETWORK_TARGET"`
}

func (c *NetworkConfig) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("JOBENGINE_NETWORK_TARGET is required")
	}
	return nil
}

func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{Target: "localhost:9090"}
}

func LoadNetworkConfig() (NetworkConfig, error) {
	cfg := DefaultNetworkConfig()
	if err := env.Load(&cfg); err != nil {
		return NetworkConfig{}, fmt.Errorf("jobengine/config: load network config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return NetworkConfig{}, err
	}
	return cfg, nil
}
