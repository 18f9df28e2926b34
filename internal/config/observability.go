package config

import (
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

// ObservabilityConfig configures pkg/observability's OTel bootstrap,
// shared by cmd/worker and cmd/server.
type ObservabilityConfig struct {
	OTelEnabled       bool   `env:"JOBENGINE_OTEL_ENABLED"`
	OTelCollectorAddr string `env:"JOBENGINE_OTEL_COLLECTOR_ADDR"`
	ServiceName       string `env:"OTEL_SERVICE_NAME"`
}

func DefaultObservabilityConfig(serviceName string) ObservabilityConfig {
	return ObservabilityConfig{
		OTelEnabled:       true,
		OTelCollectorAddr: "localhost:4317",
		ServiceName:       serviceName,
	}
}

func LoadObservabilityConfig(serviceName string) (ObservabilityConfig, error) {
	cfg := DefaultObservabilityConfig(serviceName)
	if err := env.Load(&cfg); err != nil {
		return ObservabilityConfig{}, fmt.Errorf("jobengine/config: load observability config: %w", err)
	}
	return cfg, nil
}
