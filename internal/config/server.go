package config

import (
	"fmt"
	"time"

	"github.com/session-mesh/jobengine/internal/env"
)

// HTTPConfig configures cmd/server's admin HTTP API listener.
type HTTPConfig struct {
	Host              string        `env:"JOBENGINE_HTTP_HOST"`
	Port              string        `env:"JOBENGINE_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"JOBENGINE_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"JOBENGINE_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"JOBENGINE_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"JOBENGINE_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"JOBENGINE_HTTP_MAX_HEADER_BYTES"`
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host: "0.0.0.0", Port: "8090",
		ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second, ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// ServerConfig holds everything cmd/server needs: the admin HTTP API
// exposing dead-letter-queue list/retry/discard operations over the same
// database the worker writes to.
type ServerConfig struct {
	Database        DatabaseConfig
	HTTP            HTTPConfig
	Auth            AuthConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"JOBENGINE_SHUTDOWN_TIMEOUT"`
}

func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Database:        DefaultDatabaseConfig(),
		HTTP:            DefaultHTTPConfig(),
		Auth:            DefaultAuthConfig(),
		Observability:   DefaultObservabilityConfig("jobengine-server"),
		ShutdownTimeout: 10 * time.Second,
	}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("jobengine/config: load server config: %w", err)
	}
	return cfg, nil
}
