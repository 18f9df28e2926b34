package config

import (
	"fmt"
	"time"

	"github.com/session-mesh/jobengine/internal/env"
)

// APIKeyConfig controls the shape of generated operator API keys
// (internal/infrastructure/keygen): <type>-<service>-<version>-<short_token>-<long_secret>.
type APIKeyConfig struct {
	KeyType     string `env:"JOBENGINE_API_KEY_TYPE"`
	ServiceName string `env:"JOBENGINE_API_SERVICE_NAME"`
	Version     string `env:"JOBENGINE_API_VERSION"`
}

func DefaultAPIKeyConfig() APIKeyConfig {
	return APIKeyConfig{KeyType: "sk", ServiceName: "jobengine", Version: "v1"}
}

// AuthConfig configures the admin HTTP API's bearer-key authenticator
// (internal/application/auth).
type AuthConfig struct {
	OperationTimeout time.Duration `env:"JOBENGINE_AUTH_OPERATION_TIMEOUT"`
	UpdateQueueSize  int           `env:"JOBENGINE_AUTH_UPDATE_QUEUE_SIZE"`
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{OperationTimeout: 5 * time.Second, UpdateQueueSize: 100}
}

func LoadAuthConfig() (AuthConfig, error) {
	cfg := DefaultAuthConfig()
	if err := env.Load(&cfg); err != nil {
		return AuthConfig{}, fmt.Errorf("jobengine/config: load auth config: %w", err)
	}
	return cfg, nil
}
