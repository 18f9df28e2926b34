package config

import (
	"errors"
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

var (
	ErrNameRequired = errors.New("name is required (use -name flag)")
	ErrInvalidDays  = errors.New("days must be >= 0 (0 = never expires)")
)

// APIKeyGenConfig holds the configuration for cmd/apikey: database
// access to persist the generated key, the key-format options, and
// the command-line-supplied name/expiry.
type APIKeyGenConfig struct {
	Database DatabaseConfig
	APIKey   APIKeyConfig

	Name      string
	DaysValid int
}

func (c *APIKeyGenConfig) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.DaysValid < 0 {
		return ErrInvalidDays
	}
	return nil
}

// LoadAPIKeyGenConfig loads database/key-format configuration from
// the environment; name and daysValid come from command-line flags.
func LoadAPIKeyGenConfig(name string, daysValid int) (*APIKeyGenConfig, error) {
	cfg := &APIKeyGenConfig{
		Database:  DefaultDatabaseConfig(),
		APIKey:    DefaultAPIKeyConfig(),
		Name:      name,
		DaysValid: daysValid,
	}
	// Name and DaysValid come from flags, so they are checked before
	// env.Load (which runs Validate again on the root struct) and the
	// sentinel errors are returned unwrapped.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("jobengine/config: load apikey config: %w", err)
	}
	return cfg, nil
}
