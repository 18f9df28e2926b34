package config

import (
	"fmt"

	"github.com/session-mesh/jobengine/internal/env"
)

// BlobConfig selects and configures the attachment-blob backend
// (collaborators/blob) used by the FileSystem collaborator: a local
// directory for development, or a GCS bucket in production.
type BlobConfig struct {
	Backend string `env:"JOBENGINE_BLOB_BACKEND"` // "fs" or "gcs"

	FSDir string `env:"JOBENGINE_BLOB_FS_DIR"`

	GCSBucket    string `env:"JOBENGINE_BLOB_GCS_BUCKET"`
	GCSProjectID string `env:"JOBENGINE_BLOB_GCS_PROJECT_ID"`
}

func (c *BlobConfig) Validate() error {
	switch c.Backend {
	case "fs":
		if c.FSDir == "" {
			return fmt.Errorf("JOBENGINE_BLOB_FS_DIR is required when JOBENGINE_BLOB_BACKEND is 'fs'")
		}
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("JOBENGINE_BLOB_GCS_BUCKET is required when JOBENGINE_BLOB_BACKEND is 'gcs'")
		}
	default:
		return fmt.Errorf("unknown JOBENGINE_BLOB_BACKEND: %q, want 'fs' or 'gcs'", c.Backend)
	}
	return nil
}

func DefaultBlobConfig() BlobConfig {
	return BlobConfig{Backend: "fs", FSDir: "./jobengine-data"}
}

func LoadBlobConfig() (BlobConfig, error) {
	cfg := DefaultBlobConfig()
	if err := env.Load(&cfg); err != nil {
		return BlobConfig{}, fmt.Errorf("jobengine/config: load blob config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return BlobConfig{}, err
	}
	return cfg, nil
}
