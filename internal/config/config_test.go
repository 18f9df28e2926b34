package config

import (
	"os"
	"testing"
)

func clearJobengineEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key := kv[:i]
				if len(key) >= 9 && key[:9] == "JOBENGINE" {
					os.Unsetenv(key)
				}
				break
			}
		}
	}
}

func TestLoadDatabaseConfigAppliesDefaultsAndRequiresDSN(t *testing.T) {
	clearJobengineEnv(t)
	if _, err := LoadDatabaseConfig(); err == nil {
		t.Fatal("expected ErrDSNRequired when JOBENGINE_DB_DSN is unset")
	}

	os.Setenv("JOBENGINE_DB_DSN", "postgres://localhost/jobengine")
	defer os.Unsetenv("JOBENGINE_DB_DSN")

	cfg, err := LoadDatabaseConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxOpenConns != 10 {
		t.Fatalf("expected default MaxOpenConns=10, got %d", cfg.MaxOpenConns)
	}
}

func TestLoadDatabaseConfigOverridesFromEnv(t *testing.T) {
	clearJobengineEnv(t)
	os.Setenv("JOBENGINE_DB_DSN", "postgres://localhost/jobengine")
	os.Setenv("JOBENGINE_DB_MAX_OPEN_CONNS", "42")
	defer clearJobengineEnv(t)

	cfg, err := LoadDatabaseConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxOpenConns != 42 {
		t.Fatalf("expected env override to win, got %d", cfg.MaxOpenConns)
	}
}

func TestLoadBlobConfigDefaultsToFilesystemBackend(t *testing.T) {
	clearJobengineEnv(t)
	cfg, err := LoadBlobConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != "fs" || cfg.FSDir == "" {
		t.Fatalf("expected a valid fs-backed default, got %+v", cfg)
	}
}

func TestLoadBlobConfigGCSRequiresBucket(t *testing.T) {
	clearJobengineEnv(t)
	os.Setenv("JOBENGINE_BLOB_BACKEND", "gcs")
	defer clearJobengineEnv(t)

	if _, err := LoadBlobConfig(); err == nil {
		t.Fatal("expected an error when gcs backend is selected without a bucket")
	}

	os.Setenv("JOBENGINE_BLOB_GCS_BUCKET", "attachments-bucket")
	cfg, err := LoadBlobConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GCSBucket != "attachments-bucket" {
		t.Fatalf("expected bucket from env, got %q", cfg.GCSBucket)
	}
}

func TestLoadBlobConfigRejectsUnknownBackend(t *testing.T) {
	clearJobengineEnv(t)
	os.Setenv("JOBENGINE_BLOB_BACKEND", "s3")
	defer clearJobengineEnv(t)

	if _, err := LoadBlobConfig(); err == nil {
		t.Fatal("expected an error for an unsupported blob backend")
	}
}

func TestLoadServerConfigNestedValidationPropagates(t *testing.T) {
	clearJobengineEnv(t)
	defer clearJobengineEnv(t)

	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected an error because Database.DSN is required but unset")
	}

	os.Setenv("JOBENGINE_DB_DSN", "postgres://localhost/jobengine")
	os.Setenv("JOBENGINE_HTTP_PORT", "9999")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != "9999" {
		t.Fatalf("expected HTTP.Port override, got %q", cfg.HTTP.Port)
	}
	if cfg.ShutdownTimeout == 0 {
		t.Fatal("expected a default shutdown timeout")
	}
}

func TestLoadAPIKeyGenConfigRequiresName(t *testing.T) {
	clearJobengineEnv(t)
	os.Setenv("JOBENGINE_DB_DSN", "postgres://localhost/jobengine")
	defer clearJobengineEnv(t)

	if _, err := LoadAPIKeyGenConfig("", 30); err != ErrNameRequired {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	cfg, err := LoadAPIKeyGenConfig("operator-cli", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey.KeyType != "sk" || cfg.APIKey.ServiceName != "jobengine" {
		t.Fatalf("expected default key-format fields, got %+v", cfg.APIKey)
	}
}

func TestLoadAPIKeyGenConfigRejectsNegativeDays(t *testing.T) {
	clearJobengineEnv(t)
	os.Setenv("JOBENGINE_DB_DSN", "postgres://localhost/jobengine")
	defer clearJobengineEnv(t)

	if _, err := LoadAPIKeyGenConfig("operator-cli", -1); err != ErrInvalidDays {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}
}
