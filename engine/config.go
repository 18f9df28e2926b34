package engine

import (
	"fmt"
	"time"
)

// RunnerConfig holds the Runner's tunables, loaded the way
// internal/config loads WorkerConfig in the teacher: a struct of
// `env:"..."` tagged fields passed through the env package, with
// defaults applied by the constructor rather than by the loader
// itself (the env loader leaves unset fields at their zero value by
// design).
type RunnerConfig struct {
	// Backoff curve (design notes open question): exposed as config
	// rather than hardcoded.
	BaseBackoff time.Duration `env:"JOBENGINE_BASE_BACKOFF"`
	MaxBackoff  time.Duration `env:"JOBENGINE_MAX_BACKOFF"`

	// PollInterval bounds how long the Runner sleeps between wake
	// checks even with no tick scheduled, as a safety net against a
	// missed wake signal.
	PollInterval time.Duration `env:"JOBENGINE_POLL_INTERVAL"`

	// AvailabilityTimeout and HeartbeatInterval are loaded and
	// defaulted, but neither the Runner nor either Store reads them:
	// a job left running is reclaimed only by Startup's reset.
	AvailabilityTimeout time.Duration `env:"JOBENGINE_AVAILABILITY_TIMEOUT"`
	HeartbeatInterval   time.Duration `env:"JOBENGINE_HEARTBEAT_INTERVAL"`

	// ExclusiveRunLease bounds how long a single-instance variant's
	// cross-process lease is held before it is considered abandoned.
	ExclusiveRunLease time.Duration `env:"JOBENGINE_EXCLUSIVE_RUN_LEASE"`

	// WorkerID identifies this process as an exclusive-run lease
	// holder.
	WorkerID string `env:"JOBENGINE_WORKER_ID"`

	// RecurringOnActiveCooldown bounds how often a recurringOnActive
	// variant (garbageCollection) runs its full cleanup pass on
	// successive appBecameActive transitions; releases inside the
	// window run the minimal-cleanup variant instead (section 4.4,
	// testable scenario S3).
	RecurringOnActiveCooldown time.Duration `env:"JOBENGINE_RECURRING_ON_ACTIVE_COOLDOWN"`
}

// Validate implements env.Validator.
func (c *RunnerConfig) Validate() error {
	if c.BaseBackoff < 0 || c.MaxBackoff < 0 {
		return fmt.Errorf("jobengine: backoff durations must be non-negative")
	}
	if c.MaxBackoff != 0 && c.BaseBackoff > c.MaxBackoff {
		return fmt.Errorf("jobengine: BaseBackoff must not exceed MaxBackoff")
	}
	return nil
}

// DefaultRunnerConfig mirrors the teacher's DefaultWorkerConfig: safe
// defaults a caller can start from, then override selected fields
// from environment via env.Load.
func DefaultRunnerConfig(workerID string) RunnerConfig {
	return RunnerConfig{
		BaseBackoff:               time.Second,
		MaxBackoff:                time.Hour,
		PollInterval:              30 * time.Second,
		AvailabilityTimeout:       5 * time.Minute,
		HeartbeatInterval:         time.Minute,
		ExclusiveRunLease:         10 * time.Minute,
		WorkerID:                  workerID,
		RecurringOnActiveCooldown: 24 * time.Hour,
	}
}

func (c RunnerConfig) backoff() BackoffConfig {
	return BackoffConfig{Base: c.BaseBackoff, Max: c.MaxBackoff}
}

func (c RunnerConfig) recurringOnActiveCooldown() time.Duration {
	if c.RecurringOnActiveCooldown <= 0 {
		return 24 * time.Hour
	}
	return c.RecurringOnActiveCooldown
}
