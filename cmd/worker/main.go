// Command worker runs the Job Engine's Runner: the central scheduler
// that admits runnable jobs from the Job Record Store and dispatches
// them to the Executor Registry (section 4.4). It owns the engine's
// long-running process lifecycle; cmd/server exposes the separate
// admin HTTP API over the same database.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/session-mesh/jobengine/collaborators/blob/fs"
	"github.com/session-mesh/jobengine/collaborators/blob/gcs"
	grpcclient "github.com/session-mesh/jobengine/collaborators/netclient/grpc"
	"github.com/session-mesh/jobengine/engine"
	"github.com/session-mesh/jobengine/executors"
	"github.com/session-mesh/jobengine/internal/config"
	"github.com/session-mesh/jobengine/internal/env"
	"github.com/session-mesh/jobengine/pkg/observability"
	"github.com/session-mesh/jobengine/store/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lp, logger, err := observability.InitLogger(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer shutdownWithTimeout(lp.Shutdown, 5*time.Second)
	slog.SetDefault(logger)

	tp, err := observability.InitTracerProvider(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init tracer provider: %w", err)
	}
	defer shutdownWithTimeout(tp.Shutdown, 5*time.Second)

	mp, err := observability.InitMeterProvider(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init meter provider: %w", err)
	}
	defer shutdownWithTimeout(mp.Shutdown, 5*time.Second)

	slog.InfoContext(ctx, "starting jobengine worker", "worker_id", cfg.WorkerID)

	store, err := postgres.NewStore(ctx, postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	blobStore, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}
	if closer, ok := blobStore.(io.Closer); ok {
		defer closer.Close()
	}

	netClient, err := grpcclient.Dial(cfg.Network.Target)
	if err != nil {
		return fmt.Errorf("failed to dial network collaborator: %w", err)
	}
	defer netClient.Close()

	registry := engine.NewRegistry()
	executors.RegisterAll(registry)

	// Crypto, Attachments, Config, and Events are collaborators owned
	// by the host messenger application, not this module (section 6);
	// cmd/worker is a reference binary and runs without them. A
	// variant that reaches into a nil collaborator here is the host
	// application's integration point, the same boundary Crypto
	// already documents in engine/context.go.
	rc := &engine.Context{
		Store:   store,
		Network: netClient,
		FS:      blobStore,
		Clock:   engine.SystemClock,
	}

	runnerCfg := engine.DefaultRunnerConfig(cfg.WorkerID)
	if err := env.Load(&runnerCfg); err != nil {
		return fmt.Errorf("failed to load runner config: %w", err)
	}

	tel := engine.Telemetry{
		Tracer: tp.Tracer("github.com/session-mesh/jobengine/engine"),
		Meter:  mp.Meter("github.com/session-mesh/jobengine/engine"),
	}

	runner := engine.NewRunner(store, registry, runnerCfg, rc, tel, logger)

	if err := runner.Startup(ctx); err != nil {
		return fmt.Errorf("failed to start runner: %w", err)
	}

	go forwardCancellations(ctx, store, runner)

	errResult := make(chan error, 1)
	go func() {
		if err := runner.Run(ctx); err != nil {
			errResult <- fmt.Errorf("runner: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")
		return nil
	case err := <-errResult:
		return err
	}
}

// forwardCancellations bridges postgres's cross-process LISTEN/NOTIFY
// channel (cmd/jobenginectl's "cancel" command publishes to it) onto
// the Runner, so a cancellation requested from any process reaches
// whichever worker currently holds the job running, and deletes the
// row outright if it hasn't started running anywhere yet (section
// 4.8) — every subscribed process runs Runner.Cancel, which is a
// no-op wherever the row turns out not to be pending/unowned.
func forwardCancellations(ctx context.Context, store *postgres.Store, runner *engine.Runner) {
	ch, err := store.SubscribeToCancellations(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to cancellations", "error", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-ch:
			if !ok {
				return
			}
			if err := runner.Cancel(ctx, jobID); err != nil {
				slog.ErrorContext(ctx, "failed to process cancellation", "job_id", jobID, "error", err)
			}
		}
	}
}

// newBlobStore selects the attachment-blob backend per BlobConfig.Backend
// (section 4.10), mirroring the teacher's provider-selection-by-config-flag
// pattern.
func newBlobStore(ctx context.Context, cfg config.BlobConfig) (engine.FileSystem, error) {
	switch cfg.Backend {
	case "gcs":
		return gcs.NewStore(ctx, cfg.GCSBucket)
	case "fs":
		return fs.NewStore(cfg.FSDir)
	default:
		return nil, fmt.Errorf("jobengine/worker: unknown blob backend %q", cfg.Backend)
	}
}

func shutdownWithTimeout(shutdown func(context.Context) error, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "shutdown error", "error", err)
	}
}
