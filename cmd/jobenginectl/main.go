// Command jobenginectl is a small operator CLI for inspecting and
// correcting the dead-letter queue and for requesting cooperative
// cancellation of a running job (section 6: "CLI/configuration: not
// applicable at the engine level (library)" — this binary is the
// thin operator surface a deployment wraps around that library,
// grounded on cmd/apikey's flag-driven, single-purpose shape).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/session-mesh/jobengine/internal/config"
	"github.com/session-mesh/jobengine/store/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, postgres.DBConfig{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	switch os.Args[1] {
	case "list-dead-letter":
		cmdListDeadLetter(ctx, store, os.Args[2:])
	case "retry":
		cmdRetry(ctx, store, os.Args[2:])
	case "discard":
		cmdDiscard(ctx, store, os.Args[2:])
	case "cancel":
		cmdCancel(ctx, store, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: jobenginectl <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  list-dead-letter [-limit N]     list dead-letter jobs")
	fmt.Println("  retry -id N                     re-enqueue a dead-letter job as runnable")
	fmt.Println("  discard -id N                   permanently delete a dead-letter job")
	fmt.Println("  cancel -job-id N                request cooperative cancellation of a running job")
}

func cmdListDeadLetter(ctx context.Context, store *postgres.Store, args []string) {
	fs := flag.NewFlagSet("list-dead-letter", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum rows to list")
	fs.Parse(args)

	jobs, err := store.ListDeadLetter(ctx, *limit)
	if err != nil {
		log.Fatalf("failed to list dead letter jobs: %v", err)
	}
	if len(jobs) == 0 {
		fmt.Println("no dead-letter jobs")
		return
	}
	for _, j := range jobs {
		fmt.Printf("id=%d original_job_id=%d variant=%s failure_count=%d classification=%s message=%q created_at=%d\n",
			j.ID, j.OriginalJobID, j.Variant, j.FailureCount, j.Classification, j.Message, j.CreatedAtUnix)
	}
}

func cmdRetry(ctx context.Context, store *postgres.Store, args []string) {
	fs := flag.NewFlagSet("retry", flag.ExitOnError)
	id := fs.Int64("id", 0, "dead-letter row ID (required)")
	fs.Parse(args)
	if *id == 0 {
		log.Fatal("-id is required")
	}

	newJobID, err := store.RetryDeadLetter(ctx, *id)
	if err != nil {
		log.Fatalf("failed to retry dead letter job %d: %v", *id, err)
	}
	fmt.Printf("re-enqueued dead-letter row %d as job %d\n", *id, newJobID)
}

func cmdDiscard(ctx context.Context, store *postgres.Store, args []string) {
	fs := flag.NewFlagSet("discard", flag.ExitOnError)
	id := fs.Int64("id", 0, "dead-letter row ID (required)")
	fs.Parse(args)
	if *id == 0 {
		log.Fatal("-id is required")
	}

	if err := store.DiscardDeadLetter(ctx, *id); err != nil {
		log.Fatalf("failed to discard dead letter job %d: %v", *id, err)
	}
	fmt.Printf("discarded dead-letter row %d\n", *id)
}

func cmdCancel(ctx context.Context, store *postgres.Store, args []string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	jobID := fs.Int64("job-id", 0, "running job ID to cancel (required)")
	fs.Parse(args)
	if *jobID == 0 {
		log.Fatal("-job-id is required")
	}

	// Cancellation itself is cooperative and in-process (section 4.8's
	// LifecycleController); this only publishes the request over the
	// same LISTEN/NOTIFY channel every engine process subscribes to,
	// so whichever process currently holds the job observes it.
	if err := store.NotifyCancellation(ctx, *jobID); err != nil {
		log.Fatalf("failed to publish cancellation for job %d: %v", *jobID, err)
	}
	fmt.Printf("published cancellation request for job %d\n", *jobID)
}
