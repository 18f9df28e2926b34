package engine

import (
	"context"
	"errors"
)

// ErrDeadLetterNotFound is returned by RetryDeadLetter when no
// dead-letter row matches the given ID.
var ErrDeadLetterNotFound = errors.New("jobengine: dead letter job not found")

// Filter narrows a fetchByFilter query (section 4.1). Nil/zero fields
// are unconstrained.
type Filter struct {
	Variant    *Variant
	ThreadID   *string
	Status     *Status
	ExcludeIDs []int64
}

// Tx is the transaction handle a Store implementation hands back from
// Begin. The job-row and dependency-edge methods of Store take a Tx so
// callers (the Runner's outcome-policy application, primarily) can
// compose several operations into one atomic commit; the dead-letter
// listing/discard/retry, lease and Close methods do not take one.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the Job Record Store collaborator (section 4.1, 6):
// transactional operations over the durable job table and its
// dependency-edges table. Fetches are stable-ordered by
// (NextRunTimestamp ASC, ID ASC). Store is agnostic to the encoding of
// Details — it persists and restores the bytes verbatim.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	Insert(ctx context.Context, tx Tx, job *Job) (int64, error)
	Upsert(ctx context.Context, tx Tx, job *Job) error
	Update(ctx context.Context, tx Tx, job *Job) error
	Delete(ctx context.Context, tx Tx, id int64) error

	FetchOne(ctx context.Context, tx Tx, id int64) (*Job, error)
	FetchByFilter(ctx context.Context, tx Tx, f Filter) ([]*Job, error)

	AddDependency(ctx context.Context, tx Tx, edge DependencyEdge) error
	FetchDependencies(ctx context.Context, tx Tx, id int64) ([]DependencyEdge, error)
	FetchAllDependencies(ctx context.Context, tx Tx) ([]DependencyEdge, error)

	// InsertMany admits a batch of jobs within a single transaction,
	// all-or-nothing (section 5 of SPEC_FULL.md's supplemented
	// features).
	InsertMany(ctx context.Context, tx Tx, jobs []*Job) ([]int64, error)

	// MarkAllRunningAsRunnable implements the Runner's crash-recovery
	// startup protocol (section 4.4): every row found in `running` at
	// process launch is reset to `runnable` with FailureCount
	// unchanged.
	MarkAllRunningAsRunnable(ctx context.Context, tx Tx) (int, error)

	// MoveToDeadLetter persists a permanently-failed job's details for
	// operator review, then deletes the live row, in one transaction
	// (supplemented feature: dead-letter queue).
	MoveToDeadLetter(ctx context.Context, tx Tx, job *Job, classification, message string) error
	ListDeadLetter(ctx context.Context, limit int) ([]DeadLetterJob, error)
	DiscardDeadLetter(ctx context.Context, id int64) error
	// RetryDeadLetter re-enqueues a dead-letter row as a fresh runnable
	// job with FailureCount reset to zero, grounded on the teacher's
	// RetryDeadLetterJob.
	RetryDeadLetter(ctx context.Context, id int64) (newJobID int64, err error)

	// TryAcquireExclusiveRun implements the cross-process half of the
	// single-instance admission policy: a leased, time-bounded mutex
	// keyed by variant name, so two engine processes sharing one
	// Store never both run a single-instance variant concurrently.
	TryAcquireExclusiveRun(ctx context.Context, variant Variant, holderID string, lease Duration) (release func(context.Context), acquired bool, err error)

	Close() error
}

// Duration is a thin alias kept distinct from time.Duration at the
// Store boundary so implementations can accept either a Go duration
// or a database interval without an import of "time" leaking into
// every call site; store/postgres and store/sqlite convert it
// immediately.
type Duration = int64 // seconds

// DeadLetterJob is the durable record created by MoveToDeadLetter
// (supplemented feature — see SPEC_FULL.md section 5).
type DeadLetterJob struct {
	ID             int64
	OriginalJobID  int64
	Variant        Variant
	Details        []byte
	FailureCount   int
	Classification string // "permanent" (including exhausted retries and recovered panics) or "cascaded-blocker-failure"
	Message        string
	CreatedAtUnix  int64
}
