// Package postgres implements the Job Record Store (engine.Store)
// against PostgreSQL via pgx/v5 and pgxpool, grounded on the
// teacher's infrastructure/persistence/postgres package: pgxpool
// connection pooling, id-keyed UPDATEs for status transitions (there
// is no SKIP LOCKED or status-conditional claim), and LISTEN/NOTIFY
// for cross-process cancellation fan-out.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/session-mesh/jobengine/engine"
)

// Store implements engine.Store against a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStoreFromPool wraps an already-constructed pool, for callers
// that manage the pool's lifecycle themselves (e.g. sharing it with
// other application subsystems).
func NewStoreFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// tx wraps a pgx.Tx to satisfy engine.Tx.
type tx struct{ pgx.Tx }

func (t *tx) Commit(ctx context.Context) error   { return t.Tx.Commit(ctx) }
func (t *tx) Rollback(ctx context.Context) error { return t.Tx.Rollback(ctx) }

func (s *Store) Begin(ctx context.Context) (engine.Tx, error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{pgxTx}, nil
}

func unwrap(t engine.Tx) pgx.Tx {
	return t.(*tx).Tx
}

func (s *Store) Insert(ctx context.Context, t engine.Tx, job *engine.Job) (int64, error) {
	q := unwrap(t)
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO jobs (variant, behaviour, should_be_unique, thread_id, interaction_id, details, details_hash, failure_count, next_run_timestamp, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, string(job.Variant), int(job.Behaviour), job.ShouldBeUnique, job.ThreadID, job.InteractionID,
		job.Details, job.DetailsHash(), job.FailureCount, job.NextRunTimestamp, int(job.Status)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// shouldBeUnique collision (invariant I3): the partial unique
		// index rejected a second live row for this
		// variant+thread+detailsHash. Nothing is merged here; report
		// zero so callers can tell no row was inserted.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	job.ID = id
	return id, nil
}

func (s *Store) InsertMany(ctx context.Context, t engine.Tx, jobs []*engine.Job) ([]int64, error) {
	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		id, err := s.Insert(ctx, t, j)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Upsert(ctx context.Context, t engine.Tx, job *engine.Job) error {
	q := unwrap(t)
	_, err := q.Exec(ctx, `
		INSERT INTO jobs (id, variant, behaviour, should_be_unique, thread_id, interaction_id, details, details_hash, failure_count, next_run_timestamp, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			behaviour = EXCLUDED.behaviour,
			thread_id = EXCLUDED.thread_id,
			interaction_id = EXCLUDED.interaction_id,
			details = EXCLUDED.details,
			details_hash = EXCLUDED.details_hash,
			failure_count = EXCLUDED.failure_count,
			next_run_timestamp = EXCLUDED.next_run_timestamp,
			status = EXCLUDED.status
	`, job.ID, string(job.Variant), int(job.Behaviour), job.ShouldBeUnique, job.ThreadID, job.InteractionID,
		job.Details, job.DetailsHash(), job.FailureCount, job.NextRunTimestamp, int(job.Status))
	return err
}

func (s *Store) Update(ctx context.Context, t engine.Tx, job *engine.Job) error {
	q := unwrap(t)
	_, err := q.Exec(ctx, `
		UPDATE jobs SET
			behaviour = $2, thread_id = $3, interaction_id = $4, details = $5,
			details_hash = $6, failure_count = $7, next_run_timestamp = $8, status = $9
		WHERE id = $1
	`, job.ID, int(job.Behaviour), job.ThreadID, job.InteractionID, job.Details,
		job.DetailsHash(), job.FailureCount, job.NextRunTimestamp, int(job.Status))
	return err
}

func (s *Store) Delete(ctx context.Context, t engine.Tx, id int64) error {
	q := unwrap(t)
	_, err := q.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

func (s *Store) FetchOne(ctx context.Context, t engine.Tx, id int64) (*engine.Job, error) {
	q := unwrap(t)
	row := q.QueryRow(ctx, `
		SELECT id, variant, behaviour, should_be_unique, thread_id, interaction_id, details, failure_count, next_run_timestamp, status
		FROM jobs WHERE id = $1
	`, id)
	return scanJob(row)
}

func scanJob(row pgx.Row) (*engine.Job, error) {
	var (
		j         engine.Job
		variant   string
		behaviour int
		status    int
	)
	if err := row.Scan(&j.ID, &variant, &behaviour, &j.ShouldBeUnique, &j.ThreadID, &j.InteractionID, &j.Details, &j.FailureCount, &j.NextRunTimestamp, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	j.Variant = engine.Variant(variant)
	j.Behaviour = engine.Behaviour(behaviour)
	j.Status = engine.Status(status)
	return &j, nil
}

func (s *Store) FetchByFilter(ctx context.Context, t engine.Tx, f engine.Filter) ([]*engine.Job, error) {
	q := unwrap(t)
	query := `SELECT id, variant, behaviour, should_be_unique, thread_id, interaction_id, details, failure_count, next_run_timestamp, status FROM jobs WHERE 1=1`
	args := make([]any, 0, 4)
	n := 0
	next := func() int { n++; return n }
	if f.Variant != nil {
		query += fmt.Sprintf(" AND variant = $%d", next())
		args = append(args, string(*f.Variant))
	}
	if f.ThreadID != nil {
		query += fmt.Sprintf(" AND thread_id = $%d", next())
		args = append(args, *f.ThreadID)
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", next())
		args = append(args, int(*f.Status))
	}
	if len(f.ExcludeIDs) > 0 {
		query += fmt.Sprintf(" AND NOT (id = ANY($%d))", next())
		args = append(args, f.ExcludeIDs)
	}
	query += " ORDER BY next_run_timestamp ASC, id ASC"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*engine.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) AddDependency(ctx context.Context, t engine.Tx, edge engine.DependencyEdge) error {
	q := unwrap(t)
	_, err := q.Exec(ctx, `
		INSERT INTO job_dependencies (waiter_id, blocker_id, continue_on_blocker_failure)
		VALUES ($1,$2,$3)
		ON CONFLICT (waiter_id, blocker_id) DO NOTHING
	`, edge.WaiterID, edge.BlockerID, edge.ContinueOnBlockerFailure)
	return err
}

func (s *Store) FetchDependencies(ctx context.Context, t engine.Tx, id int64) ([]engine.DependencyEdge, error) {
	q := unwrap(t)
	rows, err := q.Query(ctx, `SELECT waiter_id, blocker_id, continue_on_blocker_failure FROM job_dependencies WHERE waiter_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *Store) FetchAllDependencies(ctx context.Context, t engine.Tx) ([]engine.DependencyEdge, error) {
	q := unwrap(t)
	rows, err := q.Query(ctx, `SELECT waiter_id, blocker_id, continue_on_blocker_failure FROM job_dependencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows pgx.Rows) ([]engine.DependencyEdge, error) {
	var out []engine.DependencyEdge
	for rows.Next() {
		var e engine.DependencyEdge
		if err := rows.Scan(&e.WaiterID, &e.BlockerID, &e.ContinueOnBlockerFailure); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) MarkAllRunningAsRunnable(ctx context.Context, t engine.Tx) (int, error) {
	q := unwrap(t)
	tag, err := q.Exec(ctx, `UPDATE jobs SET status = $1 WHERE status = $2`, int(engine.StatusRunnable), int(engine.StatusRunning))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) MoveToDeadLetter(ctx context.Context, t engine.Tx, job *engine.Job, classification, message string) error {
	q := unwrap(t)
	_, err := q.Exec(ctx, `
		INSERT INTO dead_letter_jobs (original_job_id, variant, details, failure_count, classification, message)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, job.ID, string(job.Variant), job.Details, job.FailureCount, classification, message)
	if err != nil {
		return fmt.Errorf("insert dead letter row: %w", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, job.ID); err != nil {
		return fmt.Errorf("delete live job row: %w", err)
	}
	return nil
}

func (s *Store) ListDeadLetter(ctx context.Context, limit int) ([]engine.DeadLetterJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, original_job_id, variant, details, failure_count, classification, message, extract(epoch from created_at)::bigint
		FROM dead_letter_jobs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.DeadLetterJob
	for rows.Next() {
		var (
			d       engine.DeadLetterJob
			variant string
		)
		if err := rows.Scan(&d.ID, &d.OriginalJobID, &variant, &d.Details, &d.FailureCount, &d.Classification, &d.Message, &d.CreatedAtUnix); err != nil {
			return nil, err
		}
		d.Variant = engine.Variant(variant)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DiscardDeadLetter(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_jobs WHERE id = $1`, id)
	return err
}

func (s *Store) RetryDeadLetter(ctx context.Context, id int64) (int64, error) {
	t, err := s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer t.Rollback(ctx)

	q := unwrap(t)
	var (
		variant string
		details []byte
	)
	row := q.QueryRow(ctx, `SELECT variant, details FROM dead_letter_jobs WHERE id = $1`, id)
	if err := row.Scan(&variant, &details); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, engine.ErrDeadLetterNotFound
		}
		return 0, err
	}

	job := &engine.Job{Variant: engine.Variant(variant), Details: details, Status: engine.StatusRunnable}
	newID, err := s.Insert(ctx, t, job)
	if err != nil {
		return 0, err
	}
	if _, err := q.Exec(ctx, `DELETE FROM dead_letter_jobs WHERE id = $1`, id); err != nil {
		return 0, err
	}
	return newID, t.Commit(ctx)
}

func (s *Store) TryAcquireExclusiveRun(ctx context.Context, variant engine.Variant, holderID string, lease engine.Duration) (func(context.Context), bool, error) {
	expiresAt := time.Now().Add(time.Duration(lease) * time.Second)
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO exclusive_run_leases (variant, holder_id, expires_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (variant) DO UPDATE SET holder_id = EXCLUDED.holder_id, expires_at = EXCLUDED.expires_at
		WHERE exclusive_run_leases.expires_at < now()
	`, string(variant), holderID, expiresAt)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		s.pool.Exec(ctx, `DELETE FROM exclusive_run_leases WHERE variant = $1 AND holder_id = $2`, string(variant), holderID)
	}
	return release, true, nil
}

// SubscribeToCancellations LISTENs on the job_cancellations channel,
// grounded on the teacher's PostgresCoordinator.SubscribeToCancellations:
// a dedicated pooled connection, never released back while listening.
func (s *Store) SubscribeToCancellations(ctx context.Context) (<-chan int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN job_cancellations"); err != nil {
		conn.Release()
		return nil, err
	}

	out := make(chan int64)
	go func() {
		defer conn.Release()
		defer close(out)
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			var id int64
			if _, scanErr := fmt.Sscanf(notification.Payload, "%d", &id); scanErr != nil {
				continue
			}
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// NotifyCancellation pushes a job ID onto the job_cancellations
// channel for any process subscribed via SubscribeToCancellations.
func (s *Store) NotifyCancellation(ctx context.Context, jobID int64) error {
	_, err := s.pool.Exec(ctx, `SELECT pg_notify('job_cancellations', $1::text)`, fmt.Sprintf("%d", jobID))
	return err
}
