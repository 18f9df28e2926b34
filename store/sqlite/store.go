package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/session-mesh/jobengine/engine"
)

// Store implements engine.Store against a single-writer SQLite
// database/sql handle.
type Store struct {
	db *sql.DB
}

func (s *Store) Close() error { return s.db.Close() }

type tx struct{ *sql.Tx }

func (t *tx) Commit(ctx context.Context) error   { return t.Tx.Commit() }
func (t *tx) Rollback(ctx context.Context) error { return t.Tx.Rollback() }

func (s *Store) Begin(ctx context.Context) (engine.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &tx{sqlTx}, nil
}

func unwrap(t engine.Tx) *sql.Tx { return t.(*tx).Tx }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) Insert(ctx context.Context, t engine.Tx, job *engine.Job) (int64, error) {
	q := unwrap(t)
	res, err := q.ExecContext(ctx, `
		INSERT INTO jobs (variant, behaviour, should_be_unique, thread_id, interaction_id, details, details_hash, failure_count, next_run_timestamp, status)
		VALUES (?,?,?,?,?,?,?,?,?,?)
	`, string(job.Variant), int(job.Behaviour), boolToInt(job.ShouldBeUnique), job.ThreadID, job.InteractionID,
		job.Details, job.DetailsHash(), job.FailureCount, job.NextRunTimestamp, int(job.Status))
	if err != nil {
		if isUniqueViolation(err) {
			// invariant I3: a live row already claims this
			// variant+thread+detailsHash slot; nothing is merged,
			// and the zero id tells the caller no row was inserted.
			return 0, nil
		}
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	job.ID = id
	return id, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
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
	_, err := q.ExecContext(ctx, `
		INSERT INTO jobs (id, variant, behaviour, should_be_unique, thread_id, interaction_id, details, details_hash, failure_count, next_run_timestamp, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			behaviour = excluded.behaviour,
			thread_id = excluded.thread_id,
			interaction_id = excluded.interaction_id,
			details = excluded.details,
			details_hash = excluded.details_hash,
			failure_count = excluded.failure_count,
			next_run_timestamp = excluded.next_run_timestamp,
			status = excluded.status
	`, job.ID, string(job.Variant), int(job.Behaviour), boolToInt(job.ShouldBeUnique), job.ThreadID, job.InteractionID,
		job.Details, job.DetailsHash(), job.FailureCount, job.NextRunTimestamp, int(job.Status))
	return err
}

func (s *Store) Update(ctx context.Context, t engine.Tx, job *engine.Job) error {
	q := unwrap(t)
	_, err := q.ExecContext(ctx, `
		UPDATE jobs SET
			behaviour = ?, thread_id = ?, interaction_id = ?, details = ?,
			details_hash = ?, failure_count = ?, next_run_timestamp = ?, status = ?
		WHERE id = ?
	`, int(job.Behaviour), job.ThreadID, job.InteractionID, job.Details,
		job.DetailsHash(), job.FailureCount, job.NextRunTimestamp, int(job.Status), job.ID)
	return err
}

func (s *Store) Delete(ctx context.Context, t engine.Tx, id int64) error {
	q := unwrap(t)
	_, err := q.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return err
}

func (s *Store) FetchOne(ctx context.Context, t engine.Tx, id int64) (*engine.Job, error) {
	q := unwrap(t)
	row := q.QueryRowContext(ctx, `
		SELECT id, variant, behaviour, should_be_unique, thread_id, interaction_id, details, failure_count, next_run_timestamp, status
		FROM jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*engine.Job, error) {
	var (
		j            engine.Job
		variant      string
		behaviour    int
		status       int
		uniqueFlag   int
		threadID     sql.NullString
		interactionID sql.NullString
	)
	if err := row.Scan(&j.ID, &variant, &behaviour, &uniqueFlag, &threadID, &interactionID, &j.Details, &j.FailureCount, &j.NextRunTimestamp, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	j.Variant = engine.Variant(variant)
	j.Behaviour = engine.Behaviour(behaviour)
	j.Status = engine.Status(status)
	j.ShouldBeUnique = uniqueFlag != 0
	if threadID.Valid {
		j.ThreadID = &threadID.String
	}
	if interactionID.Valid {
		j.InteractionID = &interactionID.String
	}
	return &j, nil
}

func (s *Store) FetchByFilter(ctx context.Context, t engine.Tx, f engine.Filter) ([]*engine.Job, error) {
	q := unwrap(t)
	query := `SELECT id, variant, behaviour, should_be_unique, thread_id, interaction_id, details, failure_count, next_run_timestamp, status FROM jobs WHERE 1=1`
	var args []any
	if f.Variant != nil {
		query += " AND variant = ?"
		args = append(args, string(*f.Variant))
	}
	if f.ThreadID != nil {
		query += " AND thread_id = ?"
		args = append(args, *f.ThreadID)
	}
	if f.Status != nil {
		query += " AND status = ?"
		args = append(args, int(*f.Status))
	}
	for _, id := range f.ExcludeIDs {
		query += " AND id <> ?"
		args = append(args, id)
	}
	query += " ORDER BY next_run_timestamp ASC, id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
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
	_, err := q.ExecContext(ctx, `
		INSERT INTO job_dependencies (waiter_id, blocker_id, continue_on_blocker_failure)
		VALUES (?,?,?)
		ON CONFLICT (waiter_id, blocker_id) DO NOTHING
	`, edge.WaiterID, edge.BlockerID, boolToInt(edge.ContinueOnBlockerFailure))
	return err
}

func (s *Store) FetchDependencies(ctx context.Context, t engine.Tx, id int64) ([]engine.DependencyEdge, error) {
	q := unwrap(t)
	rows, err := q.QueryContext(ctx, `SELECT waiter_id, blocker_id, continue_on_blocker_failure FROM job_dependencies WHERE waiter_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *Store) FetchAllDependencies(ctx context.Context, t engine.Tx) ([]engine.DependencyEdge, error) {
	q := unwrap(t)
	rows, err := q.QueryContext(ctx, `SELECT waiter_id, blocker_id, continue_on_blocker_failure FROM job_dependencies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]engine.DependencyEdge, error) {
	var out []engine.DependencyEdge
	for rows.Next() {
		var (
			e        engine.DependencyEdge
			continueFlag int
		)
		if err := rows.Scan(&e.WaiterID, &e.BlockerID, &continueFlag); err != nil {
			return nil, err
		}
		e.ContinueOnBlockerFailure = continueFlag != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) MarkAllRunningAsRunnable(ctx context.Context, t engine.Tx) (int, error) {
	q := unwrap(t)
	res, err := q.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE status = ?`, int(engine.StatusRunnable), int(engine.StatusRunning))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) MoveToDeadLetter(ctx context.Context, t engine.Tx, job *engine.Job, classification, message string) error {
	q := unwrap(t)
	_, err := q.ExecContext(ctx, `
		INSERT INTO dead_letter_jobs (original_job_id, variant, details, failure_count, classification, message)
		VALUES (?,?,?,?,?,?)
	`, job.ID, string(job.Variant), job.Details, job.FailureCount, classification, message)
	if err != nil {
		return fmt.Errorf("insert dead letter row: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, job.ID); err != nil {
		return fmt.Errorf("delete live job row: %w", err)
	}
	return nil
}

func (s *Store) ListDeadLetter(ctx context.Context, limit int) ([]engine.DeadLetterJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_job_id, variant, details, failure_count, classification, message, created_at
		FROM dead_letter_jobs ORDER BY created_at DESC LIMIT ?
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
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_jobs WHERE id = ?`, id)
	return err
}

func (s *Store) RetryDeadLetter(ctx context.Context, id int64) (int64, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer sqlTx.Rollback()
	t := &tx{sqlTx}

	var (
		variant string
		details []byte
	)
	row := sqlTx.QueryRowContext(ctx, `SELECT variant, details FROM dead_letter_jobs WHERE id = ?`, id)
	if err := row.Scan(&variant, &details); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, engine.ErrDeadLetterNotFound
		}
		return 0, err
	}

	job := &engine.Job{Variant: engine.Variant(variant), Details: details, Status: engine.StatusRunnable}
	newID, err := s.Insert(ctx, t, job)
	if err != nil {
		return 0, err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM dead_letter_jobs WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return newID, t.Commit(ctx)
}

func (s *Store) TryAcquireExclusiveRun(ctx context.Context, variant engine.Variant, holderID string, lease engine.Duration) (func(context.Context), bool, error) {
	now := time.Now().Unix()
	expiresAt := now + int64(lease)

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer sqlTx.Rollback()

	var existingExpiry int64
	err = sqlTx.QueryRowContext(ctx, `SELECT expires_at FROM exclusive_run_leases WHERE variant = ?`, string(variant)).Scan(&existingExpiry)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := sqlTx.ExecContext(ctx, `INSERT INTO exclusive_run_leases (variant, holder_id, expires_at) VALUES (?,?,?)`, string(variant), holderID, expiresAt); err != nil {
			return nil, false, err
		}
	case err != nil:
		return nil, false, err
	case existingExpiry >= now:
		return nil, false, nil
	default:
		if _, err := sqlTx.ExecContext(ctx, `UPDATE exclusive_run_leases SET holder_id = ?, expires_at = ? WHERE variant = ?`, holderID, expiresAt, string(variant)); err != nil {
			return nil, false, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, false, err
	}

	release := func(ctx context.Context) {
		s.db.ExecContext(ctx, `DELETE FROM exclusive_run_leases WHERE variant = ? AND holder_id = ?`, string(variant), holderID)
	}
	return release, true, nil
}
