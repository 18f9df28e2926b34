package sqlite

import (
	"context"
	"testing"

	"github.com/session-mesh/jobengine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), DBConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustBegin(t *testing.T, s *Store) engine.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func TestSQLiteInsertAndFetchOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := mustBegin(t, s)
	defer tx.Commit(ctx)

	job := &engine.Job{Variant: engine.VariantMessageSend, Behaviour: engine.BehaviourRunOnce, Status: engine.StatusRunnable, Details: []byte(`{}`)}
	id, err := s.Insert(ctx, tx, job)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a nonzero id")
	}

	got, err := s.FetchOne(ctx, tx, id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got == nil || got.Variant != engine.VariantMessageSend {
		t.Fatalf("expected to fetch back the inserted job, got %+v", got)
	}
}

func TestSQLiteFetchByFilterOrdersByNextRunThenID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := mustBegin(t, s)
	defer tx.Commit(ctx)

	variant := engine.VariantMessageSend
	status := engine.StatusRunnable
	for _, ts := range []int64{300, 100, 200, 100} {
		s.Insert(ctx, tx, &engine.Job{Variant: variant, Status: status, NextRunTimestamp: ts, Details: []byte(`{}`)})
	}

	jobs, err := s.FetchByFilter(ctx, tx, engine.Filter{Variant: &variant, Status: &status})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("expected 4 jobs, got %d", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		prev, cur := jobs[i-1], jobs[i]
		if cur.NextRunTimestamp < prev.NextRunTimestamp ||
			(cur.NextRunTimestamp == prev.NextRunTimestamp && cur.ID < prev.ID) {
			t.Fatalf("expected stable (nextRunTimestamp, id) ordering, got %+v", jobs)
		}
	}
}

func TestSQLiteShouldBeUniqueRejectsDuplicateInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := mustBegin(t, s)
	defer tx.Commit(ctx)

	thread := "t1"
	job1 := &engine.Job{Variant: engine.VariantSendReadReceipts, ShouldBeUnique: true, ThreadID: &thread, Status: engine.StatusRunnable, Details: []byte(`{"a":1}`)}
	id1, err := s.Insert(ctx, tx, job1)
	if err != nil || id1 == 0 {
		t.Fatalf("first insert should succeed, got id=%d err=%v", id1, err)
	}

	job2 := &engine.Job{Variant: engine.VariantSendReadReceipts, ShouldBeUnique: true, ThreadID: &thread, Status: engine.StatusRunnable, Details: []byte(`{"a":1}`)}
	id2, err := s.Insert(ctx, tx, job2)
	if err != nil {
		t.Fatalf("a unique collision must not surface as an error: %v", err)
	}
	if id2 != 0 {
		t.Fatalf("expected zero id signalling a collision with an existing pending row, got %d", id2)
	}
}

func TestSQLiteDependencyEdgesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := mustBegin(t, s)
	defer tx.Commit(ctx)

	blocker, _ := s.Insert(ctx, tx, &engine.Job{Variant: engine.VariantAttachmentUpload, Status: engine.StatusRunnable, Details: []byte(`{}`)})
	waiter, _ := s.Insert(ctx, tx, &engine.Job{Variant: engine.VariantMessageSend, Status: engine.StatusPendingDependencies, Details: []byte(`{}`)})

	if err := s.AddDependency(ctx, tx, engine.DependencyEdge{WaiterID: waiter, BlockerID: blocker}); err != nil {
		t.Fatalf("add dependency: %v", err)
	}

	edges, err := s.FetchDependencies(ctx, tx, waiter)
	if err != nil {
		t.Fatalf("fetch dependencies: %v", err)
	}
	if len(edges) != 1 || edges[0].BlockerID != blocker {
		t.Fatalf("expected one edge pointing at the blocker, got %+v", edges)
	}

	all, err := s.FetchAllDependencies(ctx, tx)
	if err != nil {
		t.Fatalf("fetch all dependencies: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one edge overall, got %d", len(all))
	}
}

func TestSQLiteMarkAllRunningAsRunnableOnStartup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := mustBegin(t, s)
	defer tx.Commit(ctx)

	id, _ := s.Insert(ctx, tx, &engine.Job{Variant: engine.VariantMessageSend, Status: engine.StatusRunning, Details: []byte(`{}`)})

	n, err := s.MarkAllRunningAsRunnable(ctx, tx)
	if err != nil {
		t.Fatalf("mark all running: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row reset, got %d", n)
	}

	got, _ := s.FetchOne(ctx, tx, id)
	if got.Status != engine.StatusRunnable {
		t.Fatalf("expected status runnable after crash recovery, got %v", got.Status)
	}
}

func TestSQLiteDeadLetterLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := mustBegin(t, s)
	id, _ := s.Insert(ctx, tx, &engine.Job{Variant: engine.VariantMessageSend, Status: engine.StatusRunning, FailureCount: 10, Details: []byte(`{"x":1}`)})
	job, _ := s.FetchOne(ctx, tx, id)
	if err := s.MoveToDeadLetter(ctx, tx, job, "exhausted-retries", "too many failures"); err != nil {
		t.Fatalf("move to dead letter: %v", err)
	}
	tx.Commit(ctx)

	tx2 := mustBegin(t, s)
	got, _ := s.FetchOne(ctx, tx2, id)
	tx2.Commit(ctx)
	if got != nil {
		t.Fatal("expected the live job row to be gone after dead-lettering")
	}

	rows, err := s.ListDeadLetter(ctx, 10)
	if err != nil {
		t.Fatalf("list dead letter: %v", err)
	}
	if len(rows) != 1 || rows[0].OriginalJobID != id {
		t.Fatalf("expected one dead-letter row for job %d, got %+v", id, rows)
	}

	newID, err := s.RetryDeadLetter(ctx, rows[0].ID)
	if err != nil {
		t.Fatalf("retry dead letter: %v", err)
	}
	if newID == 0 {
		t.Fatal("expected a fresh job id from retrying a dead-letter row")
	}

	tx3 := mustBegin(t, s)
	retried, _ := s.FetchOne(ctx, tx3, newID)
	tx3.Commit(ctx)
	if retried == nil || retried.FailureCount != 0 {
		t.Fatalf("expected the retried job to start with a reset failure count, got %+v", retried)
	}

	remaining, _ := s.ListDeadLetter(ctx, 10)
	if len(remaining) != 0 {
		t.Fatal("expected the dead-letter row to be gone after a successful retry")
	}

	if err := s.DiscardDeadLetter(ctx, 999); err != nil {
		t.Fatalf("discarding a nonexistent row must be a no-op, got %v", err)
	}
}

func TestSQLiteTryAcquireExclusiveRunIsMutuallyExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	release, ok, err := s.TryAcquireExclusiveRun(ctx, engine.VariantGarbageCollection, "worker-a", 60)
	if err != nil || !ok {
		t.Fatalf("expected the first holder to acquire the lease, ok=%v err=%v", ok, err)
	}

	_, ok2, err := s.TryAcquireExclusiveRun(ctx, engine.VariantGarbageCollection, "worker-b", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok2 {
		t.Fatal("a second holder must not acquire an unexpired lease")
	}

	release(ctx)

	_, ok3, err := s.TryAcquireExclusiveRun(ctx, engine.VariantGarbageCollection, "worker-b", 60)
	if err != nil || !ok3 {
		t.Fatalf("expected worker-b to acquire after release, ok=%v err=%v", ok3, err)
	}
}
