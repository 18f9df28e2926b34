package engine

import (
	"container/heap"
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// WakeReason names why the Runner woke up, used only for logging —
// the admission logic itself is identical regardless of reason
// (section 4.4).
type WakeReason string

const (
	WakeEnqueue             WakeReason = "enqueue"
	WakeDependencyResolved  WakeReason = "dependencyResolved"
	WakeTick                WakeReason = "tick"
	WakeAppBecameActive     WakeReason = "appBecameActive"
	WakeAppBecameInactive   WakeReason = "appBecameInactive"
	WakeCancelAll           WakeReason = "cancelAll"
)

// Telemetry bundles the optional tracer/meter the Runner emits spans
// and counters through (SPEC_FULL.md's ambient stack section). A zero
// Telemetry value is valid — the Runner then emits no spans and
// records no metrics.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter
}

// Runner is the central scheduler (section 4.4). Run's loop performs
// admission; each admitted job runs in its own goroutine of the
// pass's errgroup, which also applies that job's outcome (applyOutcome)
// and its dependency wake-ups. Shared state is guarded by mutexes, and
// Run waits for all of a pass's goroutines before the next pass.
type Runner struct {
	store     Store
	registry  *Registry
	queueSet  *QueueSet
	depGraph  *DependencyGraph
	lifecycle *LifecycleController
	cfg       RunnerConfig
	rc        *Context
	tel       Telemetry
	logger    *slog.Logger

	wake chan WakeReason

	mu        sync.Mutex
	heapItems tickHeap
	active    bool // app-active state, for recurringOnActive release

	// lastActiveFullRun and activeReleaseMinimal implement the
	// recurringOnActive full-vs-minimal decision (section 4.4, 4.10,
	// testable scenario S3), keyed by variant so the mechanism is not
	// specific to garbageCollection.
	lastActiveFullRun    map[Variant]int64
	activeReleaseMinimal map[Variant]bool

	counters runnerCounters
}

type runnerCounters struct {
	admitted  metric.Int64Counter
	succeeded metric.Int64Counter
	deferred  metric.Int64Counter
	failed    metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewRunner constructs a Runner. rc.Store is overridden with store to
// guarantee the Runner and its executors always observe the same Job
// Record Store instance.
func NewRunner(store Store, registry *Registry, cfg RunnerConfig, rc *Context, tel Telemetry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	rcCopy := *rc
	rcCopy.Store = store
	r := &Runner{
		store:                store,
		registry:             registry,
		queueSet:             NewQueueSet(registry),
		depGraph:             NewDependencyGraph(),
		lifecycle:            newLifecycleController(),
		cfg:                  cfg,
		rc:                   &rcCopy,
		tel:                  tel,
		logger:               logger,
		wake:                 make(chan WakeReason, 1),
		lastActiveFullRun:    make(map[Variant]int64),
		activeReleaseMinimal: make(map[Variant]bool),
	}
	r.initCounters()
	return r
}

func (r *Runner) initCounters() {
	if r.tel.Meter == nil {
		return
	}
	r.counters.admitted, _ = r.tel.Meter.Int64Counter("jobengine.jobs.admitted")
	r.counters.succeeded, _ = r.tel.Meter.Int64Counter("jobengine.jobs.succeeded")
	r.counters.deferred, _ = r.tel.Meter.Int64Counter("jobengine.jobs.deferred")
	r.counters.failed, _ = r.tel.Meter.Int64Counter("jobengine.jobs.failed")
	r.counters.latency, _ = r.tel.Meter.Float64Histogram("jobengine.jobs.run_duration_seconds")
}

// Lifecycle exposes cancel/suspend/resume operations to callers
// outside the Runner's own goroutine (section 4.8).
func (r *Runner) Lifecycle() *LifecycleController { return r.lifecycle }

// Cancel implements section 4.8's cancel(id) in full: "if running,
// signal cancellation to executor... if pending, delete." The
// in-process LifecycleController only covers the running half;
// Cancel additionally deletes the row outright when it is not
// currently running, forgetting its dependency edges so no waiter is
// left referencing a row that no longer exists (invariant I4). Safe
// to call from every process sharing the Store when a cancellation is
// broadcast cross-process (cmd/worker's LISTEN/NOTIFY bridge): a
// process where the job is actually running signals it via the
// LifecycleController; every process attempts the delete, and only
// the one that observes a non-running row (or the row already gone)
// does anything.
func (r *Runner) Cancel(ctx context.Context, jobID int64) error {
	r.lifecycle.Cancel(jobID)

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	job, err := r.store.FetchOne(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if job == nil || job.Status == StatusRunning {
		return nil
	}
	if err := r.store.Delete(ctx, tx, jobID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.depGraph.Forget(jobID)
	return nil
}

// CancelAll implements the batch half of section 4.8: signal
// cancellation to every running job (optionally scoped to variant)
// and delete every pending one in the same scope.
func (r *Runner) CancelAll(ctx context.Context, variant *Variant) error {
	r.lifecycle.CancelAll(variant)

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	jobs, err := r.store.FetchByFilter(ctx, tx, Filter{Variant: variant})
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.Status == StatusRunning {
			continue
		}
		if err := r.store.Delete(ctx, tx, job.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	for _, job := range jobs {
		if job.Status != StatusRunning {
			r.depGraph.Forget(job.ID)
		}
	}
	return nil
}

// Wake requests that the Runner re-evaluate admission on its next
// loop iteration. Non-blocking: a pending wake signal coalesces with
// any reason already queued.
func (r *Runner) Wake(reason WakeReason) {
	select {
	case r.wake <- reason:
	default:
	}
}

// SetActive records an appBecameActive/appBecameInactive transition
// and wakes the Runner so recurringOnActive jobs can be released
// (section 4.4).
func (r *Runner) SetActive(active bool) {
	r.mu.Lock()
	wasActive := r.active
	r.active = active
	r.mu.Unlock()
	if active && !wasActive {
		// Run releases only on WakeAppBecameActive, so a reason still
		// queued (e.g. appBecameInactive) is drained first instead of
		// letting it swallow this one.
		select {
		case <-r.wake:
		default:
		}
		r.Wake(WakeAppBecameActive)
	} else if !active && wasActive {
		r.Wake(WakeAppBecameInactive)
	}
}

// releaseRecurringOnActive implements section 4.4's "On
// inactive→active transition, release recurringOnActive variants":
// parked rows (decide, outcome.go, parks them as StatusDeferred
// rather than StatusRunnable on success) are flipped back to runnable,
// and a variant with no live row yet gets its first row inserted here
// rather than at Startup, since recurringOnActive is deliberately
// excluded from Startup's recurring/recurringOnLaunch enqueue pass.
// Also decides, per variant, whether this release is a full or
// minimal-cleanup pass (testable scenario S3).
func (r *Runner) releaseRecurringOnActive(ctx context.Context) {
	clock := r.rc.Clock
	if clock == nil {
		clock = SystemClock
	}
	nowUnix := clock.Now().Unix()

	var anyReleased bool
	for _, variant := range r.registry.Variants() {
		desc, _ := r.registry.Lookup(variant)
		if desc.DefaultBehaviour != BehaviourRecurringOnActive {
			continue
		}
		if r.releaseOneRecurringOnActive(ctx, variant, desc) {
			anyReleased = true
			r.recordActiveRelease(variant, nowUnix)
		}
	}
	if anyReleased {
		r.Wake(WakeEnqueue)
	}
}

func (r *Runner) releaseOneRecurringOnActive(ctx context.Context, variant Variant, desc ExecutorDescriptor) bool {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to begin recurringOnActive release", "variant", variant, "error", err)
		return false
	}
	defer tx.Rollback(ctx)

	v := variant
	jobs, err := r.store.FetchByFilter(ctx, tx, Filter{Variant: &v})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to fetch recurringOnActive jobs", "variant", variant, "error", err)
		return false
	}

	released := false
	hasLive := false
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			continue
		}
		hasLive = true
		if job.Status != StatusDeferred {
			continue
		}
		job.Status = StatusRunnable
		job.NextRunTimestamp = 0
		if err := r.store.Update(ctx, tx, job); err != nil {
			r.logger.ErrorContext(ctx, "failed to release parked recurringOnActive job", "job_id", job.ID, "error", err)
			return false
		}
		released = true
	}
	if !released && !hasLive {
		job := &Job{Variant: variant, Behaviour: desc.DefaultBehaviour, Status: StatusRunnable}
		if _, err := r.store.Insert(ctx, tx, job); err != nil {
			r.logger.ErrorContext(ctx, "failed to enqueue recurringOnActive job on activation", "variant", variant, "error", err)
			return false
		}
		released = true
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to commit recurringOnActive release", "variant", variant, "error", err)
		return false
	}
	return released
}

func (r *Runner) recordActiveRelease(variant Variant, nowUnix int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last, seen := r.lastActiveFullRun[variant]
	minimal := seen && nowUnix-last < int64(r.cfg.recurringOnActiveCooldown().Seconds())
	if !minimal {
		r.lastActiveFullRun[variant] = nowUnix
	}
	r.activeReleaseMinimal[variant] = minimal
}

func (r *Runner) isMinimalActiveRelease(variant Variant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeReleaseMinimal[variant]
}

// Startup implements the crash-recovery and launch-enqueue protocol
// (section 4.4): running rows are reset to runnable, dependency edges
// are loaded, and recurringOnLaunch/recurring variants with no active
// row are enqueued.
func (r *Runner) Startup(ctx context.Context) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	n, err := r.store.MarkAllRunningAsRunnable(ctx, tx)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "recovered running jobs after restart", "count", n)
	}

	edges, err := r.store.FetchAllDependencies(ctx, tx)
	if err != nil {
		return err
	}
	r.depGraph.Load(edges)

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, variant := range r.registry.Variants() {
		desc, _ := r.registry.Lookup(variant)
		if desc.DefaultBehaviour != BehaviourRecurring && desc.DefaultBehaviour != BehaviourRecurringOnLaunch {
			continue
		}
		if err := r.ensureActiveRecurring(ctx, variant, desc); err != nil {
			r.logger.ErrorContext(ctx, "failed to ensure recurring job on launch", "variant", variant, "error", err)
		}
	}

	r.Wake(WakeEnqueue)
	return nil
}

func (r *Runner) ensureActiveRecurring(ctx context.Context, variant Variant, desc ExecutorDescriptor) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	v := variant
	jobs, err := r.store.FetchByFilter(ctx, tx, Filter{Variant: &v})
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if !j.Status.IsTerminal() {
			return tx.Commit(ctx)
		}
	}
	job := &Job{Variant: variant, Behaviour: desc.DefaultBehaviour, Status: StatusRunnable}
	if _, err := r.store.Insert(ctx, tx, job); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Run is the Runner's main loop. It blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-r.wake:
			r.logger.DebugContext(ctx, "runner woke", "reason", reason)
			if reason == WakeAppBecameActive {
				r.releaseRecurringOnActive(ctx)
			}
		case <-r.nextTickTimer():
		case <-time.After(r.cfg.PollInterval):
		}
		r.prunePastTicks()
		if err := r.admitOnce(ctx); err != nil {
			r.logger.ErrorContext(ctx, "admission pass failed", "error", err)
		}
	}
}

func (r *Runner) nextTickTimer() <-chan time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.heapItems) == 0 {
		return nil
	}
	next := r.heapItems[0]
	d := time.Until(time.Unix(next, 0))
	if d < 0 {
		d = 0
	}
	return time.After(d)
}

func (r *Runner) scheduleTick(nextRunUnix int64) {
	if nextRunUnix <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	heap.Push(&r.heapItems, nextRunUnix)
}

// prunePastTicks discards heap entries at or before now, since
// admitOnce re-scans every runnable row on each pass regardless of
// the heap's contents — the heap exists only to choose how long to
// sleep, not as the source of truth for what is due.
func (r *Runner) prunePastTicks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().Unix()
	for len(r.heapItems) > 0 && r.heapItems[0] <= now {
		heap.Pop(&r.heapItems)
	}
}

// admitOnce performs one admission pass: for each variant's Queue,
// select eligible runnable jobs ordered by (nextRunTimestamp, id),
// admit until the concurrency cap is filled, and spawn execution
// tasks bound to the Runner's group (section 4.4).
func (r *Runner) admitOnce(ctx context.Context) error {
	if r.lifecycle.IsSuspended() {
		return nil
	}

	now := r.rc.Clock
	if now == nil {
		now = SystemClock
	}
	nowUnix := now.Now().Unix()

	g, gctx := errgroup.WithContext(ctx)
	for _, variant := range r.registry.Variants() {
		variant := variant
		desc, _ := r.registry.Lookup(variant)
		queue := r.queueSet.For(variant)
		if queue == nil {
			continue
		}

		tx, err := r.store.Begin(ctx)
		if err != nil {
			return err
		}
		v := variant
		status := StatusRunnable
		candidates, err := r.store.FetchByFilter(ctx, tx, Filter{Variant: &v, Status: &status})
		tx.Rollback(ctx)
		if err != nil {
			return err
		}

		for _, job := range candidates {
			if job.NextRunTimestamp > nowUnix {
				r.scheduleTick(job.NextRunTimestamp)
				continue
			}
			if r.depGraph.IsBlocked(job.ID) {
				continue
			}
			if !queue.Admit(job.ThreadID) {
				continue
			}

			var releaseLease func(context.Context)
			if queue.Policy().Kind == AdmissionKindSingleInstance {
				rel, acquired, err := r.store.TryAcquireExclusiveRun(ctx, variant, r.cfg.WorkerID, int64(r.cfg.ExclusiveRunLease.Seconds()))
				if err != nil {
					r.logger.ErrorContext(ctx, "failed to acquire exclusive run lease", "variant", variant, "error", err)
					queue.Release(job.ThreadID)
					continue
				}
				if !acquired {
					// Another process already holds this
					// single-instance variant's lease (section 5).
					queue.Release(job.ThreadID)
					continue
				}
				releaseLease = rel
			}

			job := job
			g.Go(func() error {
				defer queue.Release(job.ThreadID)
				if releaseLease != nil {
					defer releaseLease(context.Background())
				}
				r.runOne(gctx, job, desc)
				return nil
			})
		}
	}
	return g.Wait()
}

// runOne transitions one job runnable->running, invokes its
// executor with panic recovery, and applies the outcome policy.
// Errors are logged, never propagated, so one job's failure never
// aborts the admission pass for its siblings (section 5).
func (r *Runner) runOne(ctx context.Context, job *Job, desc ExecutorDescriptor) {
	if r.counters.admitted != nil {
		r.counters.admitted.Add(ctx, 1, metric.WithAttributes())
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to begin admission transaction", "job_id", job.ID, "error", err)
		return
	}
	job.Status = StatusRunning
	if err := r.store.Update(ctx, tx, job); err != nil {
		tx.Rollback(ctx)
		r.logger.ErrorContext(ctx, "failed to mark job running", "job_id", job.ID, "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to commit running transition", "job_id", job.ID, "error", err)
		return
	}

	token := &cancellationToken{}
	execCtx, cancel := context.WithCancel(ctx)
	r.lifecycle.register(job.ID, job.Variant, token, cancel)
	defer r.lifecycle.unregister(job.ID)
	execCtx = withCancellationToken(execCtx, token)
	if job.Behaviour == BehaviourRecurringOnActive {
		execCtx = withRecurringOnActiveMinimal(execCtx, r.isMinimalActiveRelease(job.Variant))
	}

	var span trace.Span
	if r.tel.Tracer != nil {
		execCtx, span = r.tel.Tracer.Start(execCtx, "jobengine."+string(job.Variant)+".execute")
		defer span.End()
	}

	start := time.Now()
	outcome, execErr := r.invoke(execCtx, desc, job)
	elapsed := time.Since(start).Seconds()
	if r.counters.latency != nil {
		r.counters.latency.Record(ctx, elapsed)
	}
	cancel()

	r.applyOutcome(ctx, job, desc, outcome, execErr)
}

// invoke calls the executor with panic recovery, converting a panic
// into a PermanentFailureError carrying the stack trace (supplemented
// feature, grounded on the teacher's executeWithRecovery).
func (r *Runner) invoke(ctx context.Context, desc ExecutorDescriptor, job *Job) (outcome Outcome, err error) {
	if desc.Execute == nil {
		return Outcome{}, PermanentFailureError{Cause: errUnimplementedExecutor(job.Variant)}
	}
	defer func() {
		if rec := recover(); rec != nil {
			stack := string(debug.Stack())
			r.logger.ErrorContext(ctx, "executor panicked", "job_id", job.ID, "variant", job.Variant, "panic", rec, "stack", stack)
			err = PermanentFailureError{Cause: panicError{value: rec, stack: stack}}
		}
	}()
	return desc.Execute(ctx, job, r.rc)
}

type panicError struct {
	value any
	stack string
}

func (p panicError) Error() string { return "panic during executor invocation" }

func errUnimplementedExecutor(v Variant) error {
	return unimplementedExecutorError{variant: v}
}

type unimplementedExecutorError struct{ variant Variant }

func (e unimplementedExecutorError) Error() string {
	return "jobengine: no executor registered for variant " + string(e.variant)
}

// applyOutcome applies the decided transition within a single write
// transaction and fires dependency wake-ups (section 4.4, 4.5).
func (r *Runner) applyOutcome(ctx context.Context, job *Job, desc ExecutorDescriptor, outcome Outcome, execErr error) {
	clock := r.rc.Clock
	if clock == nil {
		clock = SystemClock
	}
	d := decide(job, desc, outcome, execErr, clock.Now(), r.cfg.backoff())

	tx, err := r.store.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to begin outcome transaction", "job_id", job.ID, "error", err)
		return
	}
	defer tx.Rollback(ctx)

	var blockerFailed bool
	switch d.action {
	case actionDeleteSucceeded:
		if err := r.store.Delete(ctx, tx, job.ID); err != nil {
			r.logger.ErrorContext(ctx, "failed to delete completed job", "job_id", job.ID, "error", err)
			return
		}
		if outcome.Successor != nil {
			if _, err := r.store.Insert(ctx, tx, outcome.Successor); err != nil {
				r.logger.ErrorContext(ctx, "failed to insert successor job", "job_id", job.ID, "error", err)
				return
			}
		}
		if r.counters.succeeded != nil {
			r.counters.succeeded.Add(ctx, 1)
		}
	case actionRescheduleSuccess, actionRedeferDeferred, actionIncrementAndRetry, actionReturnToRunnableCancelled:
		if err := r.store.Update(ctx, tx, d.updatedJob); err != nil {
			r.logger.ErrorContext(ctx, "failed to update job after outcome", "job_id", job.ID, "error", err)
			return
		}
		if d.action == actionRedeferDeferred && r.counters.deferred != nil {
			r.counters.deferred.Add(ctx, 1)
		}
		r.scheduleTick(d.updatedJob.NextRunTimestamp)
	case actionPermanentlyFail:
		blockerFailed = true
		classification := "permanent"
		msg := ""
		if execErr != nil {
			msg = execErr.Error()
		}
		if err := r.store.MoveToDeadLetter(ctx, tx, job, classification, msg); err != nil {
			r.logger.ErrorContext(ctx, "failed to move job to dead letter", "job_id", job.ID, "error", err)
			return
		}
		if r.counters.failed != nil {
			r.counters.failed.Add(ctx, 1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to commit outcome transaction", "job_id", job.ID, "error", err)
		return
	}

	if d.action == actionDeleteSucceeded && outcome.Successor != nil {
		r.scheduleTick(outcome.Successor.NextRunTimestamp)
		r.Wake(WakeTick)
	}

	if d.action == actionDeleteSucceeded || d.action == actionPermanentlyFail {
		unblocked, cascade := r.depGraph.Resolve(job.ID, blockerFailed)
		for _, waiterID := range unblocked {
			r.setRunnable(ctx, waiterID)
		}
		for _, waiterID := range cascade {
			r.cascadeFail(ctx, waiterID)
		}
		if len(unblocked) > 0 {
			r.Wake(WakeDependencyResolved)
		}
	}
}

func (r *Runner) setRunnable(ctx context.Context, jobID int64) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return
	}
	defer tx.Rollback(ctx)
	job, err := r.store.FetchOne(ctx, tx, jobID)
	if err != nil || job == nil {
		return
	}
	job.Status = StatusRunnable
	if err := r.store.Update(ctx, tx, job); err != nil {
		return
	}
	tx.Commit(ctx)
}

// cascadeFail permanently fails jobID because its blocker permanently
// failed, then recurses onto jobID's own waiters so a failure
// propagates through an arbitrarily deep dependency chain (C waits on
// B waits on A: A failing must also fail C, not just B) — section 4.6.
func (r *Runner) cascadeFail(ctx context.Context, jobID int64) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return
	}
	job, err := r.store.FetchOne(ctx, tx, jobID)
	if err != nil || job == nil {
		tx.Rollback(ctx)
		return
	}
	if err := r.store.MoveToDeadLetter(ctx, tx, job, "cascaded-blocker-failure", "blocker permanently failed"); err != nil {
		tx.Rollback(ctx)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		return
	}

	unblocked, cascade := r.depGraph.Resolve(jobID, true)
	r.depGraph.Forget(jobID)
	for _, waiterID := range unblocked {
		r.setRunnable(ctx, waiterID)
	}
	for _, waiterID := range cascade {
		r.cascadeFail(ctx, waiterID)
	}
	if len(unblocked) > 0 {
		r.Wake(WakeDependencyResolved)
	}
}

// tickHeap is a min-heap of unix timestamps, used to wake the Runner
// exactly when the earliest deferred job becomes due (section 4.4).
type tickHeap []int64

func (h tickHeap) Len() int            { return len(h) }
func (h tickHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h tickHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x any)         { *h = append(*h, x.(int64)) }
func (h *tickHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
