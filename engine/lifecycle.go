package engine

import (
	"context"
	"sync"
)

// cancellationToken is handed to an executor's invocation context via
// context.WithValue so cooperative cancellation checks
// (CheckCancelled) can observe it without threading an extra
// parameter through every executor signature.
type cancellationKey struct{}

type cancellationToken struct {
	mu        sync.Mutex
	cancelled bool
}

func withCancellationToken(ctx context.Context, tok *cancellationToken) context.Context {
	return context.WithValue(ctx, cancellationKey{}, tok)
}

// CheckCancelled is the cooperative cancellation check executors must
// call after every suspension point (section 5). It returns
// CancelledError once the job's cancellation has been requested.
func CheckCancelled(ctx context.Context) error {
	if tok, ok := ctx.Value(cancellationKey{}).(*cancellationToken); ok {
		tok.mu.Lock()
		c := tok.cancelled
		tok.mu.Unlock()
		if c {
			return CancelledError{}
		}
	}
	select {
	case <-ctx.Done():
		return CancelledError{}
	default:
		return nil
	}
}

func (t *cancellationToken) cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// recurringOnActiveMinimalKey carries the Runner's full-vs-minimal
// decision for a recurringOnActive job's release (section 4.4, S3)
// through ctx rather than through Job.Details, since Details is
// opaque to the engine (section 3) — only the Runner, which tracks
// the last full-cleanup timestamp per variant, decides this, and an
// executor such as garbageCollection reads it back out.
type recurringOnActiveMinimalKey struct{}

func withRecurringOnActiveMinimal(ctx context.Context, minimal bool) context.Context {
	return context.WithValue(ctx, recurringOnActiveMinimalKey{}, minimal)
}

// RecurringOnActiveMinimal reports whether the Runner released this
// recurringOnActive job as a minimal-cleanup pass rather than a full
// one (testable scenario S3: a second appBecameActive within the
// cooldown window yields minimal-cleanup only). False outside a
// recurringOnActive execution.
func RecurringOnActiveMinimal(ctx context.Context) bool {
	minimal, _ := ctx.Value(recurringOnActiveMinimalKey{}).(bool)
	return minimal
}

// LifecycleController exposes cancel/cancelAll/suspend/resume to
// producers and the host application (section 4.8). It is owned by
// the Runner, which is the only writer of in-flight-task bookkeeping
// (section 5).
type LifecycleController struct {
	mu        sync.Mutex
	inFlight  map[int64]*inFlightTask // keyed by job ID
	suspended bool
}

type inFlightTask struct {
	variant Variant
	token   *cancellationToken
	cancel  context.CancelFunc
}

func newLifecycleController() *LifecycleController {
	return &LifecycleController{inFlight: make(map[int64]*inFlightTask)}
}

func (l *LifecycleController) register(jobID int64, variant Variant, token *cancellationToken, cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight[jobID] = &inFlightTask{variant: variant, token: token, cancel: cancel}
}

func (l *LifecycleController) unregister(jobID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, jobID)
}

// Cancel signals cooperative cancellation to a running job's executor
// task. It is a no-op (not an error) if the job is not currently
// running — Runner.Cancel's delete of the row handles the pending case
// (section 4.8).
func (l *LifecycleController) Cancel(jobID int64) {
	l.mu.Lock()
	task, ok := l.inFlight[jobID]
	l.mu.Unlock()
	if !ok {
		return
	}
	task.token.cancel()
	task.cancel()
}

// CancelAll signals cancellation to every running job, optionally
// scoped to one variant.
func (l *LifecycleController) CancelAll(variant *Variant) {
	l.mu.Lock()
	tasks := make([]*inFlightTask, 0, len(l.inFlight))
	for _, t := range l.inFlight {
		if variant == nil || t.variant == *variant {
			tasks = append(tasks, t)
		}
	}
	l.mu.Unlock()
	for _, t := range tasks {
		t.token.cancel()
		t.cancel()
	}
}

// Suspend stops new executions from being started; jobs already
// running continue until cooperative cancellation or completion
// (section 4.8). The Runner checks IsSuspended before each admission
// pass.
func (l *LifecycleController) Suspend() {
	l.mu.Lock()
	l.suspended = true
	l.mu.Unlock()
}

func (l *LifecycleController) Resume() {
	l.mu.Lock()
	l.suspended = false
	l.mu.Unlock()
}

func (l *LifecycleController) IsSuspended() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended
}

// InFlightCount reports how many executor tasks the Runner currently
// has bound, for testable invariant 4 ("exactly one executor task
// bound to J.id in the Runner's in-flight set").
func (l *LifecycleController) InFlightCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight)
}

func (l *LifecycleController) isInFlight(jobID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.inFlight[jobID]
	return ok
}
