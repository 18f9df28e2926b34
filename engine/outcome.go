package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

// === Error taxonomy (section 7) ===
//
// Executors never retry in-process; they return one of these
// classified errors (or a plain error, treated as TransientIO-like) to
// the Runner, which is the single source of retry policy.

// MissingRequiredDetailsError marks a job whose Details are
// insufficient to execute — permanent, the job row is deleted.
type MissingRequiredDetailsError struct {
	Reason string
}

func (e MissingRequiredDetailsError) Error() string {
	return fmt.Sprintf("jobengine: missing required details: %s", e.Reason)
}

// PermanentFailureError marks a non-retryable failure. The job row is
// deleted and waiters are notified with BlockerFailed cascading
// unless they opted out via DependencyEdge.ContinueOnBlockerFailure.
type PermanentFailureError struct {
	Cause error
}

func (e PermanentFailureError) Error() string {
	return fmt.Sprintf("jobengine: permanent failure: %v", e.Cause)
}

func (e PermanentFailureError) Unwrap() error { return e.Cause }

// PossibleDuplicateJobError is raised when an executor detects another
// in-flight job already claims the same unit of work (section 4.10's
// attachmentDownload racing-duplicate detection is the canonical
// example). Permanent true behaves like PermanentFailureError;
// permanent false is treated as a transient error instead.
type PossibleDuplicateJobError struct {
	Permanent bool
	Detail    string
}

func (e PossibleDuplicateJobError) Error() string {
	return fmt.Sprintf("jobengine: possible duplicate job (permanent=%v): %s", e.Permanent, e.Detail)
}

// CancelledError is raised by a cooperative cancellation check. The
// Runner treats it as Deferred (section 5): the row returns to
// runnable with FailureCount and NextRunTimestamp unchanged.
// Runner.Cancel deletes only rows that are not running, so a running
// job that is cancelled is returned to runnable, not deleted.
type CancelledError struct{}

func (CancelledError) Error() string { return "jobengine: job cancelled" }

// TransientError wraps a recoverable failure (network, I/O, crypto).
// failureCount is incremented and the job is rescheduled with
// exponential backoff (section 4.5).
type TransientError struct {
	Kind string // "io", "network", "crypto", or "" for unspecified
	Err  error
}

func (e TransientError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("jobengine: transient error: %v", e.Err)
	}
	return fmt.Sprintf("jobengine: transient %s error: %v", e.Kind, e.Err)
}

func (e TransientError) Unwrap() error { return e.Err }

// TransientIO, TransientNetwork, and TransientCrypto construct a
// TransientError of the named kind. Executors should prefer these
// over returning a bare error so the outcome policy's telemetry can
// distinguish failure classes.
func TransientIO(err error) error      { return TransientError{Kind: "io", Err: err} }
func TransientNetwork(err error) error { return TransientError{Kind: "network", Err: err} }
func TransientCrypto(err error) error  { return TransientError{Kind: "crypto", Err: err} }

// AlreadyCompleteError is success-equivalent: the job is deleted
// without emitting failure events (e.g. attachmentDownload finding
// the attachment already in state "downloaded").
type AlreadyCompleteError struct{}

func (AlreadyCompleteError) Error() string { return "jobengine: job already complete" }

func isPermanent(err error) (PermanentFailureError, bool) {
	var pf PermanentFailureError
	if errors.As(err, &pf) {
		return pf, true
	}
	var mrd MissingRequiredDetailsError
	if errors.As(err, &mrd) {
		return PermanentFailureError{Cause: mrd}, true
	}
	var dup PossibleDuplicateJobError
	if errors.As(err, &dup) && dup.Permanent {
		return PermanentFailureError{Cause: dup}, true
	}
	return PermanentFailureError{}, false
}

func isAlreadyComplete(err error) bool {
	var ac AlreadyCompleteError
	return errors.As(err, &ac)
}

func isCancelled(err error) bool {
	var c CancelledError
	return errors.As(err, &c)
}

// === Backoff (section 4.5, 9) ===
//
// Full-jitter exponential backoff, grounded on the teacher's
// calculateRetryDelay: base * 2^(failureCount-1), capped at maxBackoff,
// then a uniform random draw in [0, capped) via crypto/rand so retry
// timing can't be predicted across a fleet of processes.

// BackoffConfig exposes the curve's two free parameters, left
// unspecified by the source material beyond "retry" (design notes,
// open questions).
type BackoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoffConfig mirrors the teacher's DefaultRetryConfig
// (1 minute base is the Coordinator's default; the job engine uses a
// faster base since most variants are interactive, not batch).
var DefaultBackoffConfig = BackoffConfig{Base: time.Second, Max: time.Hour}

func computeBackoff(failureCount int, cfg BackoffConfig) time.Duration {
	if failureCount <= 0 {
		return cfg.Base
	}
	backoff := float64(cfg.Base) * math.Pow(2, float64(failureCount-1))
	if backoff > float64(cfg.Max) {
		backoff = float64(cfg.Max)
	}
	maxJitter := int64(backoff)
	if maxJitter <= 0 {
		return cfg.Base
	}
	jitter, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
	if err != nil {
		return cfg.Base
	}
	return time.Duration(jitter.Int64())
}

// === Outcome policy dispatch (section 4.5) ===

// terminalAction is what the outcome policy decided to do with a job
// row, for the Runner to apply within a single write transaction.
type terminalAction int

const (
	actionDeleteSucceeded terminalAction = iota
	actionRescheduleSuccess
	actionRedeferDeferred
	actionPermanentlyFail
	actionIncrementAndRetry
	actionReturnToRunnableCancelled
)

type decision struct {
	action       terminalAction
	updatedJob   *Job
	cascadeFail  bool // notify waiters of BlockerFailed and cascade
	alreadyOK    bool // AlreadyComplete — delete without failure events
}

// decide applies section 4.5's outcome policy to an executor's result
// for job j, given the descriptor's MaxFailureCount and the engine's
// BackoffConfig. now is injected so the decision is deterministic in
// tests.
func decide(j *Job, desc ExecutorDescriptor, outcome Outcome, execErr error, now time.Time, backoff BackoffConfig) decision {
	nowUnix := now.Unix()

	if execErr == nil {
		updated := j
		if outcome.Job != nil {
			updated = outcome.Job
		}
		if outcome.Deferred {
			next := updated.NextRunTimestamp
			minNext := nowUnix + int64(backoff.Base.Seconds())
			if next < minNext {
				next = minNext
			}
			cp := *updated
			cp.Status = StatusRunnable
			cp.NextRunTimestamp = next
			return decision{action: actionRedeferDeferred, updatedJob: &cp}
		}

		cp := *updated
		cp.FailureCount = 0
		if outcome.Stop || j.Behaviour == BehaviourRunOnce {
			return decision{action: actionDeleteSucceeded, updatedJob: &cp}
		}
		if j.Behaviour == BehaviourRecurringOnActive {
			// Parked rather than runnable: only the Runner's
			// SetActive(true) transition releases these (section 4.4),
			// never a timestamp — admitOnce only ever fetches
			// StatusRunnable rows, so a parked row is never
			// re-admitted on its own.
			cp.Status = StatusDeferred
			cp.NextRunTimestamp = 0
			return decision{action: actionRescheduleSuccess, updatedJob: &cp}
		}
		cp.Status = StatusRunnable
		// A later next-run time written by the executor into
		// outcome.Job (checkForAppUpdates' fixed interval) is kept.
		if next := nextRunForBehaviour(j.Behaviour, nowUnix); cp.NextRunTimestamp < next {
			cp.NextRunTimestamp = next
		}
		return decision{action: actionRescheduleSuccess, updatedJob: &cp}
	}

	if isAlreadyComplete(execErr) {
		return decision{action: actionDeleteSucceeded, updatedJob: j, alreadyOK: true}
	}

	if isCancelled(execErr) {
		cp := *j
		cp.Status = StatusRunnable
		return decision{action: actionReturnToRunnableCancelled, updatedJob: &cp}
	}

	if pf, ok := isPermanent(execErr); ok {
		_ = pf
		return decision{action: actionPermanentlyFail, updatedJob: j, cascadeFail: true}
	}

	var dup PossibleDuplicateJobError
	if errors.As(execErr, &dup) && !dup.Permanent {
		execErr = TransientError{Kind: "duplicate", Err: execErr}
	}

	cp := *j
	cp.FailureCount++
	if desc.MaxFailureCount >= 0 && cp.FailureCount > desc.MaxFailureCount {
		return decision{action: actionPermanentlyFail, updatedJob: &cp, cascadeFail: true}
	}
	cp.Status = StatusRunnable
	cp.NextRunTimestamp = nowUnix + int64(computeBackoff(cp.FailureCount, backoff).Seconds())
	return decision{action: actionIncrementAndRetry, updatedJob: &cp}
}

func nextRunForBehaviour(b Behaviour, nowUnix int64) int64 {
	switch b {
	case BehaviourRecurring:
		return nowUnix // immediate
	default:
		return nowUnix
	}
}
