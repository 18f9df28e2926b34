package executors

import (
	"context"
	"time"

	"github.com/session-mesh/jobengine/engine"
)

// CheckForAppUpdatesDetails carries the release-metadata URL to poll.
type CheckForAppUpdatesDetails struct {
	ReleaseURL string `json:"releaseUrl"`
}

const checkForAppUpdatesInterval = 4 * time.Hour

// CheckForAppUpdates polls the release-metadata endpoint once every
// four hours regardless of outcome (section 4.10, testable scenario
// S6): maxFailureCount is -1, so a transient network failure never
// becomes permanent; this executor explicitly writes the next-run
// timestamp itself rather than relying on the outcome policy's
// default recurring interval.
func CheckForAppUpdates(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[CheckForAppUpdatesDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	clock := rc.Clock
	if clock == nil {
		clock = engine.SystemClock
	}
	next := clock.Now().Add(checkForAppUpdatesInterval).Unix()

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	req, netErr := rc.Network.PrepareDownload(d.ReleaseURL, "")
	if netErr != nil {
		return rescheduleRegardless(job, next), nil
	}
	reader, sendErr := req.Send(ctx)
	if sendErr != nil {
		return rescheduleRegardless(job, next), nil
	}
	defer reader.Close()

	updated := *job
	updated.NextRunTimestamp = next
	return engine.Outcome{Job: &updated}, nil
}

// rescheduleRegardless builds the Outcome applied on the transient
// failure path. The outcome policy (section 4.5) only honours a
// custom NextRunTimestamp when execErr is nil, so a network failure
// here is reported as Deferred with no error rather than a
// TransientNetwork error — Deferred leaves FailureCount untouched and
// adopts the job's NextRunTimestamp (floored at now+minBackoff, which
// the 4h interval always exceeds), matching "failureCount=0 ... runs
// again at the scheduled time" from scenario S6.
func rescheduleRegardless(job *engine.Job, next int64) engine.Outcome {
	updated := *job
	updated.NextRunTimestamp = next
	return engine.Outcome{Job: &updated, Deferred: true}
}
