package executors

import (
	"context"
	"sort"

	"github.com/session-mesh/jobengine/engine"
)

// SendReadReceiptsDetails carries the batched timestamps for one
// thread's read receipts (section 4.10).
type SendReadReceiptsDetails struct {
	ThreadID         string  `json:"threadId"`
	TimestampMsValues []int64 `json:"timestampMsValues"`
	Auth             string  `json:"auth,omitempty"`
}

// SendReadReceipts batches read-receipt timestamps per thread. If
// another instance is already running for the same thread the Runner
// never admits a second one under the single-instance-per-thread
// policy (queue.go) — the "merge into an existing non-running job"
// half of that idempotence property (section 8) is the producer's
// enqueue-time responsibility (engine.Store's unique admission,
// section 4.7), not this executor's. On completion this executor
// reschedules a throttled successor with an empty timestamp list, per
// section 4.10.
func SendReadReceipts(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[SendReadReceiptsDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	if len(d.TimestampMsValues) == 0 {
		// The throttled successor job itself: nothing to send yet.
		return engine.Outcome{Deferred: true}, nil
	}

	sort.Slice(d.TimestampMsValues, func(i, j int) bool { return d.TimestampMsValues[i] < d.TimestampMsValues[j] })

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	req, err := rc.Network.PrepareBatch([][]byte{encodeDetails(d.TimestampMsValues)})
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	if _, err := req.Send(ctx); err != nil {
		return classifyNetworkSendError(err)
	}

	clock := rc.Clock
	if clock == nil {
		clock = engine.SystemClock
	}
	successor := &engine.Job{
		Variant:          engine.VariantSendReadReceipts,
		Behaviour:        engine.BehaviourRunOnce,
		ThreadID:         job.ThreadID,
		Details:          encodeDetails(SendReadReceiptsDetails{ThreadID: d.ThreadID}),
		Status:           engine.StatusRunnable,
		NextRunTimestamp: clock.Now().Add(3_000_000_000).Unix(), // now + 3s
	}
	return engine.Outcome{Stop: true, Successor: successor}, nil
}
