package executors

import (
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// DisappearingMessagesDetails carries a batch size; empty details
// means "use the default." The value is defaulted but not passed to
// the GarbageCollector, whose cleanup call takes no batch size.
type DisappearingMessagesDetails struct {
	BatchSize int `json:"batchSize,omitempty"`
}

const defaultDisappearingMessagesBatchSize = 200

// DisappearingMessages runs the GarbageCollector collaborator's
// DeleteExpiredDedupRecords cleanup, since the engine itself never
// inspects message content (section 1's scope boundary). It makes no
// other call: message rows are not deleted by this executor.
func DisappearingMessages(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, _ := decodeDetails[DisappearingMessagesDetails](job)
	if d.BatchSize <= 0 {
		d.BatchSize = defaultDisappearingMessagesBatchSize
	}

	if rc.GC == nil {
		return engine.Outcome{}, engine.PermanentFailureError{Cause: errNoGarbageCollector}
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	if _, err := rc.GC.DeleteExpiredDedupRecords(ctx); err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	return engine.Outcome{}, nil
}

var errNoGarbageCollector = errNoGarbageCollectorError{}

type errNoGarbageCollectorError struct{}

func (errNoGarbageCollectorError) Error() string { return "no GarbageCollector configured" }
