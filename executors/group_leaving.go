package executors

import (
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// GroupLeavingDetails carries the thread being left and what kind of
// group it is, since the leave procedure branches on
// (threadVariant, isAdmin, isLastAdmin) per section 4.10.
type GroupLeavingDetails struct {
	ThreadID     string `json:"threadId"`
	IsLegacy     bool   `json:"isLegacy"`
	DeleteForAll bool   `json:"deleteForAll,omitempty"`
	Auth         string `json:"auth,omitempty"`
}

// GroupLeaving branches on (threadVariant, isAdmin, isLastAdmin) to
// either send leave messages or perform a cooperative delete-for-all;
// on success it emits a groupDataRemoved event, on failure a
// groupLeaveFailedInfoMessage event, via the event sink (section 4.10).
// MaxFailureCount for this variant is 0 (section 4.3): any error here
// is already permanent by the time the outcome policy sees it — there
// is no in-executor retry.
func GroupLeaving(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[GroupLeavingDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	isAdmin, isLastAdmin, err := rc.Config.IsGroupAdmin(d.ThreadID)
	if err != nil {
		return engine.Outcome{}, engine.PermanentFailureError{Cause: err}
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	var req engine.PreparedRequest[engine.BatchResponse]
	switch {
	case d.IsLegacy:
		req, err = rc.Network.PrepareBatch([][]byte{[]byte("legacy-group-leave:" + d.ThreadID)})
	case isAdmin && isLastAdmin && d.DeleteForAll:
		req, err = rc.Network.PrepareBatch([][]byte{[]byte("group-delete-for-all:" + d.ThreadID)})
	default:
		req, err = rc.Network.PrepareBatch([][]byte{[]byte("group-leave:" + d.ThreadID)})
	}
	if err != nil {
		return onGroupLeaveFailure(ctx, rc, job, d, engine.PermanentFailureError{Cause: err})
	}

	if _, err := req.Send(ctx); err != nil {
		_, classified := classifyNetworkSendError(err)
		return onGroupLeaveFailure(ctx, rc, job, d, classified)
	}

	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "groupDataRemoved", JobID: job.ID, Variant: job.Variant, ThreadID: &d.ThreadID})
	}
	return engine.Outcome{Stop: true}, nil
}

func onGroupLeaveFailure(ctx context.Context, rc *engine.Context, job *engine.Job, d GroupLeavingDetails, classified error) (engine.Outcome, error) {
	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "groupLeaveFailedInfoMessage", JobID: job.ID, Variant: job.Variant, ThreadID: &d.ThreadID})
	}
	// maxFailureCount=0 means the outcome policy treats any error as
	// permanent regardless of kind, but we still classify it
	// explicitly so dead-letter records carry an accurate cause.
	return engine.Outcome{}, engine.PermanentFailureError{Cause: classified}
}
