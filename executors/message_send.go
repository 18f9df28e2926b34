package executors

import (
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// MessageSendDetails is the opaque-bytes payload for a messageSend
// job. The concrete wire format of Payload is an explicit Non-goal
// (section 1); the engine treats it as opaque bytes handed to the
// Network collaborator's batch-prepare call.
type MessageSendDetails struct {
	InteractionID string   `json:"interactionId"`
	Payload       []byte   `json:"payload"`
	Auth          string   `json:"auth,omitempty"`
	Recipients    []string `json:"recipients,omitempty"`
}

// MessageSend sends a single prepared message batch and reports
// success once the network layer acknowledges delivery. It never
// retries in-process (section 7) — transient network failures are
// returned for the Runner's outcome policy to back off and retry, up
// to the variant's maxFailureCount of 10.
func MessageSend(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[MessageSendDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	req, err := rc.Network.PrepareBatch([][]byte{d.Payload})
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	_, err = req.Send(ctx)
	if err != nil {
		return classifyNetworkSendError(err)
	}

	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "success", JobID: job.ID, Variant: job.Variant, InteractionID: &d.InteractionID})
	}
	return engine.Outcome{Stop: true}, nil
}
