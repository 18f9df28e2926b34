package executors

import (
	"bytes"
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// AttachmentUploadDetails is the opaque-bytes payload for an
// attachmentUpload job.
type AttachmentUploadDetails struct {
	AttachmentID  string `json:"attachmentId"`
	InteractionID string `json:"interactionId"`
	MessageSendID int64  `json:"messageSendJobId,omitempty"`
	Auth          string `json:"auth,omitempty"`
}

// AttachmentUpload implements section 4.10's attachmentUpload
// contract: verifies the interaction still exists, defers while the
// attachment is still downloading, encrypts unless the destination is
// a community (SOGS) server, uploads, moves the plaintext to
// attachments/<attachmentID>, and on failure emits a
// messageSendStatusFailed event for the related message-send job.
// Metadata is not stripped, and the final path is not content-hashed.
func AttachmentUpload(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[AttachmentUploadDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	exists, err := rc.Attachments.InteractionExists(ctx, d.InteractionID)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if !exists {
		return engine.Outcome{}, engine.PermanentFailureError{Cause: errMissingInteraction{interactionID: d.InteractionID}}
	}

	att, err := rc.Attachments.Fetch(ctx, d.AttachmentID)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if att.State == engine.AttachmentPendingDownload || att.State == engine.AttachmentDownloading {
		return engine.Outcome{Deferred: true}, nil
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	plaintext, err := rc.FS.Contents(att.LocalPath)
	if err != nil {
		return onUploadFailure(ctx, rc, job, d, engine.TransientIO(err))
	}

	payload := plaintext
	if !att.IsCommunity {
		payload, err = rc.Crypto.EncryptAttachment(plaintext, att.Key)
		if err != nil {
			return onUploadFailure(ctx, rc, job, d, engine.PermanentFailureError{Cause: err})
		}
	}

	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "willUpload", JobID: job.ID, Variant: job.Variant, InteractionID: &d.InteractionID})
	}

	req, err := rc.Network.PrepareUpload(bytes.NewReader(payload), d.Auth)
	if err != nil {
		return onUploadFailure(ctx, rc, job, d, engine.TransientNetwork(err))
	}
	resp, err := req.Send(ctx)
	if err != nil {
		_, classified := classifyNetworkSendError(err)
		return onUploadFailure(ctx, rc, job, d, classified)
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	finalPath := attachmentCanonicalPath(d.AttachmentID)
	if err := rc.FS.MoveItem(att.LocalPath, finalPath); err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	att.State = engine.AttachmentUploaded
	att.URL = resp.Location
	att.LocalPath = finalPath
	if err := rc.Attachments.Update(ctx, att); err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "success", JobID: job.ID, Variant: job.Variant, InteractionID: &d.InteractionID})
	}

	return engine.Outcome{Stop: true}, nil
}

func onUploadFailure(ctx context.Context, rc *engine.Context, job *engine.Job, d AttachmentUploadDetails, classified error) (engine.Outcome, error) {
	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "messageSendStatusFailed", JobID: d.MessageSendID, Variant: engine.VariantMessageSend, InteractionID: &d.InteractionID})
	}
	return engine.Outcome{}, classified
}

type errMissingInteraction struct{ interactionID string }

func (e errMissingInteraction) Error() string {
	return "jobengine: interaction " + e.interactionID + " no longer exists"
}
