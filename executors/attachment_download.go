package executors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/session-mesh/jobengine/engine"
)

// AttachmentDownloadDetails is the opaque-bytes payload for an
// attachmentDownload job.
type AttachmentDownloadDetails struct {
	AttachmentID string `json:"attachmentId"`
	URL          string `json:"url"`
	Auth         string `json:"auth,omitempty"`
}

// AttachmentDownload implements section 4.10's attachmentDownload
// contract: idempotent against an already-downloaded attachment,
// racing-duplicate detection via the Store's running-set query,
// network fetch to a temp path, optional decrypt, atomic write of the
// plaintext to the canonical path, then removal of the temp file.
func AttachmentDownload(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[AttachmentDownloadDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	att, err := rc.Attachments.Fetch(ctx, d.AttachmentID)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if att.State == engine.AttachmentDownloaded || att.State == engine.AttachmentUploaded {
		return engine.Outcome{}, engine.AlreadyCompleteError{}
	}

	if att.State == engine.AttachmentDownloading {
		if err := racingDuplicateCheck(ctx, rc, job); err != nil {
			return engine.Outcome{}, err
		}
		att.State = engine.AttachmentFailedDownload
		if err := rc.Attachments.Update(ctx, att); err != nil {
			return engine.Outcome{}, engine.TransientIO(err)
		}
		return engine.Outcome{}, engine.TransientIO(errors.New("attachment was left downloading by a dead job, retrying"))
	}

	ok, err := rc.Attachments.CompareAndSwapState(ctx, d.AttachmentID, att.State, engine.AttachmentDownloading)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if !ok {
		return engine.Outcome{}, engine.PossibleDuplicateJobError{Permanent: true, Detail: "attachment claimed by a racing download"}
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	req, err := rc.Network.PrepareDownload(d.URL, d.Auth)
	if err != nil {
		return classifyNetworkPrepareError(ctx, rc, att, err)
	}
	reader, err := req.Send(ctx)
	if err != nil {
		return classifyNetworkError(ctx, rc, att, err)
	}
	defer reader.Close()

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	tempPath := attachmentTempPath(d.AttachmentID)
	ciphertext, err := io.ReadAll(reader)
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	if err := rc.FS.Write(ciphertext, tempPath, true); err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	plaintext := ciphertext
	if len(att.Key) > 0 && len(att.Digest) > 0 {
		plaintext, err = rc.Crypto.DecryptAttachment(ciphertext, att.Key, att.Digest, att.UnpaddedSize)
		if err != nil {
			_ = rc.FS.RemoveItem(tempPath)
			return engine.Outcome{}, engine.PermanentFailureError{Cause: err}
		}
	}

	canonicalPath := attachmentCanonicalPath(d.AttachmentID)
	if err := rc.FS.Write(plaintext, canonicalPath, true); err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if err := rc.FS.RemoveItem(tempPath); err != nil {
		// Missing-file removals are non-fatal per section 6.
		_ = err
	}

	att.State = engine.AttachmentDownloaded
	att.LocalPath = canonicalPath
	if err := rc.Attachments.Update(ctx, att); err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "attachmentStateChanged", JobID: job.ID, Variant: job.Variant, Attributes: map[string]string{"state": string(engine.AttachmentDownloaded)}})
	}

	return engine.Outcome{Stop: true}, nil
}

// racingDuplicateCheck implements the Runner's jobInfoFor(running,
// variant=attachmentDownload) query named in section 4.10: if another
// job already claims the same attachment, this one is a duplicate.
func racingDuplicateCheck(ctx context.Context, rc *engine.Context, job *engine.Job) error {
	status := statusRunning()
	variant := job.Variant
	tx, err := rc.Store.Begin(ctx)
	if err != nil {
		return engine.TransientIO(err)
	}
	defer tx.Rollback(ctx)
	running, err := rc.Store.FetchByFilter(ctx, tx, engine.Filter{Variant: &variant, Status: &status, ExcludeIDs: []int64{job.ID}})
	if err != nil {
		return engine.TransientIO(err)
	}
	if len(running) > 0 {
		return engine.PossibleDuplicateJobError{Permanent: true, Detail: "another attachmentDownload job is currently running"}
	}
	return nil
}

func statusRunning() engine.Status { return engine.StatusRunning }

func classifyNetworkPrepareError(ctx context.Context, rc *engine.Context, att *engine.Attachment, err error) (engine.Outcome, error) {
	return classifyNetworkError(ctx, rc, att, err)
}

// classifyNetworkSendError is the classification used by executors
// that have no attachment row to update: a 404, 400/401 or parsing
// failure is permanent, anything else is transient.
func classifyNetworkSendError(err error) (engine.Outcome, error) {
	var netErr *engine.NetworkError
	if errors.As(err, &netErr) {
		switch netErr.Kind {
		case engine.NetworkErrorNotFound, engine.NetworkErrorBadRequest, engine.NetworkErrorUnauthorised, engine.NetworkErrorParsingFailed:
			return engine.Outcome{}, engine.PermanentFailureError{Cause: err}
		}
	}
	return engine.Outcome{}, engine.TransientNetwork(err)
}

// classifyNetworkError maps a transport failure to the job outcome
// section 6 requires, and — for a permanent classification — also
// persists the attachment's own terminal state, since the job row is
// about to be deleted and no later executor will ever revisit it: a
// 404 means the content no longer exists upstream (invalid); a
// 400/401 or signature/parsing failure means the request itself was
// never viable (failedDownload).
func classifyNetworkError(ctx context.Context, rc *engine.Context, att *engine.Attachment, err error) (engine.Outcome, error) {
	var netErr *engine.NetworkError
	if errors.As(err, &netErr) {
		switch netErr.Kind {
		case engine.NetworkErrorNotFound:
			markAttachmentFailed(ctx, rc, att, engine.AttachmentInvalid)
			return engine.Outcome{}, engine.PermanentFailureError{Cause: err}
		case engine.NetworkErrorBadRequest, engine.NetworkErrorUnauthorised, engine.NetworkErrorParsingFailed:
			markAttachmentFailed(ctx, rc, att, engine.AttachmentFailedDownload)
			return engine.Outcome{}, engine.PermanentFailureError{Cause: err}
		default:
			return engine.Outcome{}, engine.TransientNetwork(err)
		}
	}
	return engine.Outcome{}, engine.TransientNetwork(err)
}

// markAttachmentFailed persists the attachment's terminal state ahead
// of a permanent job failure. Update errors are logged, not returned:
// the job outcome is already decided as permanent, and surfacing a
// second, unrelated store error here would only obscure the original
// network failure.
func markAttachmentFailed(ctx context.Context, rc *engine.Context, att *engine.Attachment, state engine.AttachmentState) {
	att.State = state
	if err := rc.Attachments.Update(ctx, att); err != nil {
		slog.ErrorContext(ctx, "failed to persist attachment failure state", "attachment_id", att.ID, "state", state, "error", err)
	}
}

func attachmentTempPath(attachmentID string) string {
	return filepath.Join("attachments", "tmp", attachmentID+".tmp")
}

func attachmentCanonicalPath(attachmentID string) string {
	return filepath.Join("attachments", attachmentID)
}
