package executors

import (
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// FailedAttachmentDownloadsDetails configures how many retries this
// sweep attempts per call; empty details means "use the default."
type FailedAttachmentDownloadsDetails struct {
	BatchSize int `json:"batchSize,omitempty"`
}

const defaultFailedDownloadBatchSize = 25

// FailedAttachmentDownloads runs once per enqueued job (its
// descriptor's default behaviour is runOnceAfterDelay, which
// Runner.Startup does not enqueue at launch) and re-enqueues a fresh
// attachmentDownload job for every
// attachmentDownload row the outcome policy previously moved to the
// dead-letter queue, bounded by BatchSize so a large backlog doesn't
// starve other single-instance variants.
func FailedAttachmentDownloads(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, _ := decodeDetails[FailedAttachmentDownloadsDetails](job)
	if d.BatchSize <= 0 {
		d.BatchSize = defaultFailedDownloadBatchSize
	}

	deadLetters, err := rc.Store.ListDeadLetter(ctx, 500)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	reenqueued := 0
	for _, dl := range deadLetters {
		if dl.Variant != engine.VariantAttachmentDownload {
			continue
		}
		if reenqueued >= d.BatchSize {
			break
		}
		if err := engine.CheckCancelled(ctx); err != nil {
			return engine.Outcome{}, err
		}
		if _, err := rc.Store.RetryDeadLetter(ctx, dl.ID); err != nil {
			continue
		}
		reenqueued++
	}

	return engine.Outcome{}, nil
}
