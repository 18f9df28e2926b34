package executors

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/session-mesh/jobengine/engine"
)

// GarbageCollectionDetails configures which cleanup subset to run
// (section 4.10). A zero value runs everything; MinimalOnly runs
// only the cheap typing-indicator sweep, used by the second of two
// appBecameActive events within the same window (testable scenario
// S3).
type GarbageCollectionDetails struct {
	MinimalOnly                  bool `json:"minimalOnly,omitempty"`
	OldCommunityMessageDays      int  `json:"oldCommunityMessageDays,omitempty"`
	OldCommunityMessageThreshold int  `json:"oldCommunityMessageThreshold,omitempty"`
}

const (
	defaultOldCommunityMessageDays      = 180 // six months
	defaultOldCommunityMessageThreshold = 2000
)

// GarbageCollection runs the configured subset of cleanup queries
// (section 4.10): typing indicators, old community messages, orphaned
// link previews/attachments/profiles, expired dedup records, shadow
// threads, expired pending receipts. On-disk file reconciliation runs
// strictly after the DB delete (never before), and a missing-file
// error during that reconciliation is non-fatal (section 6).
func GarbageCollection(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, _ := decodeDetails[GarbageCollectionDetails](job) // empty details is valid: run everything

	if d.OldCommunityMessageDays == 0 {
		d.OldCommunityMessageDays = defaultOldCommunityMessageDays
	}
	if d.OldCommunityMessageThreshold == 0 {
		d.OldCommunityMessageThreshold = defaultOldCommunityMessageThreshold
	}
	// The Runner decides full-vs-minimal on each appBecameActive release
	// (last-full-run cooldown, section 4.4); Details can't carry that
	// since it's set after the job is already enqueued, so it arrives via
	// ctx instead.
	d.MinimalOnly = d.MinimalOnly || engine.RecurringOnActiveMinimal(ctx)

	if rc.GC == nil {
		return engine.Outcome{}, engine.PermanentFailureError{Cause: errors.New("no GarbageCollector configured")}
	}

	counts := engine.CleanupCounts{}
	var err error

	counts.TypingIndicators, err = rc.GC.DeleteOldTypingIndicators(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	if d.MinimalOnly {
		return rescheduleGC()
	}

	counts.OldCommunityMessages, err = rc.GC.DeleteOldCommunityMessages(ctx, d.OldCommunityMessageDays, d.OldCommunityMessageThreshold)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	counts.OrphanedLinkPreviews, err = rc.GC.DeleteOrphanedLinkPreviews(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	orphanedPaths, err := rc.GC.DeleteOrphanedAttachments(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	counts.OrphanedAttachments = len(orphanedPaths)
	for _, path := range orphanedPaths {
		if rmErr := rc.FS.RemoveItem(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.WarnContext(ctx, "failed to reconcile orphaned attachment file", "path", path, "error", rmErr)
		}
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	counts.OrphanedProfiles, err = rc.GC.DeleteOrphanedProfiles(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	counts.ExpiredDedupRecords, err = rc.GC.DeleteExpiredDedupRecords(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	counts.ShadowThreads, err = rc.GC.DeleteShadowThreads(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}
	counts.ExpiredPendingReceipts, err = rc.GC.DeleteExpiredPendingReceipts(ctx)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	slog.InfoContext(ctx, "garbage collection pass complete",
		"typing_indicators", counts.TypingIndicators,
		"old_community_messages", counts.OldCommunityMessages,
		"orphaned_link_previews", counts.OrphanedLinkPreviews,
		"orphaned_attachments", counts.OrphanedAttachments,
		"orphaned_profiles", counts.OrphanedProfiles,
		"expired_dedup_records", counts.ExpiredDedupRecords,
		"shadow_threads", counts.ShadowThreads,
		"expired_pending_receipts", counts.ExpiredPendingReceipts,
	)

	return rescheduleGC()
}

// rescheduleGC keeps the recurringOnActive job in rotation; the next
// run is released by the Runner on the next appBecameActive
// transition (section 4.4), not by a timestamp.
func rescheduleGC() (engine.Outcome, error) {
	return engine.Outcome{}, nil
}
