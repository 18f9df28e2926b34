package executors

import (
	"context"
	"testing"

	"github.com/session-mesh/jobengine/engine"
)

func newDownloadJob(t *testing.T, d AttachmentDownloadDetails) *engine.Job {
	t.Helper()
	return &engine.Job{ID: 1, Variant: engine.VariantAttachmentDownload, Details: encodeDetails(d)}
}

func TestAttachmentDownloadMissingDetails(t *testing.T) {
	job := &engine.Job{ID: 1, Variant: engine.VariantAttachmentDownload}
	_, err := AttachmentDownload(context.Background(), job, &engine.Context{})
	if _, ok := err.(engine.MissingRequiredDetailsError); !ok {
		t.Fatalf("expected MissingRequiredDetailsError, got %T: %v", err, err)
	}
}

func TestAttachmentDownloadAlreadyDownloadedIsIdempotent(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentDownloaded}
	job := newDownloadJob(t, AttachmentDownloadDetails{AttachmentID: "a1"})

	_, err := AttachmentDownload(context.Background(), job, &engine.Context{Attachments: att})
	if _, ok := err.(engine.AlreadyCompleteError); !ok {
		t.Fatalf("expected AlreadyCompleteError, got %T: %v", err, err)
	}
}

func TestAttachmentDownloadRacingDuplicateDetected(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentDownloading}
	store := &fakeStore{jobs: []*engine.Job{
		{ID: 2, Variant: engine.VariantAttachmentDownload, Status: engine.StatusRunning},
	}}
	job := newDownloadJob(t, AttachmentDownloadDetails{AttachmentID: "a1"})
	job.ID = 1

	_, err := AttachmentDownload(context.Background(), job, &engine.Context{Attachments: att, Store: store})
	dupErr, ok := err.(engine.PossibleDuplicateJobError)
	if !ok {
		t.Fatalf("expected PossibleDuplicateJobError, got %T: %v", err, err)
	}
	if !dupErr.Permanent {
		t.Fatal("a racing-running duplicate must be classified permanent")
	}
}

func TestAttachmentDownloadSuccessDecryptsAndWritesCanonicalPath(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentPendingDownload, Key: []byte("k"), Digest: []byte("d")}
	store := &fakeStore{}
	net := &fakeNetwork{downloadBody: "ciphertext"}
	fs := newFakeFS()
	events := &fakeEventSink{}
	job := newDownloadJob(t, AttachmentDownloadDetails{AttachmentID: "a1", URL: "https://example.test/a1"})

	outcome, err := AttachmentDownload(context.Background(), job, &engine.Context{
		Attachments: att, Store: store, Network: net, FS: fs, Crypto: &fakeCrypto{}, Events: events,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Stop {
		t.Fatal("expected Stop outcome on success")
	}
	updated, _ := att.Fetch(context.Background(), "a1")
	if updated.State != engine.AttachmentDownloaded {
		t.Fatalf("expected state downloaded, got %s", updated.State)
	}
	if !fs.FileExists(updated.LocalPath) {
		t.Fatal("expected the canonical path to exist on the filesystem")
	}
	if len(events.events) != 1 || events.events[0].Name != "attachmentStateChanged" {
		t.Fatalf("expected one attachmentStateChanged event, got %+v", events.events)
	}
}

func TestAttachmentDownloadDecryptFailureIsPermanent(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentPendingDownload, Key: []byte("k"), Digest: []byte("d")}
	store := &fakeStore{}
	net := &fakeNetwork{downloadBody: "ciphertext"}
	fs := newFakeFS()
	job := newDownloadJob(t, AttachmentDownloadDetails{AttachmentID: "a1", URL: "https://example.test/a1"})

	_, err := AttachmentDownload(context.Background(), job, &engine.Context{
		Attachments: att, Store: store, Network: net, FS: fs,
		Crypto: &fakeCrypto{decryptErr: errDecryptBoom{}},
	})
	if _, ok := err.(engine.PermanentFailureError); !ok {
		t.Fatalf("expected PermanentFailureError on decrypt failure, got %T: %v", err, err)
	}
}

type errDecryptBoom struct{}

func (errDecryptBoom) Error() string { return "decrypt boom" }
