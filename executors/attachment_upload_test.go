package executors

import (
	"context"
	"testing"

	"github.com/session-mesh/jobengine/engine"
)

func TestAttachmentUploadDefersWhileStillDownloading(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentDownloading}
	job := &engine.Job{ID: 1, Variant: engine.VariantAttachmentUpload, Details: encodeDetails(AttachmentUploadDetails{
		AttachmentID: "a1", InteractionID: "i1",
	})}

	outcome, err := AttachmentUpload(context.Background(), job, &engine.Context{Attachments: att})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Deferred {
		t.Fatal("expected a deferred outcome while the attachment is still downloading")
	}
}

func TestAttachmentUploadMissingInteractionIsPermanent(t *testing.T) {
	att := newFakeAttachmentStore()
	job := &engine.Job{ID: 1, Variant: engine.VariantAttachmentUpload, Details: encodeDetails(AttachmentUploadDetails{
		AttachmentID: "a1", InteractionID: "gone",
	})}
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentPendingDownload}

	_, err := AttachmentUpload(context.Background(), job, &engine.Context{
		Attachments: fakeAttachmentStoreWithMissingInteraction{fakeAttachmentStore: att},
	})
	if _, ok := err.(engine.PermanentFailureError); !ok {
		t.Fatalf("expected PermanentFailureError when the interaction no longer exists, got %T: %v", err, err)
	}
}

// fakeAttachmentStoreWithMissingInteraction overrides InteractionExists to
// simulate a deleted interaction without complicating the shared fake.
type fakeAttachmentStoreWithMissingInteraction struct {
	*fakeAttachmentStore
}

func (f fakeAttachmentStoreWithMissingInteraction) InteractionExists(ctx context.Context, interactionID string) (bool, error) {
	return false, nil
}

func TestAttachmentUploadSuccessEncryptsAndMovesFile(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentDownloaded, LocalPath: "attachments/a1", Key: []byte("k")}
	fs := newFakeFS()
	fs.files["attachments/a1"] = []byte("plaintext")
	net := &fakeNetwork{uploadResp: engine.UploadResponse{Location: "https://cdn.test/a1", Size: 9}}
	events := &fakeEventSink{}
	job := &engine.Job{ID: 1, Variant: engine.VariantAttachmentUpload, Details: encodeDetails(AttachmentUploadDetails{
		AttachmentID: "a1", InteractionID: "i1",
	})}

	outcome, err := AttachmentUpload(context.Background(), job, &engine.Context{
		Attachments: att, FS: fs, Network: net, Crypto: &fakeCrypto{}, Events: events,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Stop {
		t.Fatal("expected Stop outcome on success")
	}
	updated, _ := att.Fetch(context.Background(), "a1")
	if updated.State != engine.AttachmentUploaded {
		t.Fatalf("expected state uploaded, got %s", updated.State)
	}
	if updated.URL != "https://cdn.test/a1" {
		t.Fatalf("expected URL recorded from the upload response, got %q", updated.URL)
	}

	var sawWillUpload, sawSuccess bool
	for _, e := range events.events {
		switch e.Name {
		case "willUpload":
			sawWillUpload = true
		case "success":
			sawSuccess = true
		}
	}
	if !sawWillUpload || !sawSuccess {
		t.Fatalf("expected willUpload and success events, got %+v", events.events)
	}
}

func TestAttachmentUploadCommunityDestinationSkipsEncryption(t *testing.T) {
	att := newFakeAttachmentStore()
	att.byID["a1"] = &engine.Attachment{ID: "a1", State: engine.AttachmentDownloaded, LocalPath: "attachments/a1", IsCommunity: true}
	fs := newFakeFS()
	fs.files["attachments/a1"] = []byte("plaintext")
	net := &fakeNetwork{uploadResp: engine.UploadResponse{Location: "https://sogs.test/a1"}}
	job := &engine.Job{ID: 1, Variant: engine.VariantAttachmentUpload, Details: encodeDetails(AttachmentUploadDetails{
		AttachmentID: "a1", InteractionID: "i1",
	})}

	// No Crypto collaborator: any call to EncryptAttachment would panic.
	_, err := AttachmentUpload(context.Background(), job, &engine.Context{
		Attachments: att, FS: fs, Network: net, Crypto: nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
