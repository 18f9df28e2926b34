package engine

import "testing"

func registryWithAttachmentDownload() *Registry {
	reg := NewRegistry()
	for _, d := range StandardDescriptors() {
		reg.Register(d)
	}
	return reg
}

func TestJobValidateRequiresThreadID(t *testing.T) {
	reg := registryWithAttachmentDownload()
	interactionID := "i1"
	j := &Job{Variant: VariantAttachmentDownload, InteractionID: &interactionID}

	if err := j.Validate(reg); err != ErrThreadIDRequired {
		t.Fatalf("expected ErrThreadIDRequired, got %v", err)
	}
}

func TestJobValidateRequiresInteractionID(t *testing.T) {
	reg := registryWithAttachmentDownload()
	threadID := "t1"
	j := &Job{Variant: VariantAttachmentDownload, ThreadID: &threadID}

	if err := j.Validate(reg); err != ErrInteractionIDRequired {
		t.Fatalf("expected ErrInteractionIDRequired, got %v", err)
	}
}

func TestJobValidateUnknownVariant(t *testing.T) {
	reg := NewRegistry()
	j := &Job{Variant: "bogus"}
	if err := j.Validate(reg); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestJobValidateFailureCountExceeded(t *testing.T) {
	reg := registryWithAttachmentDownload()
	threadID, interactionID := "t1", "i1"
	j := &Job{
		Variant:       VariantAttachmentDownload, // MaxFailureCount = 3
		ThreadID:      &threadID,
		InteractionID: &interactionID,
		FailureCount:  4,
	}
	if err := j.Validate(reg); err != ErrFailureCountExceeded {
		t.Fatalf("expected ErrFailureCountExceeded, got %v", err)
	}
}

func TestJobValidateUnboundedFailureCountNeverExceeds(t *testing.T) {
	reg := registryWithAttachmentDownload()
	j := &Job{Variant: VariantCheckForAppUpdates, FailureCount: 10_000}
	if err := j.Validate(reg); err != nil {
		t.Fatalf("MaxFailureCount=-1 must never reject on count alone: %v", err)
	}
}

func TestJobValidateOptionalThreadID(t *testing.T) {
	reg := registryWithAttachmentDownload()
	// sendReadReceipts: thread optional per the variant table.
	j := &Job{Variant: VariantSendReadReceipts}
	if err := j.Validate(reg); err != nil {
		t.Fatalf("sendReadReceipts should not require threadId: %v", err)
	}
}

func TestDetailsHashStableAndSensitiveToContent(t *testing.T) {
	a := &Job{Details: []byte("hello")}
	b := &Job{Details: []byte("hello")}
	c := &Job{Details: []byte("world")}

	if a.DetailsHash() != b.DetailsHash() {
		t.Fatal("identical details must hash identically")
	}
	if a.DetailsHash() == c.DetailsHash() {
		t.Fatal("different details should (almost certainly) hash differently")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusPermanentlyFailed}
	nonTerminal := []Status{StatusPendingDependencies, StatusRunnable, StatusRunning, StatusDeferred}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
