package engine

import (
	"context"
	"testing"
)

func TestCheckCancelledDefaultsToNil(t *testing.T) {
	if err := CheckCancelled(context.Background()); err != nil {
		t.Fatalf("plain context should never report cancelled: %v", err)
	}
}

func TestCheckCancelledHonoursContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := CheckCancelled(ctx); !isCancelled(err) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
}

func TestCheckCancelledHonoursToken(t *testing.T) {
	tok := &cancellationToken{}
	ctx := withCancellationToken(context.Background(), tok)
	if err := CheckCancelled(ctx); err != nil {
		t.Fatalf("unexpected error before cancel: %v", err)
	}
	tok.cancel()
	if err := CheckCancelled(ctx); !isCancelled(err) {
		t.Fatalf("expected CancelledError after token cancel, got %v", err)
	}
}

func TestLifecycleControllerCancelIsNoOpWhenNotRunning(t *testing.T) {
	l := newLifecycleController()
	l.Cancel(123) // must not panic
	if l.InFlightCount() != 0 {
		t.Fatal("expected no in-flight tasks")
	}
}

func TestLifecycleControllerRegisterCancelUnregister(t *testing.T) {
	l := newLifecycleController()
	tok := &cancellationToken{}
	_, cancelFn := context.WithCancel(context.Background())
	l.register(1, VariantMessageSend, tok, cancelFn)

	if l.InFlightCount() != 1 {
		t.Fatalf("expected 1 in-flight, got %d", l.InFlightCount())
	}
	if !l.isInFlight(1) {
		t.Fatal("job 1 should be in-flight")
	}

	l.Cancel(1)
	if !tok.cancelled {
		t.Fatal("Cancel must flip the cancellation token")
	}

	l.unregister(1)
	if l.InFlightCount() != 0 {
		t.Fatal("expected 0 in-flight after unregister")
	}
}

func TestLifecycleControllerCancelAllScopesToVariant(t *testing.T) {
	l := newLifecycleController()
	tokA, tokB := &cancellationToken{}, &cancellationToken{}
	l.register(1, VariantMessageSend, tokA, func() {})
	l.register(2, VariantGarbageCollection, tokB, func() {})

	v := VariantMessageSend
	l.CancelAll(&v)

	if !tokA.cancelled {
		t.Fatal("messageSend task should be cancelled")
	}
	if tokB.cancelled {
		t.Fatal("garbageCollection task should not be cancelled by a scoped CancelAll")
	}
}

func TestLifecycleControllerSuspendResume(t *testing.T) {
	l := newLifecycleController()
	if l.IsSuspended() {
		t.Fatal("should start resumed")
	}
	l.Suspend()
	if !l.IsSuspended() {
		t.Fatal("expected suspended")
	}
	l.Resume()
	if l.IsSuspended() {
		t.Fatal("expected resumed")
	}
}
