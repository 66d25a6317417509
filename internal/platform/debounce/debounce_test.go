package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerFiresAfterDelay(t *testing.T) {
	d := New(10 * time.Millisecond)
	fired := make(chan struct{})

	handle := d.Trigger(func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected the scheduled call to fire")
	}
	if !handle.Fired() {
		t.Fatalf("expected handle to report fired")
	}
}

func TestTriggerCancelsPriorCall(t *testing.T) {
	d := New(20 * time.Millisecond)
	var first, second atomic.Int32
	done := make(chan struct{})

	d.Trigger(func() { first.Add(1) })
	d.Trigger(func() {
		second.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected the second call to fire")
	}
	time.Sleep(50 * time.Millisecond)

	if got := first.Load(); got != 0 {
		t.Fatalf("expected first call suppressed, fired %d times", got)
	}
	if got := second.Load(); got != 1 {
		t.Fatalf("expected second call to fire once, fired %d times", got)
	}
}

func TestCancelStopsPendingCall(t *testing.T) {
	d := New(10 * time.Millisecond)
	var fired atomic.Int32

	handle := d.Trigger(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("expected cancelled call not to fire, fired %d times", got)
	}
	if handle.Fired() {
		t.Fatalf("expected handle to report not fired")
	}
}

func TestHandleCancelIsIdempotent(t *testing.T) {
	d := New(10 * time.Millisecond)
	handle := d.Trigger(func() {})
	handle.Cancel()
	handle.Cancel()
	d.Cancel()
}
