// Package debounce provides a cancellable trailing-edge debouncer. Each
// trigger cancels the previously scheduled call, so only the last call within
// the delay window fires.
package debounce

import (
	"sync"
	"time"
)

// Debouncer schedules at most one pending call at a time.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending *Handle
}

// Handle identifies one scheduled call and allows cancelling it.
type Handle struct {
	timer *time.Timer

	mu    sync.Mutex
	done  bool
	fired bool
}

// New constructs a Debouncer with the given delay. Non-positive delays fire
// on the next timer tick.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger cancels any pending call and schedules fn after the delay. The
// returned handle cancels just this call.
func (d *Debouncer) Trigger(fn func()) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Cancel()
	}

	handle := &Handle{}
	handle.timer = time.AfterFunc(d.delay, func() {
		handle.mu.Lock()
		if handle.done {
			handle.mu.Unlock()
			return
		}
		handle.done = true
		handle.fired = true
		handle.mu.Unlock()
		fn()
	})
	d.pending = handle
	return handle
}

// Cancel discards the pending call, if any. Safe to call repeatedly.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Cancel()
		d.pending = nil
	}
}

// Cancel stops this scheduled call if it has not fired yet.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.timer.Stop()
}

// Fired reports whether the scheduled call ran.
func (h *Handle) Fired() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}
