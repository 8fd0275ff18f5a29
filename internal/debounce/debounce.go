// Package debounce collapses bursts of calls into at most two: one at the start of
// the burst and one after it settles.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn with leading and trailing edges.
//
// The first Trigger after a quiet period runs fn immediately. Triggers that arrive
// within wait of the previous one schedule a single trailing run that fires once
// wait has passed without another Trigger.
type Debouncer struct {
	wait time.Duration
	fn   func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	closed  bool
}

// New returns a debouncer. fn runs on its own goroutine for trailing calls.
func New(wait time.Duration, fn func()) *Debouncer {
	return &Debouncer{wait: wait, fn: fn}
}

// Trigger requests a run of fn.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	if d.timer == nil {
		// Leading edge.
		d.gen++
		gen := d.gen
		d.timer = time.AfterFunc(d.wait, func() { d.expire(gen) })
		d.mu.Unlock()
		d.fn()
		return
	}

	d.pending = true
	d.timer.Reset(d.wait)
	d.mu.Unlock()
}

func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	if d.closed || d.timer == nil || gen != d.gen {
		d.mu.Unlock()
		return
	}
	run := d.pending
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	if run {
		d.fn()
	}
}

// Cancel drops a scheduled trailing call and ends the current window.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}

// Close cancels pending work; later Triggers are ignored.
func (d *Debouncer) Close() {
	d.Cancel()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}
