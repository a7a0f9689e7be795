// Package harness wraps user spec functions in blocks that know when a spec
// has fully resolved: the body returned, the completion it was handed (if
// any) reported, and the player drained whatever the body enqueued. A runner
// chains blocks into suites and feeds the reporter surface.
package harness

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sencha/orion-core/api/schemas"
)

// WatchDog owns the timeout of one asynchronous wait. It reports exactly
// once: through Done or Fail from user code, or through its own expiry timer.
// A zero timeout never expires; the wait then rests entirely on user code
// calling done.
type WatchDog struct {
	sched    schemas.Scheduler
	timeout  time.Duration
	explicit bool
	report   func(err error)

	mu       sync.Mutex
	armed    bool
	hasTimer bool
	timer    schemas.TimerHandle
	reported bool
}

// NewWatchDog builds a watchdog reporting into report. Explicit records
// whether the caller chose the timeout or inherited a default; expiry
// messages differ so a forgotten done() call reads as such.
func NewWatchDog(sched schemas.Scheduler, timeout time.Duration, explicit bool, report func(error)) *WatchDog {
	return &WatchDog{sched: sched, timeout: timeout, explicit: explicit, report: report}
}

// Arm starts the expiry timer. Arming twice or after a report is a no-op.
func (w *WatchDog) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed || w.reported {
		return
	}
	w.armed = true
	if w.timeout > 0 && w.sched != nil {
		w.timer = w.sched.Defer(w.timeout, w.expire)
		w.hasTimer = true
	}
}

// Done reports success. First report wins.
func (w *WatchDog) Done() {
	w.finish(nil)
}

// Fail reports failure. A nil err still counts as a failure so sloppy
// callers cannot turn a Fail into a pass.
func (w *WatchDog) Fail(err error) {
	if err == nil {
		err = errors.New("spec failed without a reason")
	}
	w.finish(err)
}

// Reported reports whether the watchdog has delivered its verdict.
func (w *WatchDog) Reported() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reported
}

func (w *WatchDog) expire() {
	if w.explicit {
		w.finish(fmt.Errorf("spec timed out after %v waiting for done()", w.timeout))
		return
	}
	w.finish(fmt.Errorf(
		"spec timed out after the default %v waiting for done(): did you forget to call done()?",
		w.timeout))
}

// disarm cancels the timer and marks the watchdog reported without invoking
// the report callback. The block uses it when the body panicked before its
// completion could possibly arrive.
func (w *WatchDog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reported {
		return
	}
	w.reported = true
	if w.hasTimer {
		w.sched.Cancel(w.timer)
		w.hasTimer = false
	}
}

func (w *WatchDog) finish(err error) {
	w.mu.Lock()
	if w.reported {
		w.mu.Unlock()
		return
	}
	w.reported = true
	if w.hasTimer {
		w.sched.Cancel(w.timer)
		w.hasTimer = false
	}
	report := w.report
	w.mu.Unlock()
	if report != nil {
		report(err)
	}
}

// Done is the completion surface handed to asynchronous spec bodies. It
// forwards to the spec's watchdog; the first call wins.
type Done struct {
	w *WatchDog
}

// Done reports the spec's asynchronous work as finished.
func (d *Done) Done() {
	d.w.Done()
}

// Fail reports the spec's asynchronous work as failed.
func (d *Done) Fail(err error) {
	d.w.Fail(err)
}
