// Package clock provides the Scheduler implementations the player runs on: a
// system scheduler backed by the runtime timer wheel, and a manual scheduler
// that tests advance by hand so every poll and timeout fires deterministically.
package clock

import (
	"sync"
	"time"

	"github.com/sencha/orion-core/api/schemas"
)

// System is a Scheduler backed by time.AfterFunc. Safe for concurrent use.
type System struct {
	mu     sync.Mutex
	next   schemas.TimerHandle
	timers map[schemas.TimerHandle]*time.Timer
}

// NewSystem returns a Scheduler driven by the Go runtime.
func NewSystem() *System {
	return &System{timers: make(map[schemas.TimerHandle]*time.Timer)}
}

// Defer runs fn once after d on a new goroutine.
func (s *System) Defer(d time.Duration, fn func()) schemas.TimerHandle {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	s.mu.Unlock()
	return h
}

// Cancel revokes a pending callback. Unknown handles are ignored.
func (s *System) Cancel(h schemas.TimerHandle) {
	s.mu.Lock()
	t, ok := s.timers[h]
	delete(s.timers, h)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// Now returns wall-clock time.
func (s *System) Now() time.Time {
	return time.Now()
}

type manualTimer struct {
	handle schemas.TimerHandle
	due    time.Time
	fn     func()
}

// Manual is a deterministic Scheduler for tests. Deferred callbacks fire only
// when Advance moves simulated time past their due point, on the goroutine
// that called Advance, in due order with handle order breaking ties.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	next    schemas.TimerHandle
	pending []*manualTimer
}

// NewManual returns a manual scheduler positioned at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Defer registers fn to fire once simulated time reaches now+d.
func (m *Manual) Defer(d time.Duration, fn func()) schemas.TimerHandle {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending = append(m.pending, &manualTimer{
		handle: m.next,
		due:    m.now.Add(d),
		fn:     fn,
	})
	return m.next
}

// Cancel revokes a pending callback. Unknown handles are ignored.
func (m *Manual) Cancel(h schemas.TimerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.pending {
		if t.handle == h {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Now returns the current simulated time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// PendingCount returns the number of callbacks waiting to fire.
func (m *Manual) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves simulated time forward by d, firing every callback that
// comes due along the way. Callbacks registered while advancing fire too if
// they fall inside the window, so poll loops make progress within one call.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	deadline := m.now.Add(d)
	for {
		t := m.popDueLocked(deadline)
		if t == nil {
			break
		}
		// Time jumps to the timer's due point before it fires so the
		// callback observes a consistent Now.
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.mu.Unlock()
		t.fn()
		m.mu.Lock()
	}
	m.now = deadline
	m.mu.Unlock()
}

// RunUntilIdle keeps advancing to the next due callback until none remain or
// max callbacks have fired. It returns the number fired.
func (m *Manual) RunUntilIdle(max int) int {
	fired := 0
	for fired < max {
		m.mu.Lock()
		t := m.popDueLocked(farFuture(m.now))
		if t == nil {
			m.mu.Unlock()
			break
		}
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.mu.Unlock()
		t.fn()
		fired++
	}
	return fired
}

// popDueLocked removes and returns the earliest timer due at or before
// deadline, or nil. Caller holds mu.
func (m *Manual) popDueLocked(deadline time.Time) *manualTimer {
	best := -1
	for i, t := range m.pending {
		if t.due.After(deadline) {
			continue
		}
		if best == -1 || t.due.Before(m.pending[best].due) ||
			(t.due.Equal(m.pending[best].due) && t.handle < m.pending[best].handle) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	t := m.pending[best]
	m.pending = append(m.pending[:best], m.pending[best+1:]...)
	return t
}

func farFuture(from time.Time) time.Time {
	return from.Add(1000 * time.Hour)
}
