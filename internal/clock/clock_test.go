package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualFiresInDueOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var got []string

	m.Defer(30*time.Millisecond, func() { got = append(got, "c") })
	m.Defer(10*time.Millisecond, func() { got = append(got, "a") })
	m.Defer(20*time.Millisecond, func() { got = append(got, "b") })

	m.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)

	m.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, m.PendingCount())
}

func TestManualTieBreaksByRegistrationOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var got []int

	m.Defer(10*time.Millisecond, func() { got = append(got, 1) })
	m.Defer(10*time.Millisecond, func() { got = append(got, 2) })

	m.Advance(10 * time.Millisecond)
	assert.Equal(t, []int{1, 2}, got)
}

func TestManualCancel(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	fired := false

	h := m.Defer(5*time.Millisecond, func() { fired = true })
	m.Cancel(h)
	m.Advance(time.Second)

	assert.False(t, fired)
	m.Cancel(h) // second cancel is a no-op
}

func TestManualChainedDefersFireWithinOneAdvance(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	var poll func()
	poll = func() {
		ticks++
		if ticks < 5 {
			m.Defer(10*time.Millisecond, poll)
		}
	}
	m.Defer(10*time.Millisecond, poll)

	m.Advance(100 * time.Millisecond)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, time.Unix(0, 0).Add(100*time.Millisecond), m.Now())
}

func TestManualNowAdvancesToDuePointBeforeFiring(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var seen time.Time
	m.Defer(25*time.Millisecond, func() { seen = m.Now() })

	m.Advance(time.Second)
	assert.Equal(t, time.Unix(0, 0).Add(25*time.Millisecond), seen)
}

func TestRunUntilIdleStopsAtCap(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	count := 0
	var loop func()
	loop = func() {
		count++
		m.Defer(time.Millisecond, loop)
	}
	m.Defer(time.Millisecond, loop)

	fired := m.RunUntilIdle(10)
	assert.Equal(t, 10, fired)
	assert.Equal(t, 10, count)
}

func TestSystemDeferAndCancel(t *testing.T) {
	s := NewSystem()
	done := make(chan struct{})

	s.Defer(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deferred callback never fired")
	}

	fired := make(chan struct{})
	h := s.Defer(20*time.Millisecond, func() { close(fired) })
	s.Cancel(h)
	select {
	case <-fired:
		t.Fatal("cancelled callback fired")
	case <-time.After(60 * time.Millisecond):
	}

	require.NotZero(t, s.Now())
}
