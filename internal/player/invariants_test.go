package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sencha/orion-core/api/schemas"
)

// TestQueueInvariants drains random batches and checks the properties every
// run must hold: one armed timer at a time, one end per drain, every playable
// reaching exactly one terminal state, and enqueue order surviving expansion.
func TestQueueInvariants(t *testing.T) {
	kinds := []string{"click", "tap", "type", "callback", "delay", "predicate"}

	rapid.Check(t, func(rt *rapid.T) {
		sentinel := &recordingSentinel{}
		sentinel.setSettled(true)
		r := newRigEnv(testOptions(), Env{Sentinel: sentinel, Host: newFakeHost()})
		r.host.put("#el", newFakeNode("el"))

		n := rapid.IntRange(1, 10).Draw(rt, "n")
		batch := make([]*Playable, 0, n)
		for i := 0; i < n; i++ {
			delay := time.Duration(rapid.IntRange(0, 3).Draw(rt, "delay")) * 10 * time.Millisecond
			switch rapid.SampledFrom(kinds).Draw(rt, "kind") {
			case "click":
				batch = append(batch, NewEvent(schemas.Click, Expr("#el"), WithDelay(delay)))
			case "tap":
				batch = append(batch, NewEvent(schemas.Tap, Expr("#el"), WithDelay(delay)))
			case "type":
				batch = append(batch, NewEvent(schemas.TypeText, Expr("#el"), WithText("hi"), WithDelay(delay)))
			case "callback":
				batch = append(batch, NewCallback(func() {}, WithDelay(delay)))
			case "delay":
				batch = append(batch, NewDelay(delay))
			case "predicate":
				batch = append(batch, NewPredicate(func(*ReadyProbe) bool { return true }, WithDelay(delay)))
			}
		}

		var played []*Playable
		r.pl.On(SignalPlayed, func(ev Event) { played = append(played, ev.Playable) })

		require.NoError(rt, r.pl.Enqueue(batch...))

		for steps := 0; r.pl.HasPending() && steps < 10000; steps++ {
			assert.LessOrEqual(rt, r.clk.PendingCount(), 1, "at most one armed timer")
			r.clk.Advance(10 * time.Millisecond)
		}

		require.False(rt, r.pl.HasPending(), "queue drained")
		assert.Equal(rt, 1, r.ended, "exactly one end per drain")
		assert.Empty(rt, r.errs)

		ids := func(ps []*Playable) []int64 {
			out := make([]int64, len(ps))
			for i, p := range ps {
				out[i] = p.ID()
			}
			return out
		}
		enqueued := make(map[*Playable]bool, len(batch))
		for _, p := range batch {
			enqueued[p] = true
		}
		var topLevel []*Playable
		for _, p := range played {
			assert.Equal(rt, StateDone, p.State())
			if enqueued[p] {
				topLevel = append(topLevel, p)
				delete(enqueued, p)
			}
		}
		assert.Empty(rt, enqueued, "every enqueued playable produced a played signal")
		assert.Equal(rt, ids(batch), ids(topLevel), "expansion preserves enqueue order")
	})
}
