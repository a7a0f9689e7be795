package player

// Signal names a player lifecycle notification.
type Signal string

const (
	// SignalPlayed fires once per playable when it reaches a terminal state.
	SignalPlayed Signal = "played"
	// SignalError fires when a playable times out or fails; the queue has
	// already been emptied when listeners run.
	SignalError Signal = "error"
	// SignalEnd fires every time the queue drains, including after stops and
	// failures.
	SignalEnd Signal = "end"
	// SignalPaused and SignalResumed bracket pause nesting transitions
	// between zero and one.
	SignalPaused  Signal = "paused"
	SignalResumed Signal = "resumed"
)

// Event is the payload delivered to signal listeners.
type Event struct {
	Signal   Signal
	Playable *Playable
	Err      error
}

// On subscribes fn to a signal and returns its unsubscribe function.
// Listeners run synchronously on the goroutine that produced the signal,
// outside the player's lock, so they may enqueue more playables.
func (pl *Player) On(sig Signal, fn func(Event)) (off func()) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.subSeq++
	id := pl.subSeq
	if pl.subs[sig] == nil {
		pl.subs[sig] = make(map[int64]func(Event))
	}
	pl.subs[sig][id] = fn
	return func() {
		pl.mu.Lock()
		defer pl.mu.Unlock()
		delete(pl.subs[sig], id)
	}
}

// Once subscribes fn for a single delivery.
func (pl *Player) Once(sig Signal, fn func(Event)) {
	var off func()
	off = pl.On(sig, func(ev Event) {
		off()
		fn(ev)
	})
}

// emit delivers ev to every listener registered for its signal. The listener
// set is snapshotted under the lock and invoked outside it.
func (pl *Player) emit(ev Event) {
	pl.mu.Lock()
	listeners := make([]func(Event), 0, len(pl.subs[ev.Signal]))
	for _, fn := range pl.subs[ev.Signal] {
		listeners = append(listeners, fn)
	}
	pl.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}
