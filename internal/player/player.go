package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/config"
)

// Options carries the timing and failure knobs a player runs with.
type Options struct {
	// EventDelay is the default pre-play wait for injected events.
	EventDelay time.Duration
	// TypingDelay separates the key pairs of an expanded type.
	TypingDelay time.Duration
	// PollInterval is the readiness re-check cadence.
	PollInterval time.Duration
	// Timeout is the default not-ready budget. Zero disables timeouts.
	Timeout time.Duration
	// TrapExceptions converts callback panics into playable failures.
	TrapExceptions bool
	// VisualFeedback drives the pointer marker while events play.
	VisualFeedback bool
	// VisualStopGrace delays marker teardown after a failure.
	VisualStopGrace time.Duration
}

// OptionsFromConfig maps the application configuration onto player options.
func OptionsFromConfig(pc config.PlayerConfig) Options {
	return Options{
		EventDelay:      pc.EventDelay,
		TypingDelay:     pc.TypingDelay,
		PollInterval:    pc.PollInterval,
		Timeout:         pc.Timeout,
		TrapExceptions:  pc.TrapExceptions,
		VisualFeedback:  pc.VisualFeedback,
		VisualStopGrace: pc.VisualStopGrace,
	}
}

// Env bundles the collaborators a player needs. Host and Scheduler are
// required; Visual and Sentinel default to no-ops, Logger to a nop logger.
type Env struct {
	Host      schemas.Host
	Scheduler schemas.Scheduler
	Visual    schemas.PointerVisual
	Sentinel  schemas.GestureSentinel
	Logger    *zap.Logger
}

// Player owns the single-track playable queue. At most one playable is in
// flight and at most one scheduler timer is armed at any moment; everything
// the player does happens inside scheduler callbacks, enqueue calls, and
// completion settlements.
type Player struct {
	host     schemas.Host
	sched    schemas.Scheduler
	visual   schemas.PointerVisual
	sentinel schemas.GestureSentinel
	opts     Options
	log      *zap.Logger

	mu         sync.Mutex
	queue      []*Playable
	pending    *Playable
	seq        int64
	timer      schemas.TimerHandle
	timerArmed bool
	timerGen   int64
	paused     int

	// insertPos is the splice cursor active while a queued callback runs on
	// the player goroutine; -1 means inactive (append at tail).
	insertPos  int
	inCallback *Playable

	touchCount     int
	lastGestureEnd time.Time

	subs   map[Signal]map[int64]func(Event)
	subSeq int64
}

// New validates the environment and builds an idle player.
func New(env Env, opts Options) (*Player, error) {
	if env.Host == nil {
		return nil, errors.New("player requires a non-nil host")
	}
	if env.Scheduler == nil {
		return nil, errors.New("player requires a non-nil scheduler")
	}
	if env.Visual == nil {
		env.Visual = NopVisual{}
	}
	if env.Sentinel == nil {
		env.Sentinel = NopSentinel{}
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	return &Player{
		host:      env.Host,
		sched:     env.Scheduler,
		visual:    env.Visual,
		sentinel:  env.Sentinel,
		opts:      opts,
		log:       env.Logger.Named("player"),
		insertPos: -1,
		subs:      make(map[Signal]map[int64]func(Event)),
	}, nil
}

// Options returns the player's effective options.
func (pl *Player) Options() Options {
	return pl.opts
}

// Scheduler returns the clock the player runs on.
func (pl *Player) Scheduler() schemas.Scheduler {
	return pl.sched
}

// Host returns the page surface the player plays against.
func (pl *Player) Host() schemas.Host {
	return pl.host
}

// Enqueue appends playables to the queue, or splices them after the playable
// whose callback is currently running. Back-references are fixed to direct
// pointers here; a reference reaching before the start of the queue is an
// error, except one step onto the in-flight playable. Enqueueing onto an
// idle, unpaused player arms the drain loop.
func (pl *Player) Enqueue(ps ...*Playable) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.enqueueLocked(ps, -1)
}

// enqueueLocked inserts playables and kicks the drain loop if idle. With
// forcedPos >= 0 the batch splices at that position regardless of the
// callback cursor; expansion uses it to splice at the queue head. Caller
// holds mu.
func (pl *Player) enqueueLocked(ps []*Playable, forcedPos int) error {
	pos := forcedPos
	for _, p := range ps {
		if p == nil {
			return errors.New("cannot enqueue a nil playable")
		}
		if p.pl != nil {
			return fmt.Errorf("playable %d already enqueued", p.id)
		}
		if p.kind == KindCallback && !validCallback(p.fn) {
			return fmt.Errorf("unsupported queued callback type %T", p.fn)
		}

		idx := len(pl.queue)
		switch {
		case pos >= 0 && pos <= len(pl.queue):
			idx = pos
		case pl.insertPos >= 0 && pl.insertPos <= len(pl.queue):
			idx = pl.insertPos
		}
		if err := pl.bindBackRefsLocked(p, idx); err != nil {
			return err
		}

		pl.seq++
		p.id = pl.seq
		p.pl = pl
		p.enqueuedAt = pl.sched.Now()
		if !p.delaySet {
			if p.kind == KindEvent {
				p.delay = pl.opts.EventDelay
			}
			p.delaySet = true
		}
		if !p.timeoutSet {
			p.timeout = pl.opts.Timeout
			p.timeoutSet = true
		}

		pl.queue = append(pl.queue, nil)
		copy(pl.queue[idx+1:], pl.queue[idx:])
		pl.queue[idx] = p
		if pos >= 0 {
			pos = idx + 1
		} else if pl.insertPos >= 0 {
			pl.insertPos = idx + 1
		}
	}

	if pl.pending == nil && pl.paused == 0 && len(pl.queue) > 0 {
		pl.startNextLocked()
	}
	return nil
}

// bindBackRefsLocked converts integer back-references on both target slots
// into direct playable pointers, relative to the insertion index.
func (pl *Player) bindBackRefsLocked(p *Playable, idx int) error {
	bind := func(t *Target) error {
		if t.back <= 0 {
			return nil
		}
		cand := idx - t.back
		switch {
		case cand >= 0:
			t.ref = pl.queue[cand]
		case cand == -1 && pl.pending != nil:
			t.ref = pl.pending
		default:
			return fmt.Errorf("back-reference %d reaches before the queue start", t.back)
		}
		t.back = 0
		return nil
	}
	if err := bind(&p.target); err != nil {
		return err
	}
	return bind(&p.related)
}

// HasPending reports whether the player still has work: a queued or in-flight
// playable.
func (pl *Player) HasPending() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.pending != nil || len(pl.queue) > 0
}

// QueueLen returns the number of queued (not yet in-flight) playables.
func (pl *Player) QueueLen() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.queue)
}

// Pause suspends the drain loop. Pauses nest; each Pause needs a matching
// Resume. A pending playable that has not started playing is pushed back to
// the queue head; a playable whose callback is mid-flight keeps running and
// the pause takes effect when it completes.
func (pl *Player) Pause() {
	pl.mu.Lock()
	pl.paused++
	first := pl.paused == 1
	if first && pl.pending != nil && pl.pending != pl.inCallback && pl.pending.state == StatePending {
		pl.cancelTimerLocked()
		p := pl.pending
		p.state = StateQueued
		pl.queue = append([]*Playable{p}, pl.queue...)
		pl.pending = nil
	}
	pl.mu.Unlock()
	if first {
		pl.emit(Event{Signal: SignalPaused})
	}
}

// Resume unwinds one pause level and restarts the drain when the count
// reaches zero.
func (pl *Player) Resume() {
	pl.mu.Lock()
	if pl.paused == 0 {
		pl.mu.Unlock()
		return
	}
	pl.paused--
	resumed := pl.paused == 0
	if resumed && pl.pending == nil && len(pl.queue) > 0 {
		pl.startNextLocked()
	}
	pl.mu.Unlock()
	if resumed {
		pl.emit(Event{Signal: SignalResumed})
	}
}

// Paused reports whether the drain loop is currently suspended.
func (pl *Player) Paused() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.paused > 0
}

// Stop abandons the run: the queue empties, the armed timer is cancelled, and
// an end event fires. Dropped playables are marked errored without individual
// played signals. The player stays usable; the next enqueue starts a fresh
// drain.
func (pl *Player) Stop() {
	pl.mu.Lock()
	dropped := pl.cleanupLocked()
	pl.mu.Unlock()

	pl.log.Debug("player stopped", zap.Int("dropped", len(dropped)))
	pl.sentinel.Deactivate()
	pl.stopVisual(false)
	pl.emit(Event{Signal: SignalEnd})
}

// Fail abandons the run like Stop but reports err through the error signal
// before the end event.
func (pl *Player) Fail(err error) {
	pl.mu.Lock()
	dropped := pl.cleanupLocked()
	pl.mu.Unlock()

	pl.log.Warn("player failed", zap.Error(err), zap.Int("dropped", len(dropped)))
	pl.sentinel.Deactivate()
	pl.stopVisual(true)
	pl.emit(Event{Signal: SignalError, Err: err})
	pl.emit(Event{Signal: SignalEnd})
}

// cleanupLocked empties the queue and cancels the pending playable and timer.
// It returns the dropped playables. Caller holds mu.
func (pl *Player) cleanupLocked() []*Playable {
	pl.cancelTimerLocked()
	now := pl.sched.Now()
	dropped := pl.queue
	pl.queue = nil
	for _, q := range dropped {
		if !q.state.Terminal() {
			q.state = StateErrored
			q.err = errors.New("dropped by player cleanup")
			q.finishedAt = now
		}
	}
	if p := pl.pending; p != nil {
		if !p.state.Terminal() {
			p.state = StateErrored
			p.err = errors.New("dropped by player cleanup")
			p.finishedAt = now
		}
		if p.cancel != nil {
			p.cancel()
		}
		pl.pending = nil
		dropped = append(dropped, p)
	}
	return dropped
}

// startNextLocked shifts the queue head into the pending slot and arms its
// delay timer. Composites get a zero-delay hop so expansion happens on the
// scheduler track; their delay is inherited by the first sub-event instead.
// Caller holds mu.
func (pl *Player) startNextLocked() {
	p := pl.queue[0]
	pl.queue = pl.queue[1:]
	pl.pending = p
	p.state = StatePending
	delay := p.delay
	if p.kind == KindEvent && p.ev.Type.Composite() {
		delay = 0
	}
	pl.armTimerLocked(delay)
}

// armTimerLocked schedules the next playStep. Exactly one timer is armed at a
// time; the generation counter lets a late-firing cancelled timer recognize
// itself as stale. Caller holds mu.
func (pl *Player) armTimerLocked(d time.Duration) {
	pl.cancelTimerLocked()
	pl.timerGen++
	gen := pl.timerGen
	pl.timerArmed = true
	pl.timer = pl.sched.Defer(d, func() {
		pl.playStep(gen)
	})
}

func (pl *Player) cancelTimerLocked() {
	if pl.timerArmed {
		pl.sched.Cancel(pl.timer)
		pl.timerArmed = false
	}
}

// playStep is the heart of the drain loop. Each invocation handles exactly
// one attempt at the pending playable: expand a composite, or run one
// readiness check and either dispatch or re-arm the poll timer. User code and
// host calls always run with the lock released.
func (pl *Player) playStep(gen int64) {
	pl.mu.Lock()
	if gen != pl.timerGen || pl.pending == nil || pl.paused > 0 {
		pl.mu.Unlock()
		return
	}
	pl.timerArmed = false
	p := pl.pending

	if p.kind == KindEvent && p.ev.Type.Composite() {
		pl.mu.Unlock()
		pl.expandPending(p)
		return
	}
	pl.mu.Unlock()

	if !pl.evaluateReady(p) {
		pl.notReady(p)
		return
	}

	pl.mu.Lock()
	if pl.pending != p {
		pl.mu.Unlock()
		return
	}
	p.state = StatePlaying
	pl.mu.Unlock()

	switch p.kind {
	case KindEvent:
		if err := pl.dispatchEvent(p); err != nil {
			pl.failPlayable(p, err)
			return
		}
		pl.finish(p)
	case KindCallback:
		pl.runCallback(p)
	case KindDelay, KindPredicate:
		pl.finish(p)
	}
}

// expandPending splices a composite's sub-sequence at the queue head and
// finishes the composite itself as done.
func (pl *Player) expandPending(p *Playable) {
	subs := pl.expand(p)

	pl.mu.Lock()
	if pl.pending != p {
		pl.mu.Unlock()
		return
	}
	pl.pending = nil
	err := pl.enqueueLocked(subs, 0)
	pl.mu.Unlock()

	if err != nil {
		pl.failPlayable(p, err)
		return
	}
	pl.log.Debug("expanded composite",
		zap.String("type", string(p.ev.Type)),
		zap.Int("subEvents", len(subs)))
	pl.finish(p)
}

// notReady books the first not-ready observation, enforces the timeout, and
// re-arms the poll timer.
func (pl *Player) notReady(p *Playable) {
	now := pl.sched.Now()
	if !p.hasWaited {
		p.hasWaited = true
		p.waitStart = now
	} else if p.timeout > 0 && now.Sub(p.waitStart) >= p.timeout {
		pl.timeoutPlayable(p)
		return
	}

	pl.mu.Lock()
	if pl.pending == p && pl.paused == 0 {
		pl.armTimerLocked(pl.opts.PollInterval)
	}
	pl.mu.Unlock()
}

// dispatchEvent fires one primitive event through the host injector and
// keeps the gesture bookkeeping straight.
func (pl *Player) dispatchEvent(p *Playable) error {
	ev := p.ev

	if pl.opts.VisualFeedback && ev.Type.Pointerish() {
		pl.visual.ShowPointer(ev.X, ev.Y)
	}
	if ev.Type.GestureStart() {
		pl.mu.Lock()
		pl.touchCount++
		pl.mu.Unlock()
		if pl.opts.VisualFeedback {
			pl.visual.ShowGesture()
		}
	}

	err := pl.host.Inject(&ev, p.resolvedTarget, p.resolvedRelated)

	if ev.Type.GestureEnd() {
		pl.mu.Lock()
		if pl.touchCount > 0 {
			pl.touchCount--
		}
		pl.lastGestureEnd = pl.sched.Now()
		pl.mu.Unlock()
		if pl.opts.VisualFeedback {
			pl.visual.HideGesture()
		}
	}
	if err != nil {
		return fmt.Errorf("injecting %s: %w", ev.Type, err)
	}
	return nil
}

// TouchCount returns the number of open gestures. Diagnostics only.
func (pl *Player) TouchCount() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.touchCount
}

// LastGestureEnd returns when the most recent gesture closed, for hosts that
// need to debounce synthetic gesture tails.
func (pl *Player) LastGestureEnd() time.Time {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.lastGestureEnd
}

// finish marks p done and advances the drain loop, firing end when the queue
// has fully drained.
func (pl *Player) finish(p *Playable) {
	pl.mu.Lock()
	if p.state.Terminal() {
		pl.mu.Unlock()
		return
	}
	p.state = StateDone
	p.finishedAt = pl.sched.Now()
	if pl.pending == p {
		pl.pending = nil
	}
	if pl.paused == 0 && pl.pending == nil && len(pl.queue) > 0 {
		pl.startNextLocked()
	}
	// The drain is complete when nothing is queued or in flight, even if a
	// pause will hold the next enqueue.
	drained := pl.pending == nil && len(pl.queue) == 0
	pl.mu.Unlock()

	pl.emit(Event{Signal: SignalPlayed, Playable: p})
	if drained {
		pl.emit(Event{Signal: SignalEnd})
	}
}

// timeoutPlayable fails the run because p never became ready.
func (pl *Player) timeoutPlayable(p *Playable) {
	msg := pl.diagnose(p)
	err := &TimeoutError{Playable: p, Message: msg}

	pl.mu.Lock()
	p.state = StateTimedOut
	p.err = err
	p.finishedAt = pl.sched.Now()
	if pl.pending == p {
		pl.pending = nil
	}
	pl.cleanupLocked()
	pl.mu.Unlock()

	pl.log.Warn("playable timed out", zap.Int64("id", p.id), zap.String("diagnostic", msg))
	pl.sentinel.Deactivate()
	pl.stopVisual(true)
	pl.emit(Event{Signal: SignalPlayed, Playable: p})
	pl.emit(Event{Signal: SignalError, Playable: p, Err: err})
	pl.emit(Event{Signal: SignalEnd})
}

// failPlayable fails the run because p's dispatch or callback errored.
func (pl *Player) failPlayable(p *Playable, err error) {
	pl.mu.Lock()
	if p.state.Terminal() {
		pl.mu.Unlock()
		return
	}
	p.state = StateErrored
	p.err = err
	p.finishedAt = pl.sched.Now()
	if p.cancel != nil {
		p.cancel()
	}
	if pl.pending == p {
		pl.pending = nil
	}
	pl.cleanupLocked()
	pl.mu.Unlock()

	pl.log.Warn("playable failed", zap.Int64("id", p.id), zap.Error(err))
	pl.sentinel.Deactivate()
	pl.stopVisual(true)
	pl.emit(Event{Signal: SignalPlayed, Playable: p})
	pl.emit(Event{Signal: SignalError, Playable: p, Err: err})
	pl.emit(Event{Signal: SignalEnd})
}

// stopVisual tears the pointer marker down, keeping it on screen briefly
// after failures so the last position stays inspectable.
func (pl *Player) stopVisual(grace bool) {
	if !pl.opts.VisualFeedback {
		return
	}
	hide := func() {
		pl.visual.HidePointer()
		pl.visual.HideGesture()
	}
	if grace && pl.opts.VisualStopGrace > 0 {
		pl.sched.Defer(pl.opts.VisualStopGrace, hide)
		return
	}
	hide()
}
