// Package player implements the cooperative event queue that drives UI test
// scenarios: playables enter a single-track queue, wait for their target to
// become ready, then dispatch an event, run a callback, or satisfy a
// predicate. All timing flows through an injected Scheduler so tests can
// advance a manual clock instead of sleeping.
package player

import (
	"time"

	"github.com/sencha/orion-core/api/schemas"
)

// Kind discriminates the payload of a playable.
type Kind int

const (
	// KindEvent injects a DOM event once the target is ready.
	KindEvent Kind = iota
	// KindCallback runs a queued function and waits for its completion.
	KindCallback
	// KindDelay sleeps for the playable's delay and finishes.
	KindDelay
	// KindPredicate polls a custom ready function with no dispatch.
	KindPredicate
)

var kindNames = map[Kind]string{
	KindEvent:     "event",
	KindCallback:  "callback",
	KindDelay:     "wait-delay",
	KindPredicate: "wait-predicate",
}

func (k Kind) String() string {
	return kindNames[k]
}

// State is a playable's position in its lifecycle. Legal transitions are
// queued -> pending -> playing -> one terminal state; a paused player moves a
// pending playable back to queued.
type State int

const (
	StateQueued State = iota
	StatePending
	StatePlaying
	StateDone
	StateTimedOut
	StateErrored
)

var stateNames = map[State]string{
	StateQueued:   "queued",
	StatePending:  "pending",
	StatePlaying:  "playing",
	StateDone:     "done",
	StateTimedOut: "timed-out",
	StateErrored:  "errored",
}

func (s State) String() string {
	return stateNames[s]
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateDone || s == StateTimedOut || s == StateErrored
}

// Target designates where a playable lands. At most one designation is set;
// the zero Target means "no target" and passes readiness vacuously.
type Target struct {
	expr string
	el   schemas.Element
	fn   func() schemas.Element
	back int
	ref  *Playable
}

// Expr targets the first element matching a locator expression. The
// expression is re-evaluated on every readiness poll and the wrapper is
// rebound in place when it resolves to a replacement node.
func Expr(expr string) Target {
	return Target{expr: expr}
}

// El targets an already resolved element wrapper.
func El(el schemas.Element) Target {
	return Target{el: el}
}

// ElFunc targets whatever the function returns at poll time. A nil return
// puts the playable back into the not-ready state even if it resolved before.
func ElFunc(fn func() schemas.Element) Target {
	return Target{fn: fn}
}

// Back targets the same element as the playable n positions earlier in the
// queue. The reference is fixed at enqueue time; n must be at least 1.
func Back(n int) Target {
	return Target{back: n}
}

// Of targets the same element as another playable, typically a future's root.
func Of(p *Playable) Target {
	return Target{ref: p}
}

// IsZero reports whether the target designates nothing.
func (t Target) IsZero() bool {
	return t.expr == "" && t.el == nil && t.fn == nil && t.back == 0 && t.ref == nil
}

// Playable is one unit of queued work. Construct with NewEvent, NewCallback,
// NewDelay or NewPredicate and hand it to Player.Enqueue; a playable can be
// enqueued once.
type Playable struct {
	id   int64
	kind Kind

	ev EventRecord

	fn        any
	expireMsg string

	target  Target
	related Target

	resolvedTarget  schemas.Element
	resolvedRelated schemas.Element

	availability schemas.Availability
	visibility   schemas.Visibility
	animation    schemas.AnimationPolicy

	ready func(*ReadyProbe) bool

	delay      time.Duration
	delaySet   bool
	timeout    time.Duration
	timeoutSet bool

	state State

	waitingFor   string
	waitingState string
	waiting      bool
	hasWaited    bool
	waitStart    time.Time

	enqueuedAt time.Time
	finishedAt time.Time
	err        error

	// cancel tears down the context handed to a running ctx-shaped callback
	// so a stopped player does not strand the user goroutine.
	cancel func()

	pl *Player
}

// EventRecord aliases the shared payload type for convenience at call sites.
type EventRecord = schemas.EventRecord

// Option configures a playable at construction time.
type Option func(*Playable)

// At sets the event coordinates relative to the target's padding box.
func At(x, y float64) Option {
	return func(p *Playable) { p.ev.X, p.ev.Y = x, y }
}

// WithButton sets the DOM mouse button code.
func WithButton(b int) Option {
	return func(p *Playable) { p.ev.Button = b }
}

// WithDetail sets the event's click count.
func WithDetail(n int) Option {
	return func(p *Playable) { p.ev.Detail = n }
}

// WithKey sets the key identifier for key events and single-key types.
func WithKey(key string) Option {
	return func(p *Playable) { p.ev.Key = key }
}

// WithText sets the text payload of a type playable.
func WithText(text string) Option {
	return func(p *Playable) { p.ev.Text = text }
}

// WithCaret positions the text cursor before typing begins.
func WithCaret(pos int) Option {
	return func(p *Playable) { p.ev.Caret = &pos }
}

// WithModifiers sets the modifier key flags carried by the event.
func WithModifiers(shift, ctrl, alt, meta bool) Option {
	return func(p *Playable) {
		p.ev.ShiftKey, p.ev.CtrlKey, p.ev.AltKey, p.ev.MetaKey = shift, ctrl, alt, meta
	}
}

// WithDelay overrides the pre-play delay. Events default to the player's
// configured event delay, everything else to zero.
func WithDelay(d time.Duration) Option {
	return func(p *Playable) { p.delay, p.delaySet = d, true }
}

// WithTimeout overrides how long the playable may stay not-ready before the
// player fails the run. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Playable) { p.timeout, p.timeoutSet = d, true }
}

// WithTarget attaches a target to a callback or predicate playable.
func WithTarget(t Target) Option {
	return func(p *Playable) { p.target = t }
}

// WithRelated fills the relatedTarget slot. The related element passes the
// same readiness gates as the primary target.
func WithRelated(t Target) Option {
	return func(p *Playable) { p.related = t }
}

// WithAvailability overrides the attachment gate.
func WithAvailability(a schemas.Availability) Option {
	return func(p *Playable) { p.availability = a }
}

// WithVisibility overrides the visibility gate.
func WithVisibility(v schemas.Visibility) Option {
	return func(p *Playable) { p.visibility = v }
}

// WithAnimation overrides the animation gate.
func WithAnimation(a schemas.AnimationPolicy) Option {
	return func(p *Playable) { p.animation = a }
}

// WithExpireMessage replaces the generic completion-timeout message of a
// callback playable with something the test author will recognize.
func WithExpireMessage(msg string) Option {
	return func(p *Playable) { p.expireMsg = msg }
}

// NewEvent builds a playable that injects an event at target once it is
// attached, visible, and animations have settled.
func NewEvent(t schemas.EventType, target Target, opts ...Option) *Playable {
	p := &Playable{
		kind:         KindEvent,
		ev:           EventRecord{Type: t},
		target:       target,
		availability: schemas.RequireAttached,
		visibility:   schemas.RequireVisible,
		animation:    schemas.AwaitAnimationIdle,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewCallback builds a playable around a queued function. Supported shapes:
//
//	func()
//	func() error
//	func(done *Completion)
//	func(ctx context.Context) error
//
// The first two complete when they return. The Completion shape completes
// when Done or Fail is called, from any goroutine. The context shape runs on
// its own goroutine with a deadline derived from the playable's timeout.
func NewCallback(fn any, opts ...Option) *Playable {
	p := &Playable{
		kind:         KindCallback,
		fn:           fn,
		availability: schemas.AnyAvailability,
		visibility:   schemas.AnyVisibility,
		animation:    schemas.IgnoreAnimations,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewDelay builds a pure sleep. Delays ignore animations so a wait cannot
// deadlock against a perpetual spinner.
func NewDelay(d time.Duration) *Playable {
	return &Playable{
		kind:         KindDelay,
		delay:        d,
		delaySet:     true,
		availability: schemas.AnyAvailability,
		visibility:   schemas.AnyVisibility,
		animation:    schemas.IgnoreAnimations,
	}
}

// NewPredicate builds a playable that is ready exactly when fn reports true.
// The predicate replaces the default readiness pipeline entirely; it should
// call probe.SetWaiting so timeouts carry a useful diagnostic. A nil fn keeps
// the default pipeline, turning the playable into a pure wait on whatever
// target and gates the options attach.
func NewPredicate(fn func(*ReadyProbe) bool, opts ...Option) *Playable {
	p := &Playable{
		kind:         KindPredicate,
		ready:        fn,
		availability: schemas.AnyAvailability,
		visibility:   schemas.AnyVisibility,
		animation:    schemas.IgnoreAnimations,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ID returns the playable's enqueue sequence number, or zero before enqueue.
func (p *Playable) ID() int64 {
	return p.id
}

// Kind returns the playable's payload discriminator.
func (p *Playable) Kind() Kind {
	return p.kind
}

// Event returns a copy of the event payload.
func (p *Playable) Event() EventRecord {
	return p.ev
}

// State returns the playable's current lifecycle state.
func (p *Playable) State() State {
	if p.pl == nil {
		return p.state
	}
	p.pl.mu.Lock()
	defer p.pl.mu.Unlock()
	return p.state
}

// Err returns the failure that terminated the playable, if any.
func (p *Playable) Err() error {
	if p.pl == nil {
		return p.err
	}
	p.pl.mu.Lock()
	defer p.pl.mu.Unlock()
	return p.err
}

// ResolvedTarget returns the element the playable resolved, or nil while the
// target is still unresolved. Futures read it off their root playable.
func (p *Playable) ResolvedTarget() schemas.Element {
	return p.resolvedTarget
}

// Timeout returns the effective not-ready budget. Meaningful after enqueue,
// when the player has applied its default.
func (p *Playable) Timeout() time.Duration {
	return p.timeout
}

// Delay returns the effective pre-play delay. Meaningful after enqueue.
func (p *Playable) Delay() time.Duration {
	return p.delay
}

// setWaiting records what the playable is stuck on. The tags survive until
// the next setWaiting so a timeout can report the last obstacle even if the
// final poll failed at an earlier pipeline stage.
func (p *Playable) setWaiting(what, state string) {
	p.waitingFor = what
	p.waitingState = state
	p.waiting = true
}

func (p *Playable) clearWaiting() {
	p.waiting = false
}

// WaitingOn returns the current waiting tags and whether the playable is
// actually blocked right now.
func (p *Playable) WaitingOn() (what, state string, blocked bool) {
	return p.waitingFor, p.waitingState, p.waiting
}
