package schemas

import "time"

// TimerHandle identifies a deferred callback registered with a Scheduler.
// Handles are never reused within the lifetime of a scheduler.
type TimerHandle int64

// Scheduler is the single timing surface the player advances on. Production
// code backs it with the runtime timer wheel; tests drive a manual
// implementation so every readiness poll and timeout fires deterministically.
type Scheduler interface {
	// Defer runs fn once after d has elapsed and returns a handle that can
	// cancel it. A zero or negative duration still defers fn to a later tick
	// rather than invoking it inline.
	Defer(d time.Duration, fn func()) TimerHandle

	// Cancel revokes a deferred callback. Cancelling a handle that already
	// fired or was cancelled is a no-op.
	Cancel(h TimerHandle)

	// Now returns the scheduler's current notion of time. All player
	// timekeeping (timeout accounting, transcript stamps) goes through it.
	Now() time.Time
}

// Element is a wrapper around one live node of the page. Wrappers have
// identity: when a string locator re-resolves to a different node, the player
// rebinds the existing wrapper rather than allocating a new one, so every
// consumer holding the wrapper observes the replacement.
type Element interface {
	// IsAttached reports whether the node is currently connected to the
	// document.
	IsAttached() bool

	// IsVisible reports whether the node is rendered and not hidden by
	// itself or any ancestor.
	IsVisible() bool

	// Text returns the element's visible text content.
	Text() string

	// HasClass reports whether the node's class list contains name.
	HasClass(name string) bool

	// Contains reports whether other is the element itself or one of its
	// descendants.
	Contains(other Element) bool

	// Describe returns a short human identifier for diagnostics: "#id" when
	// the node has an id, otherwise its tag name.
	Describe() string

	// Node exposes the backing node handle. The player compares handles to
	// detect that a locator re-resolved to a replacement node.
	Node() any

	// Rebind swaps the backing node while preserving wrapper identity.
	Rebind(node any)
}

// DOM is the query and wrapping surface of a host page.
type DOM interface {
	// Wrap returns the element wrapper for a raw node handle. Wrapping the
	// same node twice may return distinct wrappers; identity is preserved by
	// Rebind, not by Wrap.
	Wrap(node any) Element

	// Find resolves a locator expression to a raw node handle, or nil when
	// nothing matches. Root scopes the search when non-nil; dir orients it.
	// Strict mode returns an error for ambiguous matches.
	Find(expr string, strict bool, root Element, dir Direction) (any, error)
}

// AnimationProbe reports whether the page has animations in flight. The
// player holds animation-gated playables while AnyActive is true.
type AnimationProbe interface {
	AnyActive() bool
}

// Injector dispatches one primitive event to the page. The player resolves
// targets and enforces readiness before calling it; the injector only
// translates and fires.
type Injector interface {
	Inject(ev *EventRecord, target, related Element) error
}

// PointerVisual renders optional on-page feedback while events play. Hosts
// that cannot draw provide a no-op implementation.
type PointerVisual interface {
	// ShowPointer moves the simulated pointer marker to page coordinates.
	ShowPointer(x, y float64)
	// HidePointer removes the pointer marker.
	HidePointer()
	// ShowGesture marks an open gesture (finger down).
	ShowGesture()
	// HideGesture clears the gesture mark.
	HideGesture()
}

// GestureSentinel lets a host confirm that a composite gesture actually
// reached the page's gesture recognizer. The trailing wait of a tap expansion
// polls Settled until it reports true.
type GestureSentinel interface {
	// Activate is called when the player begins a recognized gesture.
	Activate()
	// Deactivate is called when the player abandons gesture tracking, for
	// example on stop or failure.
	Deactivate()
	// Settled reports whether the named gesture on the described target has
	// been fully processed by the page.
	Settled(targetDesc, gesture string) bool
}

// Host bundles the collaborator surfaces a player environment requires.
// PointerVisual and GestureSentinel are optional extras wired separately.
type Host interface {
	DOM
	AnimationProbe
	Injector
	ComponentSource
}
