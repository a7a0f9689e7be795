// Package schemas defines the shared contracts between the event player, the
// futures layer, the test harness, and the host adapters that bind them to a
// real or simulated browser page.
package schemas

// EventType identifies the kind of DOM event a playable injects into the
// page. Composite types (Tap, TypeText) never reach an Injector; the player
// expands them into primitive sub-events first.
type EventType string

const (
	PointerDown EventType = "pointerdown"
	PointerUp   EventType = "pointerup"
	PointerMove EventType = "pointermove"
	MouseDown   EventType = "mousedown"
	MouseUp     EventType = "mouseup"
	MouseMove   EventType = "mousemove"
	Click       EventType = "click"
	DblClick    EventType = "dblclick"
	ContextMenu EventType = "contextmenu"
	TouchStart  EventType = "touchstart"
	TouchEnd    EventType = "touchend"
	KeyDown     EventType = "keydown"
	KeyUp       EventType = "keyup"
	Focus       EventType = "focus"
	Blur        EventType = "blur"
	Input       EventType = "input"
	Change      EventType = "change"

	// Tap expands into pointerdown, pointerup, click and a gesture wait.
	Tap EventType = "tap"
	// TypeText expands into keydown/keyup pairs for each rune of Text, or a
	// single pair when only Key is set.
	TypeText EventType = "type"
)

// Composite reports whether the event type is a macro the player expands
// rather than a primitive the host can dispatch.
func (t EventType) Composite() bool {
	return t == Tap || t == TypeText
}

// GestureStart reports whether dispatching the event opens a pointer gesture.
func (t EventType) GestureStart() bool {
	return t == PointerDown || t == MouseDown || t == TouchStart
}

// GestureEnd reports whether dispatching the event closes a pointer gesture.
func (t EventType) GestureEnd() bool {
	return t == PointerUp || t == MouseUp || t == TouchEnd
}

// Pointerish reports whether the event carries page coordinates.
func (t EventType) Pointerish() bool {
	switch t {
	case PointerDown, PointerUp, PointerMove, MouseDown, MouseUp, MouseMove,
		Click, DblClick, ContextMenu, TouchStart, TouchEnd, Tap:
		return true
	}
	return false
}

// EventRecord is the wire-level payload of an injected event. A host adapter
// receives it together with the resolved target element and translates it to
// whatever its transport understands (CDP input domain, synthetic DOM events,
// a recording log).
type EventRecord struct {
	Type EventType `json:"type"`

	// Pointer geometry, relative to the target element's padding box.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Button is the DOM button code for mouse events (0 left, 1 middle,
	// 2 right). Detail is the click count.
	Button int `json:"button,omitempty"`
	Detail int `json:"detail,omitempty"`

	// Key holds a single key identifier for key events. Text holds a string
	// to be typed; only composite TypeText playables carry it.
	Key  string `json:"key,omitempty"`
	Text string `json:"text,omitempty"`

	// Caret positions the text cursor before typing begins. Nil leaves the
	// caret untouched.
	Caret *int `json:"caret,omitempty"`

	ShiftKey bool `json:"shiftKey,omitempty"`
	CtrlKey  bool `json:"ctrlKey,omitempty"`
	AltKey   bool `json:"altKey,omitempty"`
	MetaKey  bool `json:"metaKey,omitempty"`
}

// CopyModifiersTo transfers the modifier flags onto a sub-event record.
// Expansion of composite gestures uses it so that a shift-tap produces
// shift-flagged pointer events.
func (r EventRecord) CopyModifiersTo(dst *EventRecord) {
	dst.ShiftKey = r.ShiftKey
	dst.CtrlKey = r.CtrlKey
	dst.AltKey = r.AltKey
	dst.MetaKey = r.MetaKey
}
