package schemas

import "fmt"

// Availability is the attachment gate a playable applies to its target before
// it is allowed to play.
type Availability int

const (
	// RequireAttached holds the playable until the target exists in the
	// document. This is the default for injected events.
	RequireAttached Availability = iota
	// RequireDetached holds the playable until the target is absent from the
	// document.
	RequireDetached
	// AnyAvailability skips the attachment gate entirely.
	AnyAvailability
)

var availabilityNames = map[Availability]string{
	RequireAttached: "available",
	RequireDetached: "absent",
	AnyAvailability: "any",
}

var availabilityValues = map[string]Availability{
	"available": RequireAttached,
	"absent":    RequireDetached,
	"any":       AnyAvailability,
}

func (a Availability) String() string {
	return availabilityNames[a]
}

// MarshalJSON encodes the policy as its wait-state word.
func (a Availability) MarshalJSON() ([]byte, error) {
	s, ok := availabilityNames[a]
	if !ok {
		return nil, fmt.Errorf("invalid availability policy %d", int(a))
	}
	return []byte(`"` + s + `"`), nil
}

// UnmarshalJSON decodes an availability policy from its wait-state word.
func (a *Availability) UnmarshalJSON(b []byte) error {
	v, ok := availabilityValues[unquote(b)]
	if !ok {
		return fmt.Errorf("invalid availability policy %q", string(b))
	}
	*a = v
	return nil
}

// Visibility is the visibility gate a playable applies to its target before
// it is allowed to play.
type Visibility int

const (
	// RequireVisible holds the playable until the target is visible. This is
	// the default for injected events.
	RequireVisible Visibility = iota
	// RequireHidden holds the playable until the target is hidden.
	RequireHidden
	// AnyVisibility skips the visibility gate entirely.
	AnyVisibility
)

var visibilityNames = map[Visibility]string{
	RequireVisible: "visible",
	RequireHidden:  "hidden",
	AnyVisibility:  "any",
}

var visibilityValues = map[string]Visibility{
	"visible": RequireVisible,
	"hidden":  RequireHidden,
	"any":     AnyVisibility,
}

func (v Visibility) String() string {
	return visibilityNames[v]
}

// MarshalJSON encodes the policy as its wait-state word.
func (v Visibility) MarshalJSON() ([]byte, error) {
	s, ok := visibilityNames[v]
	if !ok {
		return nil, fmt.Errorf("invalid visibility policy %d", int(v))
	}
	return []byte(`"` + s + `"`), nil
}

// UnmarshalJSON decodes a visibility policy from its wait-state word.
func (v *Visibility) UnmarshalJSON(b []byte) error {
	p, ok := visibilityValues[unquote(b)]
	if !ok {
		return fmt.Errorf("invalid visibility policy %q", string(b))
	}
	*v = p
	return nil
}

// AnimationPolicy controls whether a playable waits for page animations to
// settle before its readiness checks run.
type AnimationPolicy int

const (
	// AwaitAnimationIdle holds the playable while any tracked animation is
	// active. Default for injected events.
	AwaitAnimationIdle AnimationPolicy = iota
	// IgnoreAnimations plays regardless of animation state. Pure delays and
	// custom predicates use this so a sleep cannot deadlock on a marquee.
	IgnoreAnimations
)

func (p AnimationPolicy) String() string {
	if p == IgnoreAnimations {
		return "ignore"
	}
	return "idle"
}

// Direction orients a relational query from an origin element or component.
type Direction int

const (
	// Down searches the origin's descendants.
	Down Direction = iota
	// Up searches the origin's ancestors, nearest first.
	Up
	// DirectChild searches only the origin's immediate children.
	DirectChild
)

var directionNames = map[Direction]string{
	Down:        "down",
	Up:          "up",
	DirectChild: "child",
}

func (d Direction) String() string {
	return directionNames[d]
}

// TargetRole says which slot of a playable an element fills. Readiness gates
// apply to both slots, diagnostics name the slot that was still waiting.
type TargetRole int

const (
	// RolePrimary is the element the event is dispatched to.
	RolePrimary TargetRole = iota
	// RoleRelated fills the relatedTarget slot of enter/leave style events.
	RoleRelated
)

func (r TargetRole) String() string {
	if r == RoleRelated {
		return "relatedTarget"
	}
	return "target"
}

func unquote(b []byte) string {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		return string(b[1 : len(b)-1])
	}
	return string(b)
}
