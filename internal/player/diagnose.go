package player

import (
	"fmt"
	"strings"
)

// TimeoutError is raised when a playable exhausts its not-ready budget. The
// message names what was being waited on, the locator or element involved,
// the state that never arrived, and the event that was trying to play.
type TimeoutError struct {
	Playable *Playable
	Message  string
}

func (e *TimeoutError) Error() string {
	return e.Message
}

// diagnose builds the timeout message for a playable that never became
// ready, e.g.
//
//	Timeout waiting for target (#save) to be visible for click
//	Timeout waiting for animations to be idle for pointerdown
//	Timeout waiting for store to be loaded
func (pl *Player) diagnose(p *Playable) string {
	what := p.waitingFor
	state := p.waitingState
	if what == "" {
		what = "target"
	}
	if state == "" {
		state = "ready"
	}

	var b strings.Builder
	b.WriteString("Timeout waiting for ")
	b.WriteString(what)
	if desc := pl.describeWaitingTarget(p, what); desc != "" {
		fmt.Fprintf(&b, " (%s)", desc)
	}
	b.WriteString(" to be ")
	b.WriteString(state)
	if p.kind == KindEvent {
		b.WriteString(" for ")
		b.WriteString(string(p.ev.Type))
	}
	return b.String()
}

// describeWaitingTarget finds a human identifier for the element the playable
// was stuck on. Back-references are walked to the playable that originally
// carried the locator, so a failing expanded sub-event reports the selector
// the test author wrote rather than an internal chain position.
func (pl *Player) describeWaitingTarget(p *Playable, what string) string {
	t := p.target
	if what == "relatedTarget" {
		t = p.related
	}
	for t.ref != nil {
		if t.ref.target.IsZero() {
			break
		}
		t = t.ref.target
	}
	switch {
	case t.expr != "":
		return t.expr
	case t.el != nil:
		return t.el.Describe()
	case t.fn != nil:
		if el := t.fn(); el != nil {
			return el.Describe()
		}
	}
	return ""
}
