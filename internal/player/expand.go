package player

import (
	"github.com/sencha/orion-core/api/schemas"
)

// expand translates a composite playable into its primitive sub-sequence.
// Expansion happens when the composite reaches the queue head, not at
// enqueue, so locators that depend on prior events still resolve against the
// right document state. The returned playables are spliced where the
// composite sat; the composite itself plays nothing and finishes as done.
func (pl *Player) expand(p *Playable) []*Playable {
	switch p.ev.Type {
	case schemas.Tap:
		return pl.expandTap(p)
	case schemas.TypeText:
		return pl.expandType(p)
	}
	return nil
}

// expandTap produces pointerdown, pointerup, click, then a gesture wait. The
// pointerdown inherits the tap's target, delay and coordinates; the rest
// back-reference it so all four land on the same resolved element even if the
// locator would now match something else. The trailing wait holds the queue
// until the host's gesture recognizer reports the tap settled.
func (pl *Player) expandTap(p *Playable) []*Playable {
	down := NewEvent(schemas.PointerDown, p.target,
		At(p.ev.X, p.ev.Y),
		WithButton(p.ev.Button),
		WithDelay(p.delay),
		WithTimeout(p.timeout),
	)
	up := NewEvent(schemas.PointerUp, Back(1),
		At(p.ev.X, p.ev.Y),
		WithButton(p.ev.Button),
		WithDelay(0),
		WithTimeout(p.timeout),
	)
	click := NewEvent(schemas.Click, Back(2),
		At(p.ev.X, p.ev.Y),
		WithButton(p.ev.Button),
		WithDetail(1),
		WithDelay(0),
		WithTimeout(p.timeout),
	)
	for _, sub := range []*Playable{down, up, click} {
		p.ev.CopyModifiersTo(&sub.ev)
		sub.related = p.related
	}

	sentinel := pl.sentinel
	sentinel.Activate()
	wait := NewPredicate(func(probe *ReadyProbe) bool {
		desc := ""
		if el := probe.Target(); el != nil {
			desc = el.Describe()
		}
		if !sentinel.Settled(desc, "tap") {
			probe.SetWaiting("gesture", "settled")
			return false
		}
		sentinel.Deactivate()
		return true
	},
		WithTarget(Back(2)),
		WithDelay(0),
		WithTimeout(p.timeout),
	)

	return []*Playable{down, up, click, wait}
}

// expandType produces a keydown/keyup pair per rune of the text, or a single
// pair when only a key identifier is set. The first keydown inherits the
// type's delay and caret; later keydowns use the configured typing delay and
// keyups follow immediately. A type with neither text nor key expands to
// nothing and is skipped.
func (pl *Player) expandType(p *Playable) []*Playable {
	var keys []string
	switch {
	case p.ev.Text != "":
		for _, r := range p.ev.Text {
			keys = append(keys, string(r))
		}
	case p.ev.Key != "":
		keys = []string{p.ev.Key}
	default:
		return nil
	}

	subs := make([]*Playable, 0, len(keys)*2)
	for i, key := range keys {
		target := p.target
		delay := pl.opts.TypingDelay
		if i > 0 {
			// Chain onto the first keydown so every pair hits the element
			// the type originally resolved.
			target = Back(2 * i)
		} else {
			delay = p.delay
		}

		down := NewEvent(schemas.KeyDown, target,
			WithKey(key),
			WithDelay(delay),
			WithTimeout(p.timeout),
		)
		if i == 0 && p.ev.Caret != nil {
			WithCaret(*p.ev.Caret)(down)
		}
		up := NewEvent(schemas.KeyUp, Back(1),
			WithKey(key),
			WithDelay(0),
			WithTimeout(p.timeout),
		)
		p.ev.CopyModifiersTo(&down.ev)
		p.ev.CopyModifiersTo(&up.ev)
		subs = append(subs, down, up)
	}
	return subs
}
