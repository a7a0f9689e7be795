package player

import (
	"github.com/sencha/orion-core/api/schemas"
)

// ReadyProbe is handed to custom ready functions. It exposes what the default
// pipeline would know and lets the predicate tag what it is waiting on so a
// timeout produces a readable diagnostic.
type ReadyProbe struct {
	p  *Playable
	pl *Player
}

// SetWaiting tags the obstacle the predicate is currently blocked on, for
// example ("store", "loaded").
func (rp *ReadyProbe) SetWaiting(what, state string) {
	rp.p.setWaiting(what, state)
}

// Target resolves and returns the playable's target element, or nil when it
// cannot be resolved yet. Resolution follows the same rules as the default
// pipeline, minus the availability and visibility gates.
func (rp *ReadyProbe) Target() schemas.Element {
	rp.pl.resolveBare(rp.p)
	return rp.p.resolvedTarget
}

// Scheduler exposes the player's clock so predicates never consult wall time.
func (rp *ReadyProbe) Scheduler() schemas.Scheduler {
	return rp.pl.sched
}

// evaluateReady runs one readiness check. Custom ready functions replace the
// whole pipeline; otherwise the order is animations, then the primary target,
// then the related target. Each failing stage tags the playable and returns
// false, leaving the remaining stages for the next poll.
func (pl *Player) evaluateReady(p *Playable) bool {
	if p.ready != nil {
		ok := p.ready(&ReadyProbe{p: p, pl: pl})
		if ok {
			p.clearWaiting()
		}
		return ok
	}

	if p.animation == schemas.AwaitAnimationIdle && pl.host.AnyActive() {
		p.setWaiting("animations", "idle")
		return false
	}
	if !pl.resolveRole(p, schemas.RolePrimary) {
		return false
	}
	if !pl.resolveRole(p, schemas.RoleRelated) {
		return false
	}
	p.clearWaiting()
	return true
}

// resolveRole resolves one target slot and applies the availability and
// visibility gates to it. An empty slot passes vacuously.
func (pl *Player) resolveRole(p *Playable, role schemas.TargetRole) bool {
	t := p.target
	slot := &p.resolvedTarget
	if role == schemas.RoleRelated {
		t = p.related
		slot = &p.resolvedRelated
	}
	if t.IsZero() {
		return true
	}

	el, found := pl.resolveTarget(t, slot)
	if !found {
		// Nothing matched. That satisfies a detach wait and blocks
		// everything else.
		if p.availability == schemas.RequireDetached {
			return true
		}
		p.setWaiting(role.String(), schemas.RequireAttached.String())
		return false
	}

	switch p.availability {
	case schemas.RequireAttached:
		if !el.IsAttached() {
			p.setWaiting(role.String(), schemas.RequireAttached.String())
			return false
		}
	case schemas.RequireDetached:
		if el.IsAttached() {
			p.setWaiting(role.String(), schemas.RequireDetached.String())
			return false
		}
		// Detached is what we wanted; visibility is meaningless now.
		return true
	}

	switch p.visibility {
	case schemas.RequireVisible:
		if !el.IsVisible() {
			p.setWaiting(role.String(), schemas.RequireVisible.String())
			return false
		}
	case schemas.RequireHidden:
		if el.IsVisible() {
			p.setWaiting(role.String(), schemas.RequireHidden.String())
			return false
		}
	}
	return true
}

// resolveTarget materializes a target into an element wrapper. String
// locators re-run on every poll: a first match allocates the wrapper through
// the host, a re-match onto a different node rebinds the existing wrapper in
// place so everyone holding it sees the replacement.
func (pl *Player) resolveTarget(t Target, slot *schemas.Element) (schemas.Element, bool) {
	switch {
	case t.ref != nil:
		el := t.ref.resolvedTarget
		if el == nil {
			return nil, false
		}
		*slot = el
		return el, true

	case t.el != nil:
		*slot = t.el
		return t.el, true

	case t.fn != nil:
		el := t.fn()
		if el == nil {
			// A resolver that returns nil after succeeding earlier drops the
			// playable back to not-ready; the stale wrapper stays cached but
			// is not trusted.
			return nil, false
		}
		*slot = el
		return el, true

	case t.expr != "":
		node, err := pl.host.Find(t.expr, false, nil, schemas.Down)
		if err != nil || node == nil {
			return nil, false
		}
		if *slot == nil {
			*slot = pl.host.Wrap(node)
		} else if (*slot).Node() != node {
			(*slot).Rebind(node)
		}
		return *slot, true
	}
	return nil, false
}

// resolveBare resolves the primary target without applying gates. Custom
// ready functions use it through the probe.
func (pl *Player) resolveBare(p *Playable) {
	if p.target.IsZero() {
		return
	}
	pl.resolveTarget(p.target, &p.resolvedTarget)
}
