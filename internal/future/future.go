// Package future is the fluent layer over the player. A future stands for a
// to-be-resolved element, component, or record; constructing one enqueues a
// root playable that resolves and caches the target, and every chained call
// enqueues more playables against that shared resolution. Nothing runs at
// call time; the player drains the chain in source order.
package future

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

// Variant selects the widget toolkit vocabulary the state descriptors use.
type Variant string

const (
	// VariantClassic matches the classic toolkit: collapse flags and checked
	// properties live on the component.
	VariantClassic Variant = "classic"
	// VariantModern matches the modern toolkit: expanded and pressed states
	// surface as element classes, toggle fields store booleans in value.
	VariantModern Variant = "modern"
)

// ParseVariant maps a configuration string onto a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantClassic, VariantModern:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown toolkit variant %q", s)
}

// stateDebounce is the settle window between a state event firing and the
// deciding re-check of its predicate.
const stateDebounce = 50 * time.Millisecond

// Driver builds futures against one player and host. The toolkit variant is
// applied once here; every future constructed by the driver shares the merged
// state tables.
type Driver struct {
	pl      *player.Player
	host    schemas.Host
	log     *zap.Logger
	timeout time.Duration
	variant Variant
	states  map[string]stateTable
}

// NewDriver wires a driver to a player. The default timeout for future
// chains comes from the player's options.
func NewDriver(pl *player.Player, variant Variant, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		pl:      pl,
		host:    pl.Host(),
		log:     log.Named("future"),
		timeout: pl.Options().Timeout,
		variant: variant,
		states:  mergedTables(variant),
	}
}

// Player returns the player the driver enqueues into.
func (d *Driver) Player() *player.Player {
	return d.pl
}

// Variant returns the toolkit vocabulary in effect.
func (d *Driver) Variant() Variant {
	return d.variant
}

// Option adjusts a future at construction.
type Option func(*core)

// Within sets the not-ready budget for the future's root and every playable
// its chain enqueues. Zero disables timeouts for the chain.
func Within(t time.Duration) Option {
	return func(c *core) { c.timeout = t }
}

// core carries the per-future state every class shares: the driver, the root
// playable that resolves the target, and the chain timeout.
type core struct {
	d       *Driver
	class   string
	locator string
	root    *player.Playable
	timeout time.Duration

	// elFn resolves the future's element live, at the poll time of whichever
	// playable needs it. Nil for element futures, whose root caches the
	// wrapper itself.
	elFn func() schemas.Element
	// compFn returns the future's resolved component. Nil for plain element
	// futures.
	compFn func() schemas.Component
	// value picks what inspection callbacks receive: the element for element
	// futures, the component for component futures, the record for items.
	value func() any
}

// newCore builds the shared state for an element-rooted future. The root
// playable waits for existence only; visibility and animations are left to
// the chained playables that need them.
func (d *Driver) newCore(class, locator string, target player.Target, opts []Option) *core {
	c := &core{
		d:       d,
		class:   class,
		locator: locator,
		timeout: d.timeout,
	}
	for _, o := range opts {
		o(c)
	}
	c.root = player.NewPredicate(nil,
		player.WithTarget(target),
		player.WithAvailability(schemas.RequireAttached),
		player.WithTimeout(c.timeout),
	)
	c.value = func() any { return c.root.ResolvedTarget() }
	c.enqueue(c.root)
	return c
}

// newCompCore builds the shared state for a component-rooted future. The
// root playable resolves the component only; the element is looked up live
// through the cached component so pre-render states can run before DOM
// exists.
func (d *Driver) newCompCore(class, query string, resolve func() (schemas.Component, bool), opts []Option) *core {
	c := &core{
		d:       d,
		class:   class,
		locator: query,
		timeout: d.timeout,
	}
	for _, o := range opts {
		o(c)
	}

	var comp schemas.Component
	c.root = player.NewPredicate(func(probe *player.ReadyProbe) bool {
		if comp == nil {
			found, ok := resolve()
			if !ok {
				probe.SetWaiting(fmt.Sprintf("component (%s)", query), "present")
				return false
			}
			comp = found
		}
		return true
	}, player.WithTimeout(c.timeout))

	c.compFn = func() schemas.Component { return comp }
	c.elFn = func() schemas.Element {
		if comp == nil {
			return nil
		}
		return comp.El()
	}
	c.value = func() any {
		if comp == nil {
			return nil
		}
		return comp
	}
	c.enqueue(c.root)
	return c
}

// describe names the future in diagnostics: the locator when one exists,
// otherwise the class.
func (c *core) describe() string {
	if c.locator != "" {
		return c.locator
	}
	return c.class
}

// el returns the element the future currently resolves to, or nil.
func (c *core) el() schemas.Element {
	if c.elFn != nil {
		return c.elFn()
	}
	return c.root.ResolvedTarget()
}

// comp returns the future's component, or nil for element futures.
func (c *core) comp() schemas.Component {
	if c.compFn == nil {
		return nil
	}
	return c.compFn()
}

// target designates the future's element for a chained playable: the live
// resolver when one exists, otherwise the root's cached resolution.
func (c *core) target() player.Target {
	if c.elFn != nil {
		return player.ElFunc(c.elFn)
	}
	return player.Of(c.root)
}

// enqueue hands playables to the player. Enqueue errors are construction
// bugs (bad back-references, unsupported callback shapes); they fail the run
// so the harness reports them on the current spec instead of panicking.
func (c *core) enqueue(ps ...*player.Playable) {
	if err := c.d.pl.Enqueue(ps...); err != nil {
		c.d.log.Error("enqueue failed",
			zap.String("future", c.describe()),
			zap.Error(err))
		c.d.pl.Fail(fmt.Errorf("future %s: %w", c.describe(), err))
	}
}

// event enqueues one injected event targeting the future's resolution.
func (c *core) event(t schemas.EventType, opts ...player.Option) {
	all := make([]player.Option, 0, len(opts)+2)
	all = append(all, player.WithTimeout(c.timeout))
	all = append(all, opts...)
	c.enqueue(player.NewEvent(t, c.target(), all...))
}

// callback enqueues a queued function with the chain timeout applied.
func (c *core) callback(fn any, opts ...player.Option) {
	all := make([]player.Option, 0, len(opts)+1)
	all = append(all, player.WithTimeout(c.timeout))
	all = append(all, opts...)
	c.enqueue(player.NewCallback(fn, all...))
}

// setProp writes one component property through the widget API. It runs
// inside an action playable, after earlier playables in the chain resolved
// the component.
func (c *core) setProp(name string, value any) error {
	comp := c.comp()
	if comp == nil {
		return fmt.Errorf("%s: component not resolved", c.describe())
	}
	comp.Set(name, value)
	return nil
}

// and enqueues the inspection steps in order. A StepTimeout step adjusts the
// budget of the steps after it within this call only.
func (c *core) and(steps []AndStep) {
	timeout := c.timeout
	for _, s := range steps {
		switch {
		case s.hasTimeout:
			timeout = s.timeout
		case s.sync != nil:
			fn := s.sync
			c.enqueue(player.NewCallback(func() { fn(c.value()) },
				player.WithTimeout(timeout)))
		case s.async != nil:
			fn := s.async
			c.enqueue(player.NewCallback(func(done *player.Completion) { fn(c.value(), done) },
				player.WithTimeout(timeout),
				player.WithExpireMessage(fmt.Sprintf(
					"inspection of %s did not signal completion", c.describe()))))
		}
	}
}

// wait enqueues delays and labelled predicates.
func (c *core) wait(steps []WaitStep) {
	label := ""
	for _, s := range steps {
		switch {
		case s.isPause:
			c.enqueue(player.NewDelay(s.pause))
		case s.isLabel:
			label = s.label
		case s.until != nil:
			what := label
			if what == "" {
				what = "wait condition"
			}
			label = ""
			fn := s.until
			c.enqueue(player.NewPredicate(func(probe *player.ReadyProbe) bool {
				if fn() {
					return true
				}
				probe.SetWaiting(what, "satisfied")
				return false
			}, player.WithTimeout(c.timeout)))
		}
	}
}

// relTarget builds the resolver for a relational future: find selector from
// this future's element in the given direction, keeping one wrapper and
// rebinding it across re-renders.
func (c *core) relTarget(selector string, dir schemas.Direction) player.Target {
	host := c.d.host
	var cached schemas.Element
	return player.ElFunc(func() schemas.Element {
		origin := c.el()
		if origin == nil {
			return nil
		}
		node, err := host.Find(selector, false, origin, dir)
		if err != nil || node == nil {
			return nil
		}
		if cached == nil {
			cached = host.Wrap(node)
		} else if cached.Node() != node {
			cached.Rebind(node)
		}
		return cached
	})
}

// derive builds an element future rooted at this future's resolution,
// searching selector in the given direction. The child future inherits the
// parent's timeout.
func (c *core) derive(selector string, dir schemas.Direction) *Element {
	desc := fmt.Sprintf("%s %s %s", c.describe(), dir, selector)
	nc := c.d.newCore(classElement, desc, c.relTarget(selector, dir), []Option{Within(c.timeout)})
	return elementFrom(nc)
}

// state enqueues the named wait state from the future's class table. The tag
// is what the timeout diagnostic reports the target should "be"; it defaults
// to the state name.
func (c *core) state(name, tag string, args ...any) {
	desc, ok := c.d.states[c.class][name]
	if !ok {
		c.d.pl.Fail(fmt.Errorf("future class %s has no state %q", c.class, name))
		return
	}
	if tag == "" {
		tag = name
	}
	switch {
	case desc.Arm != nil:
		c.stateArmed(desc, tag, args)
	case desc.Is != nil:
		c.statePolled(desc, tag, args)
	default:
		c.stateGated(desc)
	}
}

// stateCtx snapshots the future's current resolution for one descriptor
// evaluation. Rebuilt on every check so long waits see live state.
func (c *core) stateCtx(args []any) *StateCtx {
	return &StateCtx{
		El:    c.el(),
		Comp:  c.comp(),
		Args:  args,
		Host:  c.d.host,
		Sched: c.d.pl.Scheduler(),
	}
}

// stateGated waits on the readiness pipeline's own availability and
// visibility gates, applied to the future's resolution.
func (c *core) stateGated(desc *StateDescriptor) {
	c.enqueue(player.NewPredicate(nil,
		player.WithTarget(c.target()),
		player.WithAvailability(desc.Availability),
		player.WithVisibility(desc.Visibility),
		player.WithTimeout(c.timeout),
	))
}

// statePolled re-runs the descriptor predicate on every drain tick. The
// element must resolve first unless the descriptor waives availability.
func (c *core) statePolled(desc *StateDescriptor, tag string, args []any) {
	c.enqueue(player.NewPredicate(func(probe *player.ReadyProbe) bool {
		el := probe.Target()
		if el == nil && desc.Availability != schemas.AnyAvailability {
			probe.SetWaiting("target", schemas.RequireAttached.String())
			return false
		}
		if desc.Is(c.stateCtx(args)) {
			return true
		}
		probe.SetWaiting("target", tag)
		return false
	},
		player.WithTarget(c.target()),
		player.WithTimeout(c.timeout),
	))
}

// stateArmed subscribes to the descriptor's events, checks once, and settles
// on the first debounced re-check that finds the predicate true. The playable
// plays as soon as it reaches the queue head; waiting happens inside, against
// the completion deadline, so a widget destroyed before its element rendered
// can still satisfy a lifecycle state.
func (c *core) stateArmed(desc *StateDescriptor, tag string, args []any) {
	expire := fmt.Sprintf("Timeout waiting for target (%s) to be %s", c.describe(), tag)
	sched := c.d.pl.Scheduler()
	pl := c.d.pl
	check := func() bool { return desc.Is(c.stateCtx(args)) }

	c.enqueue(player.NewCallback(func(done *player.Completion) {
		if check() {
			done.Done()
			return
		}

		var mu sync.Mutex
		var cancel func()
		cleanup := func() {
			mu.Lock()
			off := cancel
			cancel = nil
			mu.Unlock()
			if off != nil {
				off()
			}
		}
		recheck := func() {
			sched.Defer(stateDebounce, func() {
				if check() {
					cleanup()
					done.Done()
				}
			})
		}
		mu.Lock()
		cancel = desc.Arm(c.stateCtx(args), recheck)
		mu.Unlock()
		pl.Once(player.SignalEnd, func(player.Event) { cleanup() })

		// The state may have flipped between the first check and arming.
		if check() {
			cleanup()
			done.Done()
		}
	},
		player.WithTimeout(c.timeout),
		player.WithExpireMessage(expire),
	))
}
