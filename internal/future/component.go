package future

import (
	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

// Component is a future over one widget instance. It resolves through the
// host's component system, so lifecycle states can run before the widget has
// produced any DOM.
type Component struct {
	c *core
}

// Component builds a future over the first component matching query.
func (d *Driver) Component(query string, opts ...Option) *Component {
	return &Component{c: d.compQueryCore(classComponent, query, opts)}
}

// compQueryCore is the shared constructor for query-resolved component
// futures; the class picks the state table.
func (d *Driver) compQueryCore(class, query string, opts []Option) *core {
	return d.newCompCore(class, query, func() (schemas.Component, bool) {
		return d.host.FindComponent(query, nil, schemas.Down)
	}, opts)
}

// Resolved returns the component the future has resolved so far, or nil.
func (f *Component) Resolved() schemas.Component {
	return f.c.comp()
}

// Rendered holds the chain until the component has produced DOM.
func (f *Component) Rendered() *Component {
	f.c.state("rendered", "")
	return f
}

// Destroyed holds the chain until the component has been torn down. The wait
// arms on the destroy event, so it resolves even when no element remains to
// poll.
func (f *Component) Destroyed() *Component {
	f.c.state("destroyed", "")
	return f
}

// ViewReady holds the chain until the component reports its view ready.
func (f *Component) ViewReady() *Component {
	f.c.state("viewReady", "")
	return f
}

// Expanded holds the chain until the component is expanded.
func (f *Component) Expanded() *Component {
	f.c.state("expanded", "")
	return f
}

// Collapsed holds the chain until the component is collapsed.
func (f *Component) Collapsed() *Component {
	f.c.state("collapsed", "")
	return f
}

// Visible holds the chain until the component's element is visible.
func (f *Component) Visible() *Component {
	f.c.state("visible", "")
	return f
}

// Hidden holds the chain until the component's element is hidden.
func (f *Component) Hidden() *Component {
	f.c.state("hidden", "")
	return f
}

// Click enqueues a click on the component's element.
func (f *Component) Click(opts ...player.Option) *Component {
	f.c.event(schemas.Click, opts...)
	return f
}

// Tap enqueues a composite tap on the component's element.
func (f *Component) Tap(opts ...player.Option) *Component {
	f.c.event(schemas.Tap, opts...)
	return f
}

// SetProp enqueues a widget-library property write through the component's
// own API, firing whatever side effects the widget defines.
func (f *Component) SetProp(name string, value any) *Component {
	c := f.c
	c.callback(func() error {
		return c.setProp(name, value)
	})
	return f
}

// And enqueues inspection steps; callbacks receive the resolved component.
func (f *Component) And(steps ...AndStep) *Component {
	f.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Component) Wait(steps ...WaitStep) *Component {
	f.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the
// component's element matching selector.
func (f *Component) Down(selector string) *Element {
	return f.c.derive(selector, schemas.Down)
}

// Up returns an element future over the nearest ancestor of the component's
// element matching selector.
func (f *Component) Up(selector string) *Element {
	return f.c.derive(selector, schemas.Up)
}

// Child returns an element future over the first direct child of the
// component's element matching selector.
func (f *Component) Child(selector string) *Element {
	return f.c.derive(selector, schemas.DirectChild)
}

// Button is a component future with the pressable vocabulary.
type Button struct {
	c *core
}

// Button builds a future over the first button component matching query.
func (d *Driver) Button(query string, opts ...Option) *Button {
	return &Button{c: d.compQueryCore(classButton, query, opts)}
}

// Resolved returns the button component resolved so far, or nil.
func (f *Button) Resolved() schemas.Component {
	return f.c.comp()
}

// Click enqueues a click on the button's element.
func (f *Button) Click(opts ...player.Option) *Button {
	f.c.event(schemas.Click, opts...)
	return f
}

// Tap enqueues a composite tap on the button's element.
func (f *Button) Tap(opts ...player.Option) *Button {
	f.c.event(schemas.Tap, opts...)
	return f
}

// Pressed holds the chain until the button reports pressed.
func (f *Button) Pressed() *Button {
	f.c.state("pressed", "")
	return f
}

// Unpressed holds the chain until the button reports unpressed.
func (f *Button) Unpressed() *Button {
	f.c.state("unpressed", "")
	return f
}

// Visible holds the chain until the button's element is visible.
func (f *Button) Visible() *Button {
	f.c.state("visible", "")
	return f
}

// Hidden holds the chain until the button's element is hidden.
func (f *Button) Hidden() *Button {
	f.c.state("hidden", "")
	return f
}

// Destroyed holds the chain until the button has been torn down.
func (f *Button) Destroyed() *Button {
	f.c.state("destroyed", "")
	return f
}

// And enqueues inspection steps; callbacks receive the resolved component.
func (f *Button) And(steps ...AndStep) *Button {
	f.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Button) Wait(steps ...WaitStep) *Button {
	f.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the button's
// element matching selector.
func (f *Button) Down(selector string) *Element {
	return f.c.derive(selector, schemas.Down)
}
