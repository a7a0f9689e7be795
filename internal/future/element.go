package future

import (
	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

// Element is a future over one DOM element. Chained calls enqueue playables
// against the element the root playable resolves; nothing touches the page
// until the player drains.
type Element struct {
	c *core
}

// Element builds a future over the first element matching locator. The root
// playable waits for existence only; chained events apply their own
// visibility and animation gates.
func (d *Driver) Element(locator string, opts ...Option) *Element {
	return &Element{c: d.newCore(classElement, locator, player.Expr(locator), opts)}
}

// Wrap builds a future over an element that has already been resolved
// elsewhere, typically by another chain's inspection callback.
func (d *Driver) Wrap(el schemas.Element, opts ...Option) *Element {
	return &Element{c: d.newCore(classElement, el.Describe(), player.El(el), opts)}
}

// ElementFunc builds a future over whatever the resolver returns at poll
// time. A nil return holds the chain exactly like an unmatched locator.
func (d *Driver) ElementFunc(desc string, fn func() schemas.Element, opts ...Option) *Element {
	return &Element{c: d.newCore(classElement, desc, player.ElFunc(fn), opts)}
}

// element wraps an existing core in an element future; relational navigation
// and item futures use it to derive children.
func elementFrom(c *core) *Element {
	return &Element{c: c}
}

// Resolved returns the element the future has resolved so far, or nil while
// the root playable is still waiting. Meaningful inside And callbacks.
func (f *Element) Resolved() schemas.Element {
	return f.c.el()
}

// Click enqueues a click on the resolved element.
func (f *Element) Click(opts ...player.Option) *Element {
	f.c.event(schemas.Click, opts...)
	return f
}

// Tap enqueues a composite tap: pointerdown, pointerup, click, then a gesture
// settle wait, all landing on the element the first sub-event resolves.
func (f *Element) Tap(opts ...player.Option) *Element {
	f.c.event(schemas.Tap, opts...)
	return f
}

// DoubleClick enqueues a dblclick with a click count of two.
func (f *Element) DoubleClick(opts ...player.Option) *Element {
	f.c.event(schemas.DblClick, append([]player.Option{player.WithDetail(2)}, opts...)...)
	return f
}

// Type enqueues a composite type of text: one keydown/keyup pair per rune.
func (f *Element) Type(text string, opts ...player.Option) *Element {
	f.c.event(schemas.TypeText, append([]player.Option{player.WithText(text)}, opts...)...)
	return f
}

// Key enqueues a single keydown/keyup pair for one key identifier.
func (f *Element) Key(key string, opts ...player.Option) *Element {
	f.c.event(schemas.TypeText, append([]player.Option{player.WithKey(key)}, opts...)...)
	return f
}

// Focus enqueues a focus event.
func (f *Element) Focus(opts ...player.Option) *Element {
	f.c.event(schemas.Focus, opts...)
	return f
}

// Blur enqueues a blur event.
func (f *Element) Blur(opts ...player.Option) *Element {
	f.c.event(schemas.Blur, opts...)
	return f
}

// Visible holds the chain until the element is visible.
func (f *Element) Visible() *Element {
	f.c.state("visible", "")
	return f
}

// Hidden holds the chain until the element is hidden.
func (f *Element) Hidden() *Element {
	f.c.state("hidden", "")
	return f
}

// Removed holds the chain until the element has left the document.
func (f *Element) Removed() *Element {
	f.c.state("removed", "")
	return f
}

// Text holds the chain until the element's text equals want.
func (f *Element) Text(want string) *Element {
	f.c.state("text", "", want)
	return f
}

// TextLike holds the chain until the element's text contains want.
func (f *Element) TextLike(want string) *Element {
	f.c.state("textLike", "", want)
	return f
}

// HasCls holds the chain until the element carries the class.
func (f *Element) HasCls(name string) *Element {
	f.c.state("hasCls", "", name)
	return f
}

// And enqueues inspection steps built with Inspect, InspectAsync and
// StepTimeout. Synchronous inspections receive the resolved element;
// asynchronous ones also receive the completion they must settle.
func (f *Element) And(steps ...AndStep) *Element {
	f.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates built with Pause, Label and
// Until.
func (f *Element) Wait(steps ...WaitStep) *Element {
	f.c.wait(steps)
	return f
}

// Down returns a future over the first descendant matching selector.
func (f *Element) Down(selector string) *Element {
	return f.c.derive(selector, schemas.Down)
}

// Up returns a future over the nearest ancestor matching selector.
func (f *Element) Up(selector string) *Element {
	return f.c.derive(selector, schemas.Up)
}

// Child returns a future over the first direct child matching selector.
func (f *Element) Child(selector string) *Element {
	return f.c.derive(selector, schemas.DirectChild)
}

// Component returns a future over the component owning this element, resolved
// through the host's component system once the element exists.
func (f *Element) Component(opts ...Option) *Component {
	d := f.c.d
	c := f.c
	return &Component{c: d.newCompCore(classComponent, "component of "+c.describe(), func() (schemas.Component, bool) {
		el := c.el()
		if el == nil {
			return nil, false
		}
		return d.host.ComponentFor(el)
	}, opts)}
}
