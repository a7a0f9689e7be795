package future

import (
	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

// Field is a future over one form field component: text inputs, checkboxes,
// toggles.
type Field struct {
	c *core
}

// Field builds a future over the first field component matching query.
func (d *Driver) Field(query string, opts ...Option) *Field {
	return &Field{c: d.compQueryCore(classField, query, opts)}
}

// Resolved returns the field component resolved so far, or nil.
func (f *Field) Resolved() schemas.Component {
	return f.c.comp()
}

// SetValue enqueues a value write through the widget API, firing the field's
// change events rather than synthesizing keystrokes.
func (f *Field) SetValue(value any) *Field {
	c := f.c
	c.callback(func() error {
		return c.setProp("value", value)
	})
	return f
}

// Type enqueues a composite type of text into the field's element.
func (f *Field) Type(text string, opts ...player.Option) *Field {
	f.c.event(schemas.TypeText, append([]player.Option{player.WithText(text)}, opts...)...)
	return f
}

// Key enqueues a single keydown/keyup pair on the field's element.
func (f *Field) Key(key string, opts ...player.Option) *Field {
	f.c.event(schemas.TypeText, append([]player.Option{player.WithKey(key)}, opts...)...)
	return f
}

// Click enqueues a click on the field's element.
func (f *Field) Click(opts ...player.Option) *Field {
	f.c.event(schemas.Click, opts...)
	return f
}

// Focus enqueues a focus event on the field's element.
func (f *Field) Focus(opts ...player.Option) *Field {
	f.c.event(schemas.Focus, opts...)
	return f
}

// Blur enqueues a blur event on the field's element.
func (f *Field) Blur(opts ...player.Option) *Field {
	f.c.event(schemas.Blur, opts...)
	return f
}

// Value holds the chain until the field's value equals want.
func (f *Field) Value(want any) *Field {
	f.c.state("value", "", want)
	return f
}

// ValueLike holds the chain until the field's value, rendered as a string,
// contains want.
func (f *Field) ValueLike(want string) *Field {
	f.c.state("valueLike", "", want)
	return f
}

// Checked holds the chain until the field reports checked.
func (f *Field) Checked() *Field {
	f.c.state("checked", "")
	return f
}

// Unchecked holds the chain until the field reports unchecked.
func (f *Field) Unchecked() *Field {
	f.c.state("unchecked", "")
	return f
}

// Visible holds the chain until the field's element is visible.
func (f *Field) Visible() *Field {
	f.c.state("visible", "")
	return f
}

// Hidden holds the chain until the field's element is hidden.
func (f *Field) Hidden() *Field {
	f.c.state("hidden", "")
	return f
}

// And enqueues inspection steps; callbacks receive the resolved component.
func (f *Field) And(steps ...AndStep) *Field {
	f.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Field) Wait(steps ...WaitStep) *Field {
	f.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the field's
// element matching selector, typically its input element.
func (f *Field) Down(selector string) *Element {
	return f.c.derive(selector, schemas.Down)
}
