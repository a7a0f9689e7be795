package future

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sencha/orion-core/api/schemas"
)

func TestComponentResolvesBeforeRender(t *testing.T) {
	r := newRig(t)
	comp := newFakeComp("panel-1")
	comp.rendered = false
	r.host.putComp("mainpanel", comp)

	var seen schemas.Component
	r.d.Component("mainpanel").Rendered().And(Inspect(func(v any) {
		seen = v.(schemas.Component)
	}))

	r.clk.Advance(200 * time.Millisecond)
	assert.Nil(t, seen, "rendered wait still holding")

	node := newFakeNode("panel-1")
	comp.mu.Lock()
	comp.rendered = true
	comp.el = r.host.Wrap(node)
	comp.mu.Unlock()
	r.drain(t)

	assert.Same(t, comp, seen.(*fakeComp))
	assert.Empty(t, r.errs)
}

func TestComponentQueryTimeout(t *testing.T) {
	r := newRig(t)

	r.d.Component("missingpanel").Rendered()
	r.drain(t)

	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), "component (missingpanel)")
	assert.Contains(t, r.errs[0].Error(), "to be present")
}

func TestDestroyedArmsOnWidgetEvent(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("temppanel", "tmp")

	var reached bool
	r.d.Component("temppanel").Destroyed().And(Inspect(func(any) { reached = true }))

	r.clk.Advance(300 * time.Millisecond)
	assert.False(t, reached)
	assert.Equal(t, 1, comp.listenerCount("destroy"), "wait armed on the destroy event")

	comp.destroy()
	r.clk.Advance(stateDebounce)
	r.drain(t)

	assert.True(t, reached)
	assert.Equal(t, 0, comp.listenerCount("destroy"), "armed wait unsubscribes on settle")
	assert.Empty(t, r.errs)
}

func TestArmedStateAlreadyTrueSettlesImmediately(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("gonepanel", "gone")
	comp.mu.Lock()
	comp.destroyed = true
	comp.mu.Unlock()

	r.d.Component("gonepanel").Destroyed()
	r.drain(t)

	assert.Equal(t, 0, comp.listenerCount("destroy"), "no subscription when the state already holds")
	assert.Empty(t, r.errs)
}

func TestArmedStateTimeoutMessage(t *testing.T) {
	r := newRig(t)
	r.mountComp("stablepanel", "stable")

	r.d.Component("stablepanel").Destroyed()
	r.drain(t)

	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), "Timeout waiting for target (stablepanel) to be destroyed")
}

func TestSetPropWritesThroughWidgetAPI(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("editpanel", "edit")

	r.d.Component("editpanel").SetProp("title", "Report")
	r.drain(t)

	assert.Equal(t, "Report", comp.Get("title"))
	assert.Equal(t, []string{"title=Report"}, comp.setLog)
	assert.Empty(t, r.host.injections(), "property writes inject no events")
	assert.Empty(t, r.errs)
}

func TestExpandedCollapsedClassic(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("sidepanel", "side")
	comp.setQuiet("collapsed", true)

	r.d.Component("sidepanel").Collapsed()
	r.d.Component("sidepanel").Expanded()

	r.clk.Advance(300 * time.Millisecond)
	assert.Empty(t, r.errs, "collapsed settled; expanded still waiting")

	comp.Set("collapsed", false)
	comp.fire("expand")
	r.drain(t)
	assert.Empty(t, r.errs)
}

func TestModernVariantReadsElementClasses(t *testing.T) {
	r := newRigVariant(t, VariantModern)
	comp, node := r.mountComp("menubtn", "menu")

	r.d.Button("menubtn").Pressed()

	r.clk.Advance(200 * time.Millisecond)
	assert.Empty(t, r.errs)

	node.classes["x-pressed"] = true
	comp.fire("toggle")
	r.drain(t)
	assert.Empty(t, r.errs, "modern pressed reads the x-pressed class")
}

func TestClassicButtonPressedProperty(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("okbtn", "ok")
	comp.setQuiet("pressed", true)

	r.d.Button("okbtn").Pressed().Click()
	r.drain(t)

	assert.Equal(t, []schemas.EventType{schemas.Click}, r.host.injectedTypes())
	assert.Empty(t, r.errs)
}

func TestFieldSetValueVersusType(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("namefield", "name")

	r.d.Field("namefield").SetValue("Ada").Value("Ada")
	r.drain(t)
	require.Empty(t, r.errs)
	assert.Equal(t, "Ada", comp.Get("value"))
	assert.Empty(t, r.host.injections(), "SetValue bypasses the keyboard")

	r.d.Field("namefield").Type("!")
	r.drain(t)
	require.Empty(t, r.errs)
	assert.Equal(t, []schemas.EventType{schemas.KeyDown, schemas.KeyUp}, r.host.injectedTypes(),
		"Type synthesizes keystrokes")
}

func TestFieldValueStateArmsOnChange(t *testing.T) {
	r := newRig(t)
	comp, _ := r.mountComp("searchfield", "search")
	comp.setQuiet("value", "dra")

	r.d.Field("searchfield").Value("draft")

	r.clk.Advance(300 * time.Millisecond)
	require.Empty(t, r.errs)
	assert.Equal(t, 1, comp.listenerCount("change"))

	comp.Set("value", "draft") // fires change
	r.clk.Advance(stateDebounce)
	r.drain(t)

	assert.Empty(t, r.errs)
	assert.Equal(t, 0, comp.listenerCount("change"))
}

func TestCheckedClassicVersusModern(t *testing.T) {
	t.Run("classic reads checked", func(t *testing.T) {
		r := newRig(t)
		comp, _ := r.mountComp("agree", "agree")
		comp.setQuiet("checked", true)

		r.d.Field("agree").Checked()
		r.drain(t)
		assert.Empty(t, r.errs)
	})

	t.Run("modern folds checked into value", func(t *testing.T) {
		r := newRigVariant(t, VariantModern)
		comp, _ := r.mountComp("agree", "agree")
		comp.setQuiet("value", true)

		r.d.Field("agree").Checked()
		r.drain(t)
		assert.Empty(t, r.errs)
	})
}

func TestElementComponentBridge(t *testing.T) {
	r := newRig(t)
	node := newFakeNode("tb")
	r.host.put("#toolbar", node)
	comp := newFakeComp("toolbar-1").withEl(r.host.Wrap(node))
	r.host.own(node, comp)

	var seen schemas.Component
	r.d.Element("#toolbar").Component().And(Inspect(func(v any) {
		seen = v.(schemas.Component)
	}))
	r.drain(t)

	assert.Same(t, comp, seen.(*fakeComp))
	assert.Empty(t, r.errs)
}

func TestComponentDownDerivesFromWidgetElement(t *testing.T) {
	r := newRig(t)
	_, node := r.mountComp("formpanel", "form")
	submit := newFakeNode("submit")
	r.host.putChild(node, ".submit", submit)

	r.d.Component("formpanel").Down(".submit").Click()
	r.drain(t)

	ins := r.host.injections()
	require.Len(t, ins, 1)
	assert.Equal(t, "#submit", ins[0].target)
	assert.Empty(t, r.errs)
}
