package future

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("modern")
	require.NoError(t, err)
	assert.Equal(t, VariantModern, v)

	_, err = ParseVariant("retro")
	require.Error(t, err)
	assert.Equal(t, `unknown toolkit variant "retro"`, err.Error())
}

func TestElementChainPlaysInOrder(t *testing.T) {
	r := newRig(t)
	r.host.put("#save", newFakeNode("save"))

	r.d.Element("#save").Click().Focus()
	r.drain(t)

	assert.Equal(t, []schemas.EventType{schemas.Click, schemas.Focus}, r.host.injectedTypes())
	assert.Empty(t, r.errs)
}

func TestElementRootWaitsForExistence(t *testing.T) {
	r := newRig(t)

	r.d.Element("#late").Click()
	r.clk.Advance(100 * time.Millisecond)
	assert.Empty(t, r.host.injections(), "nothing plays before the locator matches")

	r.host.put("#late", newFakeNode("late"))
	r.drain(t)

	require.Len(t, r.host.injections(), 1)
	assert.Equal(t, "#late", r.host.injections()[0].target)
	assert.Empty(t, r.errs)
}

func TestVisibleStateTimeoutNamesTarget(t *testing.T) {
	r := newRig(t)
	box := newFakeNode("box")
	box.visible = false
	r.host.put("#box", box)

	r.d.Element("#box").Visible()
	r.drain(t)

	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), "#box")
	assert.Contains(t, r.errs[0].Error(), "to be visible")
}

func TestTextStatePollsUntilMatch(t *testing.T) {
	r := newRig(t)
	node := newFakeNode("status")
	r.host.put("#status", node)

	var after bool
	r.d.Element("#status").Text("Saved").And(Inspect(func(any) { after = true }))

	r.clk.Advance(200 * time.Millisecond)
	assert.False(t, after, "text predicate still failing")

	node.text = "Saved"
	r.drain(t)

	assert.True(t, after)
	assert.Empty(t, r.errs)
}

func TestAndInspectReceivesResolvedElement(t *testing.T) {
	r := newRig(t)
	node := newFakeNode("a")
	r.host.put("#a", node)

	var got any
	f := r.d.Element("#a").And(Inspect(func(v any) { got = v }))
	r.drain(t)

	el, ok := got.(schemas.Element)
	require.True(t, ok, "inspection value is the resolved element, got %T", got)
	assert.Same(t, node, el.Node().(*fakeNode))
	assert.Same(t, el, f.Resolved())
	assert.Empty(t, r.errs)
}

func TestInspectAsyncSettlesCompletion(t *testing.T) {
	r := newRig(t)
	r.host.put("#a", newFakeNode("a"))

	sched := r.pl.Scheduler()
	r.d.Element("#a").And(InspectAsync(func(v any, done *player.Completion) {
		sched.Defer(50*time.Millisecond, done.Done)
	})).Click()

	r.clk.Advance(40 * time.Millisecond)
	assert.Empty(t, r.host.injections(), "chain held until the completion settles")

	r.drain(t)
	assert.Equal(t, []schemas.EventType{schemas.Click}, r.host.injectedTypes())
	assert.Empty(t, r.errs)
}

func TestInspectAsyncTimeout(t *testing.T) {
	r := newRig(t)
	r.host.put("#a", newFakeNode("a"))

	r.d.Element("#a").And(InspectAsync(func(v any, done *player.Completion) {}))
	r.drain(t)

	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), "inspection of #a did not signal completion")
}

func TestStepTimeoutScopesFollowingSteps(t *testing.T) {
	r := newRig(t)
	r.host.put("#a", newFakeNode("a"))

	r.d.Element("#a").And(
		StepTimeout(100*time.Millisecond),
		InspectAsync(func(v any, done *player.Completion) {}),
	)

	r.clk.Advance(90 * time.Millisecond)
	assert.Empty(t, r.errs)
	r.clk.Advance(20 * time.Millisecond)
	require.Len(t, r.errs, 1, "the shortened budget applies, not the chain default")
	r.drain(t)
}

func TestWaitPauseAndUntil(t *testing.T) {
	r := newRig(t)
	r.host.put("#a", newFakeNode("a"))

	var ready bool
	r.d.Element("#a").Wait(
		Pause(200*time.Millisecond),
		Label("store warmup"),
		Until(func() bool { return ready }),
	).Click()

	r.clk.Advance(150 * time.Millisecond)
	ready = true
	r.clk.Advance(40 * time.Millisecond)
	assert.Empty(t, r.host.injections(), "pause still running")

	r.drain(t)
	assert.Equal(t, []schemas.EventType{schemas.Click}, r.host.injectedTypes())
	assert.Empty(t, r.errs)
}

func TestWaitUntilTimeoutUsesLabel(t *testing.T) {
	r := newRig(t)
	r.host.put("#a", newFakeNode("a"))

	r.d.Element("#a").Wait(Label("store warmup"), Until(func() bool { return false }))
	r.drain(t)

	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), "store warmup")
}

func TestNestedChainsPreserveSourceOrder(t *testing.T) {
	r := newRig(t)
	r.host.put("#outer", newFakeNode("outer"))
	r.host.put("#inner", newFakeNode("inner"))
	r.host.put("#after", newFakeNode("after"))

	outer := r.d.Element("#outer").And(Inspect(func(any) {
		r.d.Element("#inner").Click()
	}))
	outer.Click() // targets #outer, enqueued before the inspection runs

	r.d.Element("#after").Click()
	r.drain(t)

	var targets []string
	for _, in := range r.host.injections() {
		targets = append(targets, in.target)
	}
	assert.Equal(t, []string{"#inner", "#outer", "#after"}, targets,
		"chains born inside a callback play before previously queued work")
	assert.Empty(t, r.errs)
}

func TestDeriveKeepsOneWrapperAcrossRerender(t *testing.T) {
	r := newRig(t)
	parent := newFakeNode("panel")
	rowOne := newFakeNode("row1")
	r.host.put("#panel", parent)
	r.host.putChild(parent, ".row", rowOne)

	var first, second schemas.Element
	row := r.d.Element("#panel").Down(".row")
	row.And(Inspect(func(v any) {
		first = v.(schemas.Element)
		// The view re-renders between playables.
		r.host.putChild(parent, ".row", newFakeNode("row2"))
	}))
	row.Click().And(Inspect(func(v any) { second = v.(schemas.Element) }))
	r.drain(t)

	require.NotNil(t, first)
	assert.Same(t, first, second, "relational futures keep one wrapper")
	assert.Equal(t, "#row2", second.Describe(), "the wrapper rebound to the fresh node")

	ins := r.host.injections()
	require.Len(t, ins, 1)
	assert.Equal(t, "#row2", ins[0].target)
	assert.Empty(t, r.errs)
}

func TestDeriveUpAndChildDirections(t *testing.T) {
	r := newRig(t)
	node := newFakeNode("cellX")
	wrapper := newFakeNode("wrapper")
	icon := newFakeNode("icon")
	r.host.put("#cell", node)
	r.host.putChild(node, ".x-panel", wrapper)
	r.host.putChild(node, "> .icon", icon)

	r.d.Element("#cell").Up(".x-panel").Click()
	r.d.Element("#cell").Child("> .icon").Focus()
	r.drain(t)

	ins := r.host.injections()
	require.Len(t, ins, 2)
	assert.Equal(t, "#wrapper", ins[0].target)
	assert.Equal(t, "#icon", ins[1].target)
	assert.Empty(t, r.errs)
}

func TestWithinOverridesChainTimeout(t *testing.T) {
	r := newRig(t)

	r.d.Element("#missing", Within(100*time.Millisecond)).Click()
	r.clk.Advance(90 * time.Millisecond)
	assert.Empty(t, r.errs)
	r.clk.Advance(20 * time.Millisecond)
	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), "#missing")
	r.drain(t)
}

func TestUnknownStateFailsRun(t *testing.T) {
	r := newRig(t)
	r.host.put("#a", newFakeNode("a"))

	f := r.d.Element("#a")
	f.c.state("no-such-state", "")
	r.drain(t)

	require.Len(t, r.errs, 1)
	assert.Contains(t, r.errs[0].Error(), `no state "no-such-state"`)
}
