package cdphost

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sencha/orion-core/api/schemas"
)

// targetRect is the canned geometry pointer tests dispatch against: a 60x20
// box at (100,40), center (130,50).
const targetRect = `{"left":100,"top":40,"width":60,"height":20}`

func mouseEvents(t *testing.T, fe *fakeExec) []*input.DispatchMouseEventParams {
	t.Helper()
	actions := fe.recorded()
	out := make([]*input.DispatchMouseEventParams, 0, len(actions))
	for _, a := range actions {
		p, ok := a.(*input.DispatchMouseEventParams)
		require.True(t, ok, "recorded action is %T, not mouse params", a)
		out = append(out, p)
	}
	return out
}

func keyEvents(t *testing.T, fe *fakeExec) []*input.DispatchKeyEventParams {
	t.Helper()
	actions := fe.recorded()
	out := make([]*input.DispatchKeyEventParams, 0, len(actions))
	for _, a := range actions {
		p, ok := a.(*input.DispatchKeyEventParams)
		require.True(t, ok, "recorded action is %T, not key params", a)
		out = append(out, p)
	}
	return out
}

func TestInjectRejectsNilAndComposite(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	err := h.Inject(nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil event")

	for _, typ := range []schemas.EventType{schemas.Tap, schemas.TypeText} {
		err := h.Inject(&schemas.EventRecord{Type: typ}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "composite")
	}
	assert.Empty(t, fe.recorded())
}

func TestInjectClickPlaysPressReleasePair(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("scrollIntoView", targetRect)
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.Click, Detail: 1, AltKey: true, MetaKey: true}
	require.NoError(t, h.Inject(ev, h.Wrap(int64(7)), nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 2)
	assert.Equal(t, input.MousePressed, ms[0].Type)
	assert.Equal(t, input.MouseReleased, ms[1].Type)
	for _, m := range ms {
		assert.Equal(t, 130.0, m.X) // rect center: the record carries no offset
		assert.Equal(t, 50.0, m.Y)
		assert.Equal(t, input.Left, m.Button)
		assert.EqualValues(t, 1, m.ClickCount)
		assert.Equal(t, input.ModifierAlt|input.ModifierMeta, m.Modifiers)
	}
}

func TestInjectPointerOffsetWithinTarget(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("scrollIntoView", targetRect)
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.MouseDown, X: 5, Y: 6}
	require.NoError(t, h.Inject(ev, h.Wrap(int64(7)), nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 1)
	assert.Equal(t, input.MousePressed, ms[0].Type)
	assert.Equal(t, 105.0, ms[0].X)
	assert.Equal(t, 46.0, ms[0].Y)
	assert.Equal(t, input.Left, ms[0].Button)
}

func TestInjectMoveCarriesNoButton(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("scrollIntoView", targetRect)
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.PointerMove, X: 1, Y: 2}
	require.NoError(t, h.Inject(ev, h.Wrap(int64(7)), nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 1)
	assert.Equal(t, input.MouseMoved, ms[0].Type)
	assert.Empty(t, ms[0].Button)
	assert.Zero(t, ms[0].ClickCount)
}

func TestInjectWithoutTargetUsesAbsoluteCoordinates(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.PointerUp, X: 320, Y: 200}
	require.NoError(t, h.Inject(ev, nil, nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 1)
	assert.Equal(t, input.MouseReleased, ms[0].Type)
	assert.Equal(t, 320.0, ms[0].X)
	assert.Equal(t, 200.0, ms[0].Y)
	assert.Empty(t, fe.evaled(), "no geometry round trip without a target")
}

func TestInjectContextMenuForcesRightButton(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("scrollIntoView", targetRect)
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.ContextMenu}
	require.NoError(t, h.Inject(ev, h.Wrap(int64(7)), nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 2)
	for _, m := range ms {
		assert.Equal(t, input.Right, m.Button)
	}
}

func TestInjectDblClickForcesCountTwo(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("scrollIntoView", targetRect)
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.DblClick}
	require.NoError(t, h.Inject(ev, h.Wrap(int64(7)), nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 2)
	for _, m := range ms {
		assert.EqualValues(t, 2, m.ClickCount)
	}
}

func TestInjectMouseButtonCodes(t *testing.T) {
	cases := []struct {
		name string
		code int
		want input.MouseButton
	}{
		{"left", 0, input.Left},
		{"middle", 1, input.Middle},
		{"right", 2, input.Right},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fe := &fakeExec{}
			fe.stub("scrollIntoView", targetRect)
			h := newHost(t, fe)

			ev := &schemas.EventRecord{Type: schemas.MouseDown, X: 1, Y: 1, Button: tc.code}
			require.NoError(t, h.Inject(ev, h.Wrap(int64(7)), nil))

			ms := mouseEvents(t, fe)
			require.Len(t, ms, 1)
			assert.Equal(t, tc.want, ms[0].Button)
		})
	}
}

func TestInjectDetachedTargetFails(t *testing.T) {
	fe := &fakeExec{} // geometry evaluates to null
	h := newHost(t, fe)

	err := h.Inject(&schemas.EventRecord{Type: schemas.Click}, h.Wrap(int64(7)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is detached")
	assert.Empty(t, fe.recorded())
}

func TestInjectTouchPlaysAsMouse(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("scrollIntoView", targetRect)
	h := newHost(t, fe)

	require.NoError(t, h.Inject(&schemas.EventRecord{Type: schemas.TouchStart}, h.Wrap(int64(7)), nil))
	require.NoError(t, h.Inject(&schemas.EventRecord{Type: schemas.TouchEnd}, h.Wrap(int64(7)), nil))

	ms := mouseEvents(t, fe)
	require.Len(t, ms, 2)
	assert.Equal(t, input.MousePressed, ms[0].Type)
	assert.Equal(t, input.MouseReleased, ms[1].Type)
}

func TestInjectKeyDownTypesRune(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "a"}
	require.NoError(t, h.Inject(ev, nil, nil))

	ks := keyEvents(t, fe)
	require.NotEmpty(t, ks)
	assert.Equal(t, input.KeyDown, ks[0].Type)
	assert.Equal(t, "a", ks[0].Key)

	var text string
	for _, k := range ks {
		text += k.Text
	}
	assert.Equal(t, "a", text, "keydown must carry the char event that inserts text")
}

func TestInjectKeyUpSendsSingleRelease(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.KeyUp, Key: "a"}
	require.NoError(t, h.Inject(ev, nil, nil))

	ks := keyEvents(t, fe)
	require.Len(t, ks, 1)
	assert.Equal(t, input.KeyUp, ks[0].Type)
	assert.Equal(t, "a", ks[0].Key)
	assert.Empty(t, ks[0].Text)
}

func TestInjectNamedKeyFallsBackToKeyName(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "ArrowDown"}
	require.NoError(t, h.Inject(ev, nil, nil))

	ks := keyEvents(t, fe)
	require.Len(t, ks, 1)
	assert.Equal(t, input.KeyDown, ks[0].Type)
	assert.Equal(t, "ArrowDown", ks[0].Key)
}

func TestInjectEnterResolvesThroughEncoder(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "Enter"}
	require.NoError(t, h.Inject(ev, nil, nil))

	ks := keyEvents(t, fe)
	require.NotEmpty(t, ks)
	assert.Equal(t, input.KeyDown, ks[0].Type)
	assert.Equal(t, "Enter", ks[0].Key)
}

func TestInjectKeyModifiersAreORed(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "a", CtrlKey: true, ShiftKey: true}
	require.NoError(t, h.Inject(ev, nil, nil))

	ks := keyEvents(t, fe)
	require.NotEmpty(t, ks)
	for _, k := range ks {
		assert.Equal(t, input.ModifierCtrl|input.ModifierShift, k.Modifiers)
	}
}

func TestInjectKeyPacingWaits(t *testing.T) {
	fe := &fakeExec{}
	h := New(fe, zaptest.NewLogger(t), Options{TypingInterval: time.Nanosecond})

	for i := 0; i < 3; i++ {
		ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "a"}
		require.NoError(t, h.Inject(ev, nil, nil))
	}
	assert.Len(t, keyEvents(t, fe), 6) // keydown plus char event per press
}

func TestInjectCaretPositionsBeforeKeydown(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	caret := 3
	ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "a", Caret: &caret}
	require.NoError(t, h.Inject(ev, h.Wrap(int64(5)), nil))

	scripts := fe.evaled()
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], "setSelectionRange(3, 3)")
	assert.NotEmpty(t, keyEvents(t, fe))
}

func TestInjectCaretNeedsTarget(t *testing.T) {
	fe := &fakeExec{}
	h := newHost(t, fe)

	caret := 0
	ev := &schemas.EventRecord{Type: schemas.KeyDown, Key: "a", Caret: &caret}
	err := h.Inject(ev, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil target")
}

func TestInjectFocusAndBlurRunPageScript(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("focus()", "true")
	fe.stub("blur()", "true")
	h := newHost(t, fe)

	el := h.Wrap(int64(7))
	require.NoError(t, h.Inject(&schemas.EventRecord{Type: schemas.Focus}, el, nil))
	require.NoError(t, h.Inject(&schemas.EventRecord{Type: schemas.Blur}, el, nil))

	scripts := fe.evaled()
	require.Len(t, scripts, 2)
	assert.Contains(t, scripts[0], ".focus()")
	assert.Contains(t, scripts[1], ".blur()")
}

func TestInjectFocusGoneTargetFails(t *testing.T) {
	fe := &fakeExec{} // focus script evaluates to null
	h := newHost(t, fe)

	err := h.Inject(&schemas.EventRecord{Type: schemas.Focus}, h.Wrap(int64(99)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is gone")
}

func TestInjectInputAndChangeFireDomEvents(t *testing.T) {
	fe := &fakeExec{}
	fe.stub("dispatchEvent", "true")
	h := newHost(t, fe)

	el := h.Wrap(int64(7))
	require.NoError(t, h.Inject(&schemas.EventRecord{Type: schemas.Input}, el, nil))
	require.NoError(t, h.Inject(&schemas.EventRecord{Type: schemas.Change}, el, nil))

	scripts := fe.evaled()
	require.Len(t, scripts, 2)
	assert.Contains(t, scripts[0], `new Event("input"`)
	assert.Contains(t, scripts[1], `new Event("change"`)
}

func TestInjectValueEventsNeedTarget(t *testing.T) {
	h := newHost(t, &fakeExec{})

	err := h.Inject(&schemas.EventRecord{Type: schemas.Input}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil target")
}

func TestInjectUnknownTypeErrors(t *testing.T) {
	h := newHost(t, &fakeExec{})

	err := h.Inject(&schemas.EventRecord{Type: schemas.EventType("wheel")}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CDP translation")
}
