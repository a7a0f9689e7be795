package cdphost

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
)

// rect is the wire shape of clickPointScript's return value.
type rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Inject translates one primitive event into CDP input traffic. Pointer
// events dispatch at the target's viewport rect, key events go through the
// input domain with kb encoding, focus and value events run as page script.
func (h *Host) Inject(ev *schemas.EventRecord, target, related schemas.Element) error {
	if ev == nil {
		return errors.New("inject: nil event")
	}
	if ev.Type.Composite() {
		return fmt.Errorf("inject: composite event %q reached the injector", ev.Type)
	}

	ctx, cancel := h.opCtx()
	defer cancel()

	h.log.Debug("injecting event",
		zap.String("type", string(ev.Type)),
		zap.String("target", describe(target)))

	switch ev.Type {
	case schemas.PointerDown, schemas.MouseDown, schemas.TouchStart:
		return h.mouse(ctx, ev, target, input.MousePressed)
	case schemas.PointerUp, schemas.MouseUp, schemas.TouchEnd:
		return h.mouse(ctx, ev, target, input.MouseReleased)
	case schemas.PointerMove, schemas.MouseMove:
		return h.mouse(ctx, ev, target, input.MouseMoved)
	case schemas.Click, schemas.DblClick, schemas.ContextMenu:
		return h.click(ctx, ev, target)
	case schemas.KeyDown, schemas.KeyUp:
		return h.key(ctx, ev, target)
	case schemas.Focus:
		return h.runNodeScript(ctx, target, focusScript, "focus")
	case schemas.Blur:
		return h.runNodeScript(ctx, target, blurScript, "blur")
	case schemas.Input, schemas.Change:
		handle, err := targetHandle(target)
		if err != nil {
			return err
		}
		return h.fire(ctx, handle, string(ev.Type))
	default:
		return fmt.Errorf("inject: no CDP translation for %q", ev.Type)
	}
}

// point resolves the viewport coordinates for a pointer event: the target's
// rect offset by the record's relative position, or its center when the
// record carries none. Without a target the record's coordinates are taken
// as absolute.
func (h *Host) point(ctx context.Context, ev *schemas.EventRecord, target schemas.Element) (float64, float64, error) {
	if target == nil {
		return ev.X, ev.Y, nil
	}
	handle, err := targetHandle(target)
	if err != nil {
		return 0, 0, err
	}

	var r *rect
	if err := h.exec.Eval(ctx, clickPointScript(handle), &r); err != nil {
		return 0, 0, fmt.Errorf("inject: measure %s: %w", describe(target), err)
	}
	if r == nil {
		return 0, 0, fmt.Errorf("inject: target %s is detached", describe(target))
	}
	if ev.X == 0 && ev.Y == 0 {
		return r.Left + r.Width/2, r.Top + r.Height/2, nil
	}
	return r.Left + ev.X, r.Top + ev.Y, nil
}

func (h *Host) mouse(ctx context.Context, ev *schemas.EventRecord, target schemas.Element, mtype input.MouseType) error {
	x, y, err := h.point(ctx, ev, target)
	if err != nil {
		return err
	}
	p := input.DispatchMouseEvent(mtype, x, y).WithModifiers(modifierMask(ev))
	if mtype != input.MouseMoved {
		p = p.WithButton(mouseButton(ev.Button)).WithClickCount(clickCount(ev))
	}
	return h.exec.Run(ctx, p)
}

// click plays a full press/release pair; Chrome synthesizes the click (and
// dblclick at count 2) itself.
func (h *Host) click(ctx context.Context, ev *schemas.EventRecord, target schemas.Element) error {
	x, y, err := h.point(ctx, ev, target)
	if err != nil {
		return err
	}

	btn := mouseButton(ev.Button)
	if ev.Type == schemas.ContextMenu {
		btn = input.Right
	}
	count := clickCount(ev)
	if ev.Type == schemas.DblClick {
		count = 2
	}
	mask := modifierMask(ev)

	press := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(btn).
		WithClickCount(count).
		WithModifiers(mask)
	release := input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(btn).
		WithClickCount(count).
		WithModifiers(mask)
	return h.exec.Run(ctx, press, release)
}

func (h *Host) key(ctx context.Context, ev *schemas.EventRecord, target schemas.Element) error {
	if ev.Type == schemas.KeyDown {
		if h.typing != nil {
			if err := h.typing.Wait(ctx); err != nil {
				return err
			}
		}
		if ev.Caret != nil {
			handle, err := targetHandle(target)
			if err != nil {
				return err
			}
			if err := h.exec.Eval(ctx, caretScript(handle, *ev.Caret), nil); err != nil {
				return fmt.Errorf("inject: caret: %w", err)
			}
		}
	}

	params := keyParams(ev)
	actions := make([]chromedp.Action, len(params))
	for i, p := range params {
		actions[i] = p
	}
	return h.exec.Run(ctx, actions...)
}

// keyParams encodes one key event. Single runes and the common control keys
// go through kb for proper code/text fields; kb emits a char event after
// keyDown for printable runes, which is what actually inserts text. Anything
// else is sent by key name alone, which is enough for keydown handlers.
func keyParams(ev *schemas.EventRecord) []*input.DispatchKeyEventParams {
	if r, ok := keyRune(ev.Key); ok {
		seq := kb.Encode(r)
		if ev.Type == schemas.KeyDown {
			seq = seq[:len(seq)-1]
		} else {
			seq = seq[len(seq)-1:]
		}
		for _, p := range seq {
			p.Modifiers |= modifierMask(ev)
		}
		return seq
	}

	t := input.KeyDown
	if ev.Type == schemas.KeyUp {
		t = input.KeyUp
	}
	p := input.DispatchKeyEvent(t).
		WithKey(ev.Key).
		WithModifiers(modifierMask(ev))
	return []*input.DispatchKeyEventParams{p}
}

func keyRune(key string) (rune, bool) {
	switch key {
	case "Enter":
		return '\r', true
	case "Tab":
		return '\t', true
	case "Backspace":
		return '\b', true
	}
	rs := []rune(key)
	if len(rs) == 1 {
		return rs[0], true
	}
	return 0, false
}

func (h *Host) runNodeScript(ctx context.Context, target schemas.Element, script func(int64) string, what string) error {
	handle, err := targetHandle(target)
	if err != nil {
		return err
	}
	var ok bool
	if err := h.exec.Eval(ctx, script(handle), &ok); err != nil {
		return fmt.Errorf("inject: %s: %w", what, err)
	}
	if !ok {
		return fmt.Errorf("inject: %s target %s is gone", what, describe(target))
	}
	return nil
}

func (h *Host) fire(ctx context.Context, handle int64, eventType string) error {
	var ok bool
	if err := h.exec.Eval(ctx, fireScript(handle, eventType), &ok); err != nil {
		return fmt.Errorf("inject: fire %s: %w", eventType, err)
	}
	if !ok {
		return fmt.Errorf("inject: fire %s: target is gone", eventType)
	}
	return nil
}

func targetHandle(target schemas.Element) (int64, error) {
	if target == nil {
		return 0, errors.New("inject: nil target")
	}
	handle, ok := target.Node().(int64)
	if !ok || handle == 0 {
		return 0, errors.New("inject: target is not a node of this host")
	}
	return handle, nil
}

func mouseButton(code int) input.MouseButton {
	switch code {
	case 1:
		return input.Middle
	case 2:
		return input.Right
	default:
		return input.Left
	}
}

func clickCount(ev *schemas.EventRecord) int64 {
	if ev.Detail > 0 {
		return int64(ev.Detail)
	}
	return 1
}

func modifierMask(ev *schemas.EventRecord) input.Modifier {
	var m input.Modifier
	if ev.AltKey {
		m |= input.ModifierAlt
	}
	if ev.CtrlKey {
		m |= input.ModifierCtrl
	}
	if ev.MetaKey {
		m |= input.ModifierMeta
	}
	if ev.ShiftKey {
		m |= input.ModifierShift
	}
	return m
}

func describe(el schemas.Element) string {
	if el == nil {
		return "<none>"
	}
	return el.Describe()
}
