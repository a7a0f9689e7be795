// Package cdphost binds the player's host surfaces to a live Chrome tab over
// the DevTools protocol. Finds run as in-page script against a node registry,
// input goes through the CDP input domain, and typing is paced with a rate
// limiter so bursts of key events do not outrun the page.
//
// The page has no component system the host could see, so the component
// source reports nothing; component futures are a sim-host capability.
package cdphost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sencha/orion-core/api/schemas"
)

// ErrAmbiguousLocator reports a strict find that matched more than one node.
var ErrAmbiguousLocator = errors.New("locator is ambiguous")

// Options tune the host's transport behavior.
type Options struct {
	// CallTimeout bounds each CDP round trip. Zero means 10s.
	CallTimeout time.Duration

	// TypingInterval is the minimum spacing between key event pairs. Zero
	// means 25ms; negative disables pacing.
	TypingInterval time.Duration
}

func (o *Options) fill() {
	if o.CallTimeout == 0 {
		o.CallTimeout = 10 * time.Second
	}
	if o.TypingInterval == 0 {
		o.TypingInterval = 25 * time.Millisecond
	}
}

// Host drives one browser tab.
type Host struct {
	exec   Executor
	log    *zap.Logger
	typing *rate.Limiter
	opts   Options
}

var _ schemas.Host = (*Host)(nil)

// New builds a host over an executor. Production callers wrap a chromedp tab
// context with NewExecutor; tests hand in a fake.
func New(exec Executor, log *zap.Logger, opts Options) *Host {
	opts.fill()
	var limiter *rate.Limiter
	if opts.TypingInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.TypingInterval), 1)
	}
	return &Host{
		exec:   exec,
		log:    log.Named("cdphost"),
		typing: limiter,
		opts:   opts,
	}
}

// opCtx bounds one CDP round trip.
func (h *Host) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.opts.CallTimeout)
}

// findResult is the wire shape of findScript's return value.
type findResult struct {
	Handle    int64  `json:"handle"`
	Desc      string `json:"desc"`
	Ambiguous int    `json:"ambiguous"`
	Err       string `json:"err"`
}

// Find resolves a locator in the page. The dialect matches the sim host:
// xpath by shape, css otherwise, leading ">" forcing direct-child scope.
func (h *Host) Find(expr string, strict bool, root schemas.Element, dir schemas.Direction) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty locator")
	}
	if rest, ok := cutChildPrefix(expr); ok {
		expr = rest
		dir = schemas.DirectChild
	}

	var rootHandle int64
	if root != nil {
		handle, ok := root.Node().(int64)
		if !ok || handle == 0 {
			return nil, fmt.Errorf("locator root is not a node of this host")
		}
		rootHandle = handle
	}

	ctx, cancel := h.opCtx()
	defer cancel()

	var res *findResult
	if err := h.exec.Eval(ctx, findScript(expr, strict, rootHandle, dir.String()), &res); err != nil {
		return nil, fmt.Errorf("locator %q: %w", expr, err)
	}
	switch {
	case res == nil:
		return nil, nil
	case res.Err != "":
		return nil, fmt.Errorf("locator %q: %s", expr, res.Err)
	case res.Ambiguous > 1:
		return nil, fmt.Errorf("%w: %q matched %d nodes", ErrAmbiguousLocator, expr, res.Ambiguous)
	}

	h.log.Debug("locator resolved",
		zap.String("expr", expr),
		zap.String("node", res.Desc),
		zap.Int64("handle", res.Handle))
	return res.Handle, nil
}

// Wrap returns the element wrapper for a registry handle.
func (h *Host) Wrap(node any) schemas.Element {
	handle, ok := node.(int64)
	if !ok {
		return nil
	}
	return &remoteElement{h: h, handle: handle}
}

// AnyActive reports whether the page has web animations running.
func (h *Host) AnyActive() bool {
	ctx, cancel := h.opCtx()
	defer cancel()

	var active bool
	if err := h.exec.Eval(ctx, animScript, &active); err != nil {
		h.log.Debug("animation probe failed", zap.Error(err))
		return false
	}
	return active
}

// ComponentFor reports no component: the tab carries no widget registry the
// host could resolve against.
func (h *Host) ComponentFor(schemas.Element) (schemas.Component, bool) {
	return nil, false
}

// FindComponent reports no component for the same reason.
func (h *Host) FindComponent(string, schemas.Component, schemas.Direction) (schemas.Component, bool) {
	return nil, false
}

// Navigate loads a url and waits for the page to be ready.
func (h *Host) Navigate(ctx context.Context, url string) error {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = h.opCtx()
		defer cancel()
	}
	return h.exec.Run(ctx, chromedp.Navigate(url))
}

// release drops a registry entry. Best effort: a handle the page already
// forgot is not an error.
func (h *Host) release(handle int64) {
	ctx, cancel := h.opCtx()
	defer cancel()
	if err := h.exec.Eval(ctx, releaseScript(handle), nil); err != nil {
		h.log.Debug("release failed", zap.Int64("handle", handle), zap.Error(err))
	}
}

func cutChildPrefix(expr string) (string, bool) {
	if rest, ok := strings.CutPrefix(expr, ">"); ok {
		return strings.TrimSpace(rest), true
	}
	return expr, false
}
