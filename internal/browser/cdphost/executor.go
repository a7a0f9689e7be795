package cdphost

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Executor runs CDP work against one tab. The production executor delegates
// to chromedp; tests swap in a recorder so the host can be exercised without
// a browser.
type Executor interface {
	// Run executes actions in order on the tab.
	Run(ctx context.Context, actions ...chromedp.Action) error

	// Eval evaluates script in the page, awaiting promises and unmarshalling
	// the value into out. A nil out discards the result.
	Eval(ctx context.Context, script string, out any) error
}

// chromedpExecutor is the production executor over a chromedp tab context.
// The tab context carries the CDP transport; the per-call context only
// bounds the operation.
type chromedpExecutor struct {
	tab context.Context
}

// NewExecutor wraps a chromedp tab context.
func NewExecutor(tab context.Context) Executor {
	return &chromedpExecutor{tab: tab}
}

func (e *chromedpExecutor) Run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := combineContext(e.tab, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (e *chromedpExecutor) Eval(ctx context.Context, script string, out any) error {
	action := chromedp.Evaluate(script, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	})
	return e.Run(ctx, action)
}

// combineContext derives from primary, which carries the CDP target values,
// and cancels when either context ends.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	if secondary == nil {
		return combined, cancel
	}
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
