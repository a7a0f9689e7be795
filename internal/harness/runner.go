package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/future"
	"github.com/sencha/orion-core/internal/player"
)

// ErrNoSpec reports an error capture arriving while no spec is running.
var ErrNoSpec = errors.New("no spec is running")

// ErrRunnerBusy reports a second Start on a runner already mid-run.
var ErrRunnerBusy = errors.New("runner is already running")

// Options tunes a runner.
type Options struct {
	// SuiteName labels the root suite. Empty means "root".
	SuiteName string

	// SpecTimeout is the default done() budget for async specs that do not
	// choose their own. Zero disables the default watchdog timer.
	SpecTimeout time.Duration

	// TrapPanics converts spec body panics into failed expectations.
	TrapPanics bool

	// Transcript, when set, is told which spec each played entry belongs to.
	Transcript *player.TranscriptRecorder
}

type specDecl struct {
	name     string
	fn       SpecFn
	asyncFn  AsyncSpecFn
	timeout  time.Duration
	explicit bool
	disabled bool
}

type suiteDecl struct {
	name   string
	specs  []*specDecl
	suites []*suiteDecl
}

// Runner holds a declaration tree of suites and specs and plays it to
// completion one block at a time. Declaration (Describe, It) and execution
// (Start, Run) are separate phases; declaring during a run is not supported.
//
// Execution is cooperative: each spec chains on the previous block's
// completion, so a manual scheduler can drive a whole run from its timer
// callbacks without the runner ever blocking.
type Runner struct {
	d    *future.Driver
	pl   *player.Player
	rep  schemas.Reporter
	opts Options
	log  *zap.Logger

	declStack []*suiteDecl
	root      *suiteDecl

	mu       sync.Mutex
	running  bool
	current  *SpecCtx
	specSeq  int
	suiteSeq int
}

// NewRunner builds a runner over d reporting into rep. A nil rep discards
// lifecycle callbacks.
func NewRunner(d *future.Driver, rep schemas.Reporter, opts Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if rep == nil {
		rep = nopReporter{}
	}
	if opts.SuiteName == "" {
		opts.SuiteName = "root"
	}
	root := &suiteDecl{name: opts.SuiteName}
	return &Runner{
		d:         d,
		pl:        d.Player(),
		rep:       rep,
		opts:      opts,
		log:       log.Named("harness"),
		declStack: []*suiteDecl{root},
		root:      root,
	}
}

// Describe declares a nested suite. Body runs immediately and may call
// Describe and the It family to populate it.
func (r *Runner) Describe(name string, body func()) {
	s := &suiteDecl{name: name}
	parent := r.declStack[len(r.declStack)-1]
	parent.suites = append(parent.suites, s)
	r.declStack = append(r.declStack, s)
	defer func() { r.declStack = r.declStack[:len(r.declStack)-1] }()
	body()
}

// It declares a synchronous spec.
func (r *Runner) It(name string, fn SpecFn) {
	r.addSpec(&specDecl{name: name, fn: fn})
}

// ItAsync declares a spec that signals completion through done, bounded by
// the runner's default spec timeout.
func (r *Runner) ItAsync(name string, fn AsyncSpecFn) {
	r.addSpec(&specDecl{name: name, asyncFn: fn, timeout: r.opts.SpecTimeout})
}

// ItWithin declares an async spec with its own done() budget.
func (r *Runner) ItWithin(name string, timeout time.Duration, fn AsyncSpecFn) {
	r.addSpec(&specDecl{name: name, asyncFn: fn, timeout: timeout, explicit: true})
}

// XIt declares a disabled spec. It is reported but never executed and does
// not count against the suite.
func (r *Runner) XIt(name string, fn SpecFn) {
	r.addSpec(&specDecl{name: name, fn: fn, disabled: true})
}

func (r *Runner) addSpec(sp *specDecl) {
	parent := r.declStack[len(r.declStack)-1]
	parent.specs = append(parent.specs, sp)
}

// CaptureError attributes err to the running spec as a failed expectation.
// It returns ErrNoSpec when no spec is running; the caller then owns err.
func (r *Runner) CaptureError(err error) error {
	r.mu.Lock()
	cur := r.current
	r.mu.Unlock()
	if cur == nil {
		return ErrNoSpec
	}
	cur.Fail("%s", err.Error())
	return nil
}

// runStep is one slice of a run. It calls next exactly once, synchronously
// or later from a scheduler callback.
type runStep func(next func())

// Start begins the run and calls finish with the root suite result once
// every spec has resolved. Start never blocks; with a manual scheduler the
// caller advances time until finish fires.
func (r *Runner) Start(finish func(*schemas.SuiteResult)) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunnerBusy
	}
	r.running = true
	r.specSeq = 0
	r.suiteSeq = 0
	r.mu.Unlock()

	offErr := r.pl.On(player.SignalError, func(ev player.Event) {
		if ev.Err == nil {
			return
		}
		if r.CaptureError(ev.Err) != nil {
			r.log.Error("player error outside any spec", zap.Error(ev.Err))
		}
	})

	rootResult := &schemas.SuiteResult{ID: r.nextSuiteID(), Name: r.root.name}
	steps := r.suiteSteps(r.root, rootResult, "")

	r.advance(steps, 0, func() {
		offErr()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		if finish != nil {
			finish(rootResult)
		}
	})
	return nil
}

// Run executes the declaration tree and blocks until it resolves or ctx is
// cancelled. Intended for the system scheduler; manual-clock callers drive
// Start directly.
func (r *Runner) Run(ctx context.Context) (*schemas.SuiteResult, error) {
	done := make(chan *schemas.SuiteResult, 1)
	if err := r.Start(func(root *schemas.SuiteResult) { done <- root }); err != nil {
		return nil, err
	}
	select {
	case root := <-done:
		return root, nil
	case <-ctx.Done():
		r.pl.Stop()
		return nil, ctx.Err()
	}
}

// advance walks the step list as a trampoline. Steps that complete
// synchronously run in the loop; a step that defers its next re-enters
// advance from the scheduler callback, so the stack never grows with the
// number of specs.
func (r *Runner) advance(steps []runStep, idx int, finish func()) {
	for idx < len(steps) {
		step := steps[idx]
		idx++

		var mu sync.Mutex
		returned := false
		resumed := false
		step(func() {
			mu.Lock()
			if !returned {
				resumed = true
				mu.Unlock()
				return
			}
			mu.Unlock()
			r.advance(steps, idx, finish)
		})
		mu.Lock()
		returned = true
		if !resumed {
			mu.Unlock()
			return
		}
		mu.Unlock()
	}
	finish()
}

// suiteSteps flattens one suite into steps: enter, specs in declaration
// order, child suites, leave.
func (r *Runner) suiteSteps(decl *suiteDecl, result *schemas.SuiteResult, parentName string) []runStep {
	fullName := decl.name
	if parentName != "" {
		fullName = parentName + " " + decl.name
	}

	var steps []runStep
	steps = append(steps, func(next func()) {
		result.Started = r.pl.Scheduler().Now()
		r.rep.SuiteEnter(result)
		r.rep.SuiteStarted(result)
		next()
	})

	for _, sp := range decl.specs {
		spResult := &schemas.SpecResult{
			ID:       r.nextSpecID(),
			Name:     sp.name,
			FullName: fullName + " " + sp.name,
			Disabled: sp.disabled,
		}
		result.Specs = append(result.Specs, spResult)
		steps = append(steps, r.specStep(sp, spResult))
	}

	for _, child := range decl.suites {
		childResult := &schemas.SuiteResult{ID: r.nextSuiteID(), Name: child.name}
		result.Suites = append(result.Suites, childResult)
		steps = append(steps, r.suiteSteps(child, childResult, fullName)...)
	}

	steps = append(steps, func(next func()) {
		result.Finished = r.pl.Scheduler().Now()
		r.rep.SuiteFinished(result)
		r.rep.SuiteLeave(result)
		next()
	})
	return steps
}

func (r *Runner) specStep(sp *specDecl, result *schemas.SpecResult) runStep {
	return func(next func()) {
		result.Started = r.pl.Scheduler().Now()
		if sp.disabled {
			r.rep.SpecStarted(result)
			r.rep.SpecFinished(result)
			next()
			return
		}
		if r.opts.Transcript != nil {
			r.opts.Transcript.SetSpec(result.ID)
		}

		ctx := newSpecCtx(sp.name, result, r.d, r.log)
		r.mu.Lock()
		r.current = ctx
		r.mu.Unlock()

		r.rep.SpecStarted(result)
		r.log.Debug("spec started", zap.String("id", result.ID), zap.String("name", result.FullName))

		block := NewBlock(r.pl, BlockConfig{
			Name:            sp.name,
			Fn:              sp.fn,
			AsyncFn:         sp.asyncFn,
			Timeout:         sp.timeout,
			ExplicitTimeout: sp.explicit,
			TrapPanics:      r.opts.TrapPanics,
		}, r.log)

		block.Run(ctx, func() {
			ctx.close()
			result.Duration = r.pl.Scheduler().Now().Sub(result.Started)

			r.mu.Lock()
			r.current = nil
			r.mu.Unlock()
			if r.opts.Transcript != nil {
				r.opts.Transcript.SetSpec("")
			}

			r.rep.SpecFinished(result)
			r.log.Debug("spec finished",
				zap.String("id", result.ID),
				zap.Bool("passed", result.Passed),
				zap.Duration("duration", result.Duration))
			next()
		})
	}
}

func (r *Runner) nextSpecID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specSeq++
	return fmt.Sprintf("spec-%d", r.specSeq)
}

func (r *Runner) nextSuiteID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suiteSeq++
	return fmt.Sprintf("suite-%d", r.suiteSeq)
}

// nopReporter discards every callback.
type nopReporter struct{}

func (nopReporter) SuiteEnter(*schemas.SuiteResult)    {}
func (nopReporter) SuiteStarted(*schemas.SuiteResult)  {}
func (nopReporter) SpecStarted(*schemas.SpecResult)    {}
func (nopReporter) SpecFinished(*schemas.SpecResult)   {}
func (nopReporter) SuiteFinished(*schemas.SuiteResult) {}
func (nopReporter) SuiteLeave(*schemas.SuiteResult)    {}
