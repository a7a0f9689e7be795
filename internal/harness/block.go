package harness

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/future"
	"github.com/sencha/orion-core/internal/player"
)

// SpecFn is a synchronous spec body. The block considers its own work done
// the moment it returns; only playables it enqueued hold the block open.
type SpecFn func(t *SpecCtx)

// AsyncSpecFn is a spec body that performs work outside the player. The
// block stays open until done reports, or the spec's watchdog expires.
type AsyncSpecFn func(t *SpecCtx, done *Done)

// SpecCtx is the object a spec body receives. It accumulates expectations
// into the spec's result and hands out the driver for building futures.
type SpecCtx struct {
	name   string
	driver *future.Driver
	log    *zap.Logger

	mu     sync.Mutex
	result *schemas.SpecResult
	closed bool
}

func newSpecCtx(name string, result *schemas.SpecResult, d *future.Driver, log *zap.Logger) *SpecCtx {
	return &SpecCtx{name: name, result: result, driver: d, log: log}
}

// Name returns the spec's own name.
func (t *SpecCtx) Name() string {
	return t.name
}

// Driver returns the future driver specs build their chains on.
func (t *SpecCtx) Driver() *future.Driver {
	return t.driver
}

// Check records one expectation and returns whether it passed.
func (t *SpecCtx) Check(passed bool, format string, args ...any) bool {
	t.record(schemas.Expectation{Passed: passed, Message: fmt.Sprintf(format, args...)})
	return passed
}

// Fail records a failed expectation.
func (t *SpecCtx) Fail(format string, args ...any) {
	t.record(schemas.Expectation{Passed: false, Message: fmt.Sprintf(format, args...)})
}

// Failed reports whether any expectation so far has failed.
func (t *SpecCtx) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.result.Expectations {
		if !e.Passed {
			return true
		}
	}
	return false
}

// Expectations returns a copy of the expectations recorded so far.
func (t *SpecCtx) Expectations() []schemas.Expectation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]schemas.Expectation, len(t.result.Expectations))
	copy(out, t.result.Expectations)
	return out
}

func (t *SpecCtx) record(e schemas.Expectation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		t.log.Warn("expectation recorded after spec finished; dropped",
			zap.String("spec", t.name),
			zap.String("message", e.Message),
			zap.Bool("passed", e.Passed))
		return
	}
	t.result.Expectations = append(t.result.Expectations, e)
}

// close finalizes the result. Late expectations are logged and dropped.
func (t *SpecCtx) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.result.Passed = true
	for _, e := range t.result.Expectations {
		if !e.Passed {
			t.result.Passed = false
			break
		}
	}
}

// BlockConfig describes one spec body to wrap.
type BlockConfig struct {
	Name string

	// Exactly one of Fn and AsyncFn is set.
	Fn      SpecFn
	AsyncFn AsyncSpecFn

	// Timeout bounds the wait for an async body's done. ExplicitTimeout
	// records whether the spec chose it or inherited the runner default.
	Timeout         time.Duration
	ExplicitTimeout bool

	// TrapPanics converts a panic in the body into a failed expectation
	// instead of unwinding through the runner.
	TrapPanics bool
}

// Block runs one spec body and decides when the spec has fully resolved.
// Two legs must both come down: the completion leg (immediately for sync
// bodies, via watchdog for async ones) and the player leg (immediately when
// the body enqueued nothing, on queue end otherwise). The completion
// callback fires exactly once.
type Block struct {
	cfg BlockConfig
	pl  *player.Player
	log *zap.Logger

	mu       sync.Mutex
	dogDone  bool
	plDone   bool
	finished bool
	complete func()
	watch    *WatchDog
}

// NewBlock wraps cfg around pl.
func NewBlock(pl *player.Player, cfg BlockConfig, log *zap.Logger) *Block {
	if log == nil {
		log = zap.NewNop()
	}
	return &Block{cfg: cfg, pl: pl, log: log}
}

// Run executes the body against ctx. Complete may fire synchronously, from
// inside Run, when nothing held the block open.
func (b *Block) Run(ctx *SpecCtx, complete func()) {
	async := b.cfg.AsyncFn != nil

	b.mu.Lock()
	b.complete = complete
	b.dogDone = !async
	b.mu.Unlock()

	if async {
		b.watch = NewWatchDog(b.pl.Scheduler(), b.cfg.Timeout, b.cfg.ExplicitTimeout, func(err error) {
			if err != nil {
				ctx.Fail("%s", err.Error())
			}
			b.settle(func(b *Block) { b.dogDone = true })
		})
		b.watch.Arm()
	}

	b.invoke(ctx)

	// The body has returned. Work it enqueued holds the block open until
	// the player reports the queue empty.
	if b.pl.HasPending() {
		b.pl.Once(player.SignalEnd, func(player.Event) {
			b.settle(func(b *Block) { b.plDone = true })
		})
		return
	}
	b.settle(func(b *Block) { b.plDone = true })
}

func (b *Block) invoke(ctx *SpecCtx) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if !b.cfg.TrapPanics {
			panic(r)
		}
		ctx.Fail("spec body panicked: %v", r)
		b.log.Error("spec body panicked", zap.String("spec", ctx.Name()), zap.Any("panic", r))
		if b.watch != nil {
			// The completion can no longer arrive; silence the watchdog so
			// the panic is the only failure reported.
			b.watch.disarm()
			b.settle(func(b *Block) { b.dogDone = true })
		}
	}()
	if b.cfg.AsyncFn != nil {
		b.cfg.AsyncFn(ctx, &Done{w: b.watch})
		return
	}
	b.cfg.Fn(ctx)
}

// settle marks one leg down and fires complete once both are.
func (b *Block) settle(mark func(*Block)) {
	b.mu.Lock()
	mark(b)
	fire := b.dogDone && b.plDone && !b.finished
	if fire {
		b.finished = true
	}
	complete := b.complete
	b.mu.Unlock()
	if fire && complete != nil {
		complete()
	}
}
