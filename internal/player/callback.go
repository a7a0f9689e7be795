package player

import (
	"context"
	"fmt"
	"time"
)

// validCallback reports whether fn is one of the supported queued callback
// shapes. Checked at enqueue so a typo fails fast instead of mid-run.
func validCallback(fn any) bool {
	switch fn.(type) {
	case func(), func() error, func(*Completion), func(ctx context.Context) error:
		return true
	}
	return false
}

// runCallback invokes a callback playable. While the function runs on the
// player goroutine, playables it enqueues splice in right after it instead of
// at the tail, preserving nested source order; the splice cursor is cleared
// when the function returns, so later enqueues from other goroutines append
// normally. Completion may arrive synchronously, later, or never, in which
// case the deadline derived from the playable's timeout fails the run.
func (pl *Player) runCallback(p *Playable) {
	expire := func() error {
		if p.expireMsg != "" {
			return fmt.Errorf("%s", p.expireMsg)
		}
		return fmt.Errorf("queued callback did not signal completion within %s", p.timeout)
	}
	comp := NewCompletion(pl.sched, p.timeout, expire, func(err error) {
		pl.completeCallback(p, err)
	})

	pl.mu.Lock()
	pl.insertPos = 0
	pl.inCallback = p
	pl.mu.Unlock()
	defer func() {
		pl.mu.Lock()
		pl.insertPos = -1
		pl.inCallback = nil
		pl.mu.Unlock()

		if r := recover(); r != nil {
			if !pl.opts.TrapExceptions {
				panic(r)
			}
			comp.Fail(fmt.Errorf("queued callback panicked: %v", r))
		}
	}()

	switch fn := p.fn.(type) {
	case func():
		fn()
		comp.Done()

	case func() error:
		if err := fn(); err != nil {
			comp.Fail(err)
		} else {
			comp.Done()
		}

	case func(*Completion):
		fn(comp)

	case func(ctx context.Context) error:
		ctx, cancel := callbackContext(p.timeout)
		pl.mu.Lock()
		p.cancel = cancel
		pl.mu.Unlock()
		go func() {
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					if !pl.opts.TrapExceptions {
						panic(r)
					}
					comp.Fail(fmt.Errorf("queued callback panicked: %v", r))
				}
			}()
			if err := fn(ctx); err != nil {
				comp.Fail(err)
			} else {
				comp.Done()
			}
		}()

	default:
		comp.Fail(fmt.Errorf("unsupported queued callback type %T", p.fn))
	}
}

func callbackContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// completeCallback is the settle point for every callback shape. It ignores
// completions that arrive after the playable already reached a terminal
// state, for example after a stop or a deadline expiry.
func (pl *Player) completeCallback(p *Playable, err error) {
	pl.mu.Lock()
	if p.state.Terminal() {
		pl.mu.Unlock()
		return
	}
	pl.mu.Unlock()

	if err != nil {
		pl.failPlayable(p, err)
		return
	}
	pl.finish(p)
}
