package player

import (
	"errors"
	"sync"
	"time"

	"github.com/sencha/orion-core/api/schemas"
)

// ErrCompletionExpired marks failures produced by a completion deadline
// rather than an explicit Fail call.
var ErrCompletionExpired = errors.New("completion deadline expired")

// Completion is the continuation handed to asynchronous work: queued
// callbacks, scrolling waits, async test blocks. Exactly one of Done or Fail
// takes effect; later calls are ignored. Both are safe from any goroutine.
type Completion struct {
	once   sync.Once
	sched  schemas.Scheduler
	settle func(error)

	mu    sync.Mutex
	timer schemas.TimerHandle
	armed bool
}

// NewCompletion builds a completion that reports into settle. When timeout is
// positive a deadline is armed on sched; if it fires first the completion
// fails with expire's error, which wraps ErrCompletionExpired.
func NewCompletion(sched schemas.Scheduler, timeout time.Duration, expire func() error, settle func(error)) *Completion {
	c := &Completion{sched: sched, settle: settle}
	if timeout > 0 && sched != nil {
		c.mu.Lock()
		c.armed = true
		c.timer = sched.Defer(timeout, func() {
			err := ErrCompletionExpired
			if expire != nil {
				if e := expire(); e != nil {
					err = errors.Join(e, ErrCompletionExpired)
				}
			}
			c.resolve(err)
		})
		c.mu.Unlock()
	}
	return c
}

// Done reports successful completion.
func (c *Completion) Done() {
	c.resolve(nil)
}

// Fail reports completion with a failure. A nil err still counts as failure
// so sloppy callers cannot turn a Fail into a pass.
func (c *Completion) Fail(err error) {
	if err == nil {
		err = errors.New("completion failed without a reason")
	}
	c.resolve(err)
}

func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		if c.armed {
			c.sched.Cancel(c.timer)
			c.armed = false
		}
		c.mu.Unlock()
		if c.settle != nil {
			c.settle(err)
		}
	})
}
