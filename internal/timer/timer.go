// Package timer implements the assistant's countdown: at most one is
// running, setting a new one silently replaces the old, and expiry is
// reported exactly once.
package timer

import (
	"time"

	"shirley/internal/clock"
)

type Countdown struct {
	clock    clock.Clock
	dispatch func(func())
	onExpire func()

	end  time.Time
	task clock.Timer
	gen  uint64
}

type Option func(*Countdown)

// WithDispatch routes expiry through d, so the owner can run it on its own
// goroutine.
func WithDispatch(d func(func())) Option {
	return func(c *Countdown) { c.dispatch = d }
}

func New(c clock.Clock, onExpire func(), opts ...Option) *Countdown {
	cd := &Countdown{
		clock:    c,
		onExpire: onExpire,
		dispatch: func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(cd)
	}
	return cd
}

// Set starts a countdown of d, cancelling any running one. It reports
// whether a running countdown was replaced.
func (c *Countdown) Set(d time.Duration) bool {
	replaced := c.Cancel()

	c.gen++
	gen := c.gen
	c.end = c.clock.Now().Add(d)
	c.task = c.clock.AfterFunc(d, func() {
		c.dispatch(func() { c.expire(gen) })
	})

	return replaced
}

// Cancel stops the running countdown and reports whether there was one.
func (c *Countdown) Cancel() bool {
	if c.task == nil {
		return false
	}
	c.task.Stop()
	c.task = nil
	c.gen++
	return true
}

func (c *Countdown) Active() bool {
	return c.task != nil
}

// Remaining is zero when no countdown is running.
func (c *Countdown) Remaining() time.Duration {
	if c.task == nil {
		return 0
	}
	left := c.end.Sub(c.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) expire(gen uint64) {
	if gen != c.gen || c.task == nil {
		return
	}
	c.task = nil
	if c.onExpire != nil {
		c.onExpire()
	}
}
