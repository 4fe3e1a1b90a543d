package transport

import (
	"sync/atomic"
	"time"

	"github.com/libknx/knxgw/internal/clock"
)

// Timer is a callback scheduled on a channel's event loop.
//
// Stop and the callback are ordered by the loop: once Stop returns on the
// loop, the callback never runs, even if the clock already fired and the
// event sits in the queue.
type Timer struct {
	stopped atomic.Bool
	fired   atomic.Bool
	inner   *clock.Timer
}

// NewTimer arms f after d on clk. When the clock fires, dispatch is asked to
// run the callback on the owner's event loop; dispatch reports false if the
// loop is gone.
func NewTimer(clk clock.Clock, d time.Duration, dispatch func(func()) bool, f func()) *Timer {
	t := &Timer{}
	t.inner = clk.AfterFunc(d, func() {
		dispatch(func() { t.run(f) })
	})
	return t
}

func (t *Timer) run(f func()) {
	if t.stopped.Load() {
		return
	}
	if !t.fired.CompareAndSwap(false, true) {
		return
	}
	f()
}

// Stop cancels the timer. It reports whether the call prevented the callback
// from running. Stopping twice, or after the callback ran, is a no-op.
func (t *Timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	if t.inner != nil {
		t.inner.Stop()
	}
	return !t.fired.Load()
}

// Pending reports whether the callback may still run.
func (t *Timer) Pending() bool {
	return !t.stopped.Load() && !t.fired.Load()
}
