// Package clock abstracts the time source used for exchange timeouts and
// discovery windows so tests can drive time by hand.
package clock

import "time"

// Clock is the subset of the time package the gateway exchanges use.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives the current time once d elapsed.
	After(d time.Duration) <-chan time.Time
	// AfterFunc calls f in its own context once d elapsed.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a handle to a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop prevents the call from happening. It reports false if the call
// already ran or the timer was stopped before.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
