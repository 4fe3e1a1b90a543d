package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/libknx/knxgw/internal/knxnet"
)

// ErrPending is returned by Future.Result before the future is resolved.
var ErrPending = errors.New("gateway: description pending")

// Future is the single result slot of a Description exchange. It is written
// once, by the exchange, and may be read from any goroutine.
type Future struct {
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	resp     *knxnet.DescriptionResponse
	err      error
}

// NewFuture returns an unresolved future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve settles the future. A second call is a programming error and panics.
func (f *Future) resolve(resp *knxnet.DescriptionResponse, err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		panic("gateway: description future resolved twice")
	}
	f.resolved = true
	f.resp = resp
	f.err = err
	f.mu.Unlock()
	close(f.done)
}

// Done is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome, or ErrPending if there is none yet.
func (f *Future) Result() (*knxnet.DescriptionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.resolved {
		return nil, ErrPending
	}
	return f.resp, f.err
}

// Wait blocks until the future is resolved or ctx ends.
func (f *Future) Wait(ctx context.Context) (*knxnet.DescriptionResponse, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
