package gateway

import (
	"fmt"
	"net/netip"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/libknx/knxgw/internal/knxnet"
	"github.com/libknx/knxgw/internal/logging"
	"github.com/libknx/knxgw/internal/transport"
)

// DefaultDescriptionTimeout is how long a Description waits for its reply.
const DefaultDescriptionTimeout = 2 * time.Second

// State is the progress of a Description exchange.
type State int32

const (
	StateIdle State = iota
	StateAwaiting
	StateSucceeded
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StateSucceeded:
		return "succeeded"
	case StateTimedOut:
		return "timed out"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Description is the description exchange. Attach it to a channel bound to
// the gateway; it sends a request on open and resolves its Future with the
// first reply or with ErrTimeout, then closes the channel.
type Description struct {
	log     *zap.Logger
	codec   knxnet.Codec
	timeout time.Duration
	future  *Future

	// Touched only on the channel's event loop.
	ch    transport.Channel
	local netip.AddrPort
	timer *transport.Timer

	state atomic.Int32
}

var _ transport.Handler = (*Description)(nil)

// NewDescription returns an exchange that resolves future. A non-positive
// timeout selects DefaultDescriptionTimeout.
func NewDescription(log *zap.Logger, codec knxnet.Codec, timeout time.Duration, future *Future) *Description {
	if codec == nil {
		codec = knxnet.DefaultCodec{}
	}
	if timeout <= 0 {
		timeout = DefaultDescriptionTimeout
	}
	return &Description{
		log:     logging.OrNop(log),
		codec:   codec,
		timeout: timeout,
		future:  future,
	}
}

// Future returns the result slot.
func (d *Description) Future() *Future {
	return d.future
}

// State returns the current state. Safe from any goroutine.
func (d *Description) State() State {
	return State(d.state.Load())
}

func (d *Description) ConnectionMade(ch transport.Channel) {
	d.ch = ch
	d.local = ch.LocalAddr()
	if remote, ok := ch.RemoteAddr(); ok {
		d.log = d.log.With(logging.Endpoint("gateway", remote))
	}

	d.timer = ch.AfterFunc(d.timeout, d.timedOut)
	d.state.Store(int32(StateAwaiting))

	payload, err := d.codec.EncodeDescriptionRequest(d.local)
	if err == nil {
		err = ch.Send(payload)
	}
	if err != nil {
		d.log.Error("Failed to send description request", zap.Error(err))
		d.timer.Stop()
		d.ch.Close()
		d.finish(StateFailed, nil, fmt.Errorf("failed to send description request: %w", err))
		return
	}
	d.log.Debug("Description request sent", logging.Endpoint("local", d.local), zap.Duration("timeout", d.timeout))
}

func (d *Description) timedOut() {
	if d.State() != StateAwaiting {
		return
	}
	d.log.Debug("Description request timed out", zap.Duration("timeout", d.timeout))
	d.ch.Close()
	d.finish(StateTimedOut, nil, ErrTimeout)
}

func (d *Description) DatagramReceived(data []byte, from netip.AddrPort) {
	if d.State() != StateAwaiting {
		d.log.Debug("Ignoring datagram after resolution", logging.Endpoint("from", from))
		return
	}

	// Cancel the timer before anything else can fail.
	d.timer.Stop()
	d.ch.Close()

	resp, err := d.decode(data, from)
	if err != nil {
		d.finish(StateFailed, nil, err)
		return
	}
	d.log.Info("Gateway described",
		zap.String("name", resp.Device.Name),
		zap.Stringer("address", resp.Device.Address),
		zap.Int("families", len(resp.Families)),
	)
	d.finish(StateSucceeded, resp, nil)
}

// ConnectionLost fails a request still waiting when the channel closes
// under it, so the Future never stays pending.
func (d *Description) ConnectionLost(err error) {
	switch d.State() {
	case StateIdle, StateAwaiting:
	default:
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	if err == nil {
		err = transport.ErrClosed
	}
	d.log.Debug("Channel closed before a description arrived", zap.Error(err))
	d.finish(StateFailed, nil, fmt.Errorf("%w: %w", ErrConnectionLost, err))
}

func (d *Description) decode(data []byte, from netip.AddrPort) (resp *knxnet.DescriptionResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Description response decoder fault",
				logging.Endpoint("from", from),
				zap.Any("panic", r),
				logging.Hex("data", data),
			)
			resp, err = nil, fmt.Errorf("%w: %v", ErrDecodeFault, r)
		}
	}()

	resp, err = d.codec.DecodeDescriptionResponse(data)
	if err != nil {
		d.log.Debug("Invalid description response", logging.Endpoint("from", from), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.Empty() {
		d.log.Debug("Empty description response", logging.Endpoint("from", from))
		return nil, fmt.Errorf("%w: no device information", ErrInvalidResponse)
	}
	return resp, nil
}

func (d *Description) finish(state State, resp *knxnet.DescriptionResponse, err error) {
	d.state.Store(int32(state))
	d.future.resolve(resp, err)
}
