package transport

import (
	"errors"
	"net/netip"
	"time"
)

var (
	// ErrClosed is returned when sending on a closed channel.
	ErrClosed = errors.New("transport: channel closed")
	// ErrNoRemote is returned by Send on a channel opened without a remote peer.
	ErrNoRemote = errors.New("transport: no remote peer bound")
)

// Handler receives the events of one channel. All calls happen on the
// channel's event loop, never concurrently.
type Handler interface {
	// ConnectionMade is called once, before any other callback.
	ConnectionMade(ch Channel)
	// DatagramReceived is called for every accepted datagram. data is owned
	// by the handler.
	DatagramReceived(data []byte, from netip.AddrPort)
	// ConnectionLost is called once, last, after the channel closed. err is
	// nil for a plain Close and the context's error when ctx ended.
	ConnectionLost(err error)
}

// Channel is the handler's view of an open datagram socket.
type Channel interface {
	// LocalAddr is the endpoint peers can answer to.
	LocalAddr() netip.AddrPort
	// RemoteAddr returns the bound peer, if any.
	RemoteAddr() (netip.AddrPort, bool)
	// Send writes to the bound peer.
	Send(data []byte) error
	// SendTo writes to an explicit destination.
	SendTo(data []byte, to netip.AddrPort) error
	// AfterFunc runs f on the event loop once d elapsed, unless the returned
	// timer is stopped first or the channel closes.
	AfterFunc(d time.Duration, f func()) *Timer
	// Close releases the socket. It is idempotent.
	Close() error
	// Done is closed when the event loop has stopped.
	Done() <-chan struct{}
}
