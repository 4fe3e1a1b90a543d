package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/libknx/knxgw/internal/clock"
	"github.com/libknx/knxgw/internal/logging"
)

const (
	// maxDatagramSize is the Ethernet frame limit. KNXnet/IP discovery
	// frames are far smaller.
	maxDatagramSize = 1518
	eventQueueSize  = 64
)

// Options configure Open.
type Options struct {
	// Local is the address to bind. The zero value binds 0.0.0.0 on an
	// ephemeral port.
	Local netip.AddrPort
	// Remote binds the channel to a peer: Send targets it and datagrams from
	// other sources are dropped.
	Remote netip.AddrPort
	// Group is the multicast destination the channel will SendTo. It selects
	// the reported local address and enables the multicast options below.
	Group netip.AddrPort
	// Interface names the outgoing interface for multicast.
	Interface string
	// MulticastTTL is the hop limit for multicast datagrams. Zero keeps the
	// system default.
	MulticastTTL int
	// MulticastLoopback delivers our own multicast datagrams back to the host.
	MulticastLoopback bool
	// Clock drives AfterFunc. Defaults to the real clock.
	Clock clock.Clock
	// Logger receives channel events. Nil means silent.
	Logger *zap.Logger
}

// UDPChannel is a Channel over a UDP socket.
type UDPChannel struct {
	conn      *net.UDPConn
	local     netip.AddrPort
	remote    netip.AddrPort
	hasRemote bool
	handler   Handler
	clock     clock.Clock
	log       *zap.Logger

	events  chan func()
	closing chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
	reason    error
}

var _ Channel = (*UDPChannel)(nil)

// Open binds a UDP socket, attaches handler and starts the event loop. The
// handler's ConnectionMade runs on the loop shortly after Open returns.
// Cancelling ctx closes the channel.
func Open(ctx context.Context, opts Options, handler Handler) (*UDPChannel, error) {
	if handler == nil {
		return nil, errors.New("transport: nil handler")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var laddr *net.UDPAddr
	if opts.Local.IsValid() {
		laddr = net.UDPAddrFromAddrPort(opts.Local)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}

	log := logging.OrNop(opts.Logger)
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	c := &UDPChannel{
		conn:      conn,
		remote:    unmap(opts.Remote),
		hasRemote: opts.Remote.IsValid(),
		handler:   handler,
		clock:     clk,
		events:    make(chan func(), eventQueueSize),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	ifi, err := lookupInterface(opts.Interface)
	if err != nil {
		conn.Close()
		return nil, err
	}

	bound := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	c.local = resolveLocal(unmap(bound), ifi, c.target(opts))
	c.log = log.With(logging.Endpoint("local", c.local))
	if c.hasRemote {
		c.log = c.log.With(logging.Endpoint("remote", c.remote))
	}

	if opts.Group.Addr().IsMulticast() {
		c.setMulticastOptions(ifi, opts)
	}

	c.log.Debug("Channel opened")

	c.post(func() { c.handler.ConnectionMade(c) })
	c.wg.Add(2)
	go c.loop()
	go c.read()

	go func() {
		select {
		case <-ctx.Done():
			c.log.Debug("Context done, closing channel", zap.Error(ctx.Err()))
			c.closeWith(ctx.Err())
		case <-c.closing:
		}
	}()

	return c, nil
}

// target is the destination used to pick the local address.
func (c *UDPChannel) target(opts Options) netip.AddrPort {
	if c.hasRemote {
		return c.remote
	}
	return unmap(opts.Group)
}

func (c *UDPChannel) setMulticastOptions(ifi *net.Interface, opts Options) {
	p := ipv4.NewPacketConn(c.conn)
	if ifi != nil {
		if err := p.SetMulticastInterface(ifi); err != nil {
			c.log.Warn("Failed to set multicast interface", zap.String("interface", ifi.Name), zap.Error(err))
		}
	}
	if opts.MulticastTTL > 0 {
		if err := p.SetMulticastTTL(opts.MulticastTTL); err != nil {
			c.log.Warn("Failed to set multicast TTL", zap.Int("ttl", opts.MulticastTTL), zap.Error(err))
		}
	}
	if err := p.SetMulticastLoopback(opts.MulticastLoopback); err != nil {
		c.log.Warn("Failed to set multicast loopback", zap.Error(err))
	}
}

// loop is the only goroutine that calls the handler.
func (c *UDPChannel) loop() {
	defer c.wg.Done()
	defer close(c.done)
	// reason is written before closing is closed.
	defer c.dispatch(func() { c.handler.ConnectionLost(c.reason) })

	for {
		select {
		case <-c.closing:
			return
		case fn := <-c.events:
			// Close wins over events still in the queue.
			select {
			case <-c.closing:
				return
			default:
			}
			c.dispatch(fn)
		}
	}
}

func (c *UDPChannel) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Handler panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

// read forwards datagrams into the loop until the socket closes.
func (c *UDPChannel) read() {
	defer c.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := c.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			select {
			case <-c.closing:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Warn("Read failed", zap.Error(err))
			continue
		}

		from = unmap(from)
		if c.hasRemote && from != c.remote {
			c.log.Debug("Dropping datagram from unexpected peer", logging.Endpoint("from", from), zap.Int("length", n))
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		logging.Datagram(c.log, "Datagram received", from, data)

		if !c.post(func() { c.handler.DatagramReceived(data, from) }) {
			return
		}
	}
}

// post queues fn on the loop. It reports false once the channel is closing.
func (c *UDPChannel) post(fn func()) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	select {
	case c.events <- fn:
		return true
	case <-c.closing:
		return false
	}
}

func (c *UDPChannel) LocalAddr() netip.AddrPort {
	return c.local
}

func (c *UDPChannel) RemoteAddr() (netip.AddrPort, bool) {
	return c.remote, c.hasRemote
}

func (c *UDPChannel) Send(data []byte) error {
	if !c.hasRemote {
		return ErrNoRemote
	}
	return c.SendTo(data, c.remote)
}

func (c *UDPChannel) SendTo(data []byte, to netip.AddrPort) error {
	select {
	case <-c.closing:
		return ErrClosed
	default:
	}
	if _, err := c.conn.WriteToUDPAddrPort(data, unmap(to)); err != nil {
		return fmt.Errorf("failed to send to %s: %w", to, err)
	}
	logging.Datagram(c.log, "Datagram sent", to, data)
	return nil
}

func (c *UDPChannel) AfterFunc(d time.Duration, f func()) *Timer {
	return NewTimer(c.clock, d, c.post, f)
}

// Close stops the channel. It does not wait for the loop, so handlers may
// call it; use Wait from other goroutines.
func (c *UDPChannel) Close() error {
	return c.closeWith(nil)
}

func (c *UDPChannel) closeWith(reason error) error {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.closing)
		c.closeErr = c.conn.Close()
		c.log.Debug("Channel closed")
	})
	return c.closeErr
}

func (c *UDPChannel) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the loop and the reader have exited. It must not be
// called from a handler callback.
func (c *UDPChannel) Wait() {
	c.wg.Wait()
}

func unmap(ap netip.AddrPort) netip.AddrPort {
	if !ap.IsValid() {
		return ap
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
