package gateway

import (
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/libknx/knxgw/internal/clock"
	"github.com/libknx/knxgw/internal/knxnet"
	"github.com/libknx/knxgw/internal/transport"
)

type sentDatagram struct {
	data []byte
	to   netip.AddrPort
}

// fakeChannel runs the handler on the test goroutine. Timer callbacks run
// inside FakeClock.Advance, which the test also calls, so every callback is
// serialized just like on a real event loop. With hold set, fired timers are
// queued instead and run by drain, the way a busy loop would run them after
// the callback in progress.
type fakeChannel struct {
	local     netip.AddrPort
	remote    netip.AddrPort
	hasRemote bool
	clock     *clock.FakeClock
	sendErr   error

	sent   []sentDatagram
	closed bool
	done   chan struct{}

	hold   bool
	queued []func()
}

var _ transport.Channel = (*fakeChannel)(nil)

func newFakeChannel(clk *clock.FakeClock, remote netip.AddrPort) *fakeChannel {
	return &fakeChannel{
		local:     netip.MustParseAddrPort("192.168.1.20:50123"),
		remote:    remote,
		hasRemote: remote.IsValid(),
		clock:     clk,
		done:      make(chan struct{}),
	}
}

func (f *fakeChannel) LocalAddr() netip.AddrPort { return f.local }

func (f *fakeChannel) RemoteAddr() (netip.AddrPort, bool) { return f.remote, f.hasRemote }

func (f *fakeChannel) Send(data []byte) error {
	if !f.hasRemote {
		return transport.ErrNoRemote
	}
	return f.SendTo(data, f.remote)
}

func (f *fakeChannel) SendTo(data []byte, to netip.AddrPort) error {
	if f.closed {
		return transport.ErrClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentDatagram{data: data, to: to})
	return nil
}

func (f *fakeChannel) AfterFunc(d time.Duration, fn func()) *transport.Timer {
	return transport.NewTimer(f.clock, d, f.dispatch, fn)
}

func (f *fakeChannel) dispatch(fn func()) bool {
	if f.closed {
		return false
	}
	if f.hold {
		f.queued = append(f.queued, fn)
		return true
	}
	fn()
	return true
}

// drain runs the queued callbacks, even after Close, and returns how many ran.
func (f *fakeChannel) drain() int {
	n := len(f.queued)
	for _, fn := range f.queued {
		fn()
	}
	f.queued = nil
	return n
}

func (f *fakeChannel) Close() error {
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeChannel) Done() <-chan struct{} { return f.done }

var (
	testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gwA       = netip.MustParseAddrPort("192.168.1.10:3671")
	gwB       = netip.MustParseAddrPort("192.168.1.11:3671")
	group     = netip.MustParseAddrPort("224.0.23.12:3671")
	noPeer    netip.AddrPort
)

func testDevice(name string, serial byte) *knxnet.DeviceInfo {
	return &knxnet.DeviceInfo{
		Medium:    knxnet.MediumTP1,
		Address:   0x11FF,
		Serial:    knxnet.SerialNumber{0x00, 0xc5, 0x01, 0x02, 0x03, serial},
		Multicast: netip.MustParseAddr("224.0.23.12"),
		MAC:       net.HardwareAddr{0x00, 0x24, 0x6d, 0x00, 0x00, serial},
		Name:      name,
	}
}

func searchResponse(t *testing.T, control netip.AddrPort, name string, serial byte) []byte {
	t.Helper()
	data, err := knxnet.EncodeSearchResponse(&knxnet.SearchResponse{
		Control:  knxnet.UDPEndpoint(control),
		Device:   testDevice(name, serial),
		Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyCore, Version: 1}, {ID: knxnet.FamilyTunnelling, Version: 1}},
	})
	if err != nil {
		t.Fatalf("EncodeSearchResponse() error = %v", err)
	}
	return data
}

func descriptionResponse(t *testing.T, name string) []byte {
	t.Helper()
	data, err := knxnet.EncodeDescriptionResponse(&knxnet.DescriptionResponse{
		Device:   testDevice(name, 0x01),
		Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyCore, Version: 1}, {ID: knxnet.FamilyRouting, Version: 1}},
	})
	if err != nil {
		t.Fatalf("EncodeDescriptionResponse() error = %v", err)
	}
	return data
}

// panicCodec fails inside the decoder the way a buggy codec would.
type panicCodec struct {
	knxnet.DefaultCodec
}

func (panicCodec) DecodeSearchResponse([]byte) (*knxnet.SearchResponse, error) {
	panic("decoder bug")
}

func (panicCodec) DecodeDescriptionResponse([]byte) (*knxnet.DescriptionResponse, error) {
	panic("decoder bug")
}

// fakeGateway answers search and description requests on loopback.
type fakeGateway struct {
	t    *testing.T
	conn *net.UDPConn
	addr netip.AddrPort
	name string

	// silent gateways read requests but never answer.
	silent bool

	mu       sync.Mutex
	requests []knxnet.Message
}

func startFakeGateway(t *testing.T, name string, silent bool) *fakeGateway {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	gw := &fakeGateway{
		t:      t,
		conn:   conn,
		addr:   conn.LocalAddr().(*net.UDPAddr).AddrPort(),
		name:   name,
		silent: silent,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		gw.serve()
	}()
	t.Cleanup(func() {
		conn.Close()
		<-done
	})
	return gw
}

func (g *fakeGateway) serve() {
	buf := make([]byte, 1500)
	for {
		n, from, err := g.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return
		}
		msg, err := knxnet.Decode(buf[:n])
		if err != nil {
			continue
		}
		g.mu.Lock()
		g.requests = append(g.requests, msg)
		g.mu.Unlock()
		if g.silent {
			continue
		}

		var reply []byte
		var to netip.AddrPort
		switch m := msg.(type) {
		case *knxnet.SearchRequest:
			to = replyTo(m.Discovery, from)
			reply, err = knxnet.EncodeSearchResponse(&knxnet.SearchResponse{
				Control:  knxnet.UDPEndpoint(g.addr),
				Device:   testDevice(g.name, byte(g.addr.Port())),
				Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyCore, Version: 1}},
			})
		case *knxnet.DescriptionRequest:
			to = replyTo(m.Control, from)
			reply, err = knxnet.EncodeDescriptionResponse(&knxnet.DescriptionResponse{
				Device:   testDevice(g.name, byte(g.addr.Port())),
				Families: []knxnet.ServiceFamily{{ID: knxnet.FamilyCore, Version: 1}},
			})
		default:
			continue
		}
		if err != nil {
			continue
		}
		_, _ = g.conn.WriteToUDPAddrPort(reply, to)
	}
}

func (g *fakeGateway) received() []knxnet.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]knxnet.Message(nil), g.requests...)
}

// replyTo honors the HPAI unless it is the route-back wildcard.
func replyTo(h knxnet.HPAI, from netip.AddrPort) netip.AddrPort {
	if h.Endpoint.Addr().IsUnspecified() || h.Endpoint.Port() == 0 {
		return from
	}
	return h.Endpoint
}
