package gateway

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/libknx/knxgw/internal/knxnet"
	"github.com/libknx/knxgw/internal/logging"
	"github.com/libknx/knxgw/internal/transport"
)

// SearchRecord is one gateway seen during a search: who sent the response
// and what it said.
type SearchRecord struct {
	Sender      netip.AddrPort
	Response    *knxnet.SearchResponse
	fingerprint string
}

// Name returns the gateway's friendly name.
func (r SearchRecord) Name() string {
	if r.Response.Empty() {
		return ""
	}
	return r.Response.Device.Name
}

// ControlEndpoint returns where description requests should go: the
// advertised control endpoint, or the sender when the gateway advertised
// the wildcard address (NAT mode).
func (r SearchRecord) ControlEndpoint() netip.AddrPort {
	if r.Response != nil {
		ep := r.Response.Control.Endpoint
		if ep.IsValid() && !ep.Addr().IsUnspecified() && ep.Port() != 0 {
			return ep
		}
	}
	return r.Sender
}

func (r SearchRecord) String() string {
	return fmt.Sprintf("%s %q (control %s)", r.Sender, r.Name(), r.ControlEndpoint())
}

type recordKey struct {
	sender      netip.AddrPort
	fingerprint string
}

// Search is the discovery exchange. Attach it to a channel; it multicasts a
// search request on open and collects responses until the channel closes.
type Search struct {
	log   *zap.Logger
	codec knxnet.Codec
	group netip.AddrPort

	mu      sync.Mutex
	local   netip.AddrPort
	records map[recordKey]SearchRecord
	err     error
	failed  chan struct{}
}

var _ transport.Handler = (*Search)(nil)

// NewSearch returns a search that sends to group, normally the KNXnet/IP
// multicast address on the default port.
func NewSearch(log *zap.Logger, codec knxnet.Codec, group netip.AddrPort) *Search {
	if codec == nil {
		codec = knxnet.DefaultCodec{}
	}
	return &Search{
		log:     logging.OrNop(log).With(logging.Endpoint("group", group)),
		codec:   codec,
		group:   group,
		records: make(map[recordKey]SearchRecord),
		failed:  make(chan struct{}),
	}
}

func (s *Search) ConnectionMade(ch transport.Channel) {
	local := ch.LocalAddr()
	s.mu.Lock()
	s.local = local
	s.mu.Unlock()

	payload, err := s.codec.EncodeSearchRequest(local)
	if err != nil {
		s.log.Error("Failed to build search request", logging.Endpoint("local", local), zap.Error(err))
		s.fail(fmt.Errorf("%w: %w", ErrSearchFailed, err))
		return
	}
	if err := ch.SendTo(payload, s.group); err != nil {
		s.log.Error("Failed to send search request", zap.Error(err))
		s.fail(fmt.Errorf("%w: %w", ErrSearchFailed, err))
		return
	}
	s.log.Debug("Search request sent", logging.Endpoint("local", local))
}

func (s *Search) DatagramReceived(data []byte, from netip.AddrPort) {
	resp, ok := s.decode(data, from)
	if !ok {
		return
	}

	rec := SearchRecord{Sender: from, Response: resp, fingerprint: resp.Fingerprint()}
	key := recordKey{sender: from, fingerprint: rec.fingerprint}

	s.mu.Lock()
	_, seen := s.records[key]
	if !seen {
		s.records[key] = rec
	}
	s.mu.Unlock()

	if seen {
		s.log.Debug("Duplicate search response", logging.Endpoint("from", from))
		return
	}
	s.log.Info("Gateway discovered",
		logging.Endpoint("from", from),
		zap.String("name", resp.Device.Name),
		zap.Stringer("address", resp.Device.Address),
		zap.Stringer("control", resp.Control),
	)
}

func (s *Search) ConnectionLost(err error) {
	s.log.Debug("Search channel closed", zap.Int("gateways", s.Len()), zap.Error(err))
}

// fail records the first send error. It runs on the event loop only.
func (s *Search) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = err
	close(s.failed)
}

// Failed is closed when the search request could not be sent. Nothing can
// arrive after that, so waiting for the window is pointless.
func (s *Search) Failed() <-chan struct{} {
	return s.failed
}

// Err returns the send error, if any.
func (s *Search) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// decode never panics. Anything it cannot use is logged and reported as !ok.
func (s *Search) decode(data []byte, from netip.AddrPort) (resp *knxnet.SearchResponse, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Search response decoder fault",
				logging.Endpoint("from", from),
				zap.Any("panic", r),
				logging.Hex("data", data),
			)
			resp, ok = nil, false
		}
	}()

	resp, err := s.codec.DecodeSearchResponse(data)
	if err != nil {
		s.log.Debug("Ignoring datagram", logging.Endpoint("from", from), zap.Error(err))
		return nil, false
	}
	if resp.Empty() {
		s.log.Debug("Ignoring empty search response", logging.Endpoint("from", from))
		return nil, false
	}
	return resp, true
}

// LocalAddr returns the endpoint advertised in the search request.
func (s *Search) LocalAddr() netip.AddrPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// Len returns the number of distinct responses so far.
func (s *Search) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Responses returns a snapshot of the collected records ordered by sender.
// Read it after the channel is done for the final set.
func (s *Search) Responses() []SearchRecord {
	s.mu.Lock()
	out := make([]SearchRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b SearchRecord) int {
		if c := a.Sender.Compare(b.Sender); c != 0 {
			return c
		}
		return strings.Compare(a.fingerprint, b.fingerprint)
	})
	return out
}
