package gateway

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/libknx/knxgw/internal/clock"
	"github.com/libknx/knxgw/internal/config"
	"github.com/libknx/knxgw/internal/knxnet"
	"github.com/libknx/knxgw/internal/logging"
	"github.com/libknx/knxgw/internal/transport"
)

// DefaultConcurrency bounds parallel description requests in DescribeAll.
const DefaultConcurrency = 8

// Scanner runs the exchanges over UDP channels.
type Scanner struct {
	// Group is where search requests are sent.
	Group netip.AddrPort
	// Window is how long Discover collects responses.
	Window time.Duration
	// Timeout is the per-gateway description timeout.
	Timeout time.Duration
	// Interface is the outgoing multicast interface, empty for the default route.
	Interface string
	// MulticastTTL is the hop limit of search requests.
	MulticastTTL int
	// Concurrency bounds DescribeAll.
	Concurrency int

	Codec  knxnet.Codec
	Clock  clock.Clock
	Logger *zap.Logger
}

// NewScanner creates a scanner from the loaded constants.
func NewScanner() *Scanner {
	return NewScannerFromConstants(config.Current())
}

// NewScannerFromConstants creates a scanner from c.
func NewScannerFromConstants(c config.Constants) *Scanner {
	return &Scanner{
		Group:        c.Group(),
		Window:       c.DiscoveryWindow,
		Timeout:      c.DescriptionTimeout,
		Interface:    c.Interface,
		MulticastTTL: c.MulticastTTL,
		Concurrency:  DefaultConcurrency,
	}
}

func (s *Scanner) logger() *zap.Logger {
	return logging.OrNop(s.Logger)
}

func (s *Scanner) clk() clock.Clock {
	if s.Clock == nil {
		return clock.Real()
	}
	return s.Clock
}

// Discover searches for gateways during Window.
func (s *Scanner) Discover() ([]SearchRecord, error) {
	return s.DiscoverWithContext(context.Background())
}

// DiscoverWithContext searches for gateways until Window elapses or ctx ends.
// On cancellation it returns what was collected so far with ctx's error. If
// the search request cannot be sent it returns ErrSearchFailed at once.
func (s *Scanner) DiscoverWithContext(ctx context.Context) ([]SearchRecord, error) {
	search := NewSearch(s.logger(), s.Codec, s.Group)

	ch, err := transport.Open(ctx, transport.Options{
		Group:        s.Group,
		Interface:    s.Interface,
		MulticastTTL: s.MulticastTTL,
		Clock:        s.clk(),
		Logger:       s.logger(),
	}, search)
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery channel: %w", err)
	}

	var ctxErr error
	select {
	case <-s.clk().After(s.Window):
	case <-ctx.Done():
		ctxErr = ctx.Err()
	case <-search.Failed():
		ch.Close()
		ch.Wait()
		return nil, search.Err()
	}
	ch.Close()
	ch.Wait()

	records := search.Responses()
	s.logger().Debug("Discovery finished", zap.Int("gateways", len(records)), zap.Duration("window", s.Window))
	return records, ctxErr
}

// Describe requests the description of the gateway at addr.
func (s *Scanner) Describe(addr netip.AddrPort) (*knxnet.DescriptionResponse, error) {
	return s.DescribeWithContext(context.Background(), addr)
}

// DescribeWithContext requests a description and waits for the outcome or ctx.
func (s *Scanner) DescribeWithContext(ctx context.Context, addr netip.AddrPort) (*knxnet.DescriptionResponse, error) {
	future := NewFuture()
	desc := NewDescription(s.logger(), s.Codec, s.Timeout, future)

	ch, err := transport.Open(ctx, transport.Options{
		Remote: addr,
		Clock:  s.clk(),
		Logger: s.logger(),
	}, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to open description channel to %s: %w", addr, err)
	}
	defer ch.Close()

	return future.Wait(ctx)
}

// DescribeResult is the outcome of describing one discovered gateway.
type DescribeResult struct {
	Record      SearchRecord
	Description *knxnet.DescriptionResponse
	Err         error
}

// DescribeAll describes every record concurrently. Per-gateway failures are
// reported in the results; the returned error is only set when ctx ends.
func (s *Scanner) DescribeAll(ctx context.Context, records []SearchRecord) ([]DescribeResult, error) {
	results := make([]DescribeResult, len(records))

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, rec := range records {
		g.Go(func() error {
			desc, err := s.DescribeWithContext(gctx, rec.ControlEndpoint())
			results[i] = DescribeResult{Record: rec, Description: desc, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
