package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/libknx/knxgw/internal/clock"
	"github.com/libknx/knxgw/internal/knxnet"
)

func TestSearchSendsRequestOnOpen(t *testing.T) {
	ch := newFakeChannel(clock.NewFake(testEpoch), gwA)
	s := NewSearch(nil, nil, group)

	s.ConnectionMade(ch)

	require.Len(t, ch.sent, 1)
	// The request goes to the group even though the channel has a peer.
	assert.Equal(t, group, ch.sent[0].to)

	req, err := knxnet.DecodeSearchRequest(ch.sent[0].data)
	require.NoError(t, err)
	assert.Equal(t, ch.local, req.Discovery.Endpoint)
	assert.Equal(t, ch.local, s.LocalAddr())
	assert.NoError(t, s.Err())
}

func TestSearchAccumulatesGateways(t *testing.T) {
	ch := newFakeChannel(clock.NewFake(testEpoch), noPeer)
	s := NewSearch(nil, nil, group)
	s.ConnectionMade(ch)

	s.DatagramReceived(searchResponse(t, gwB, "Router B", 2), gwB)
	s.DatagramReceived(searchResponse(t, gwA, "Router A", 1), gwA)

	got := s.Responses()
	require.Len(t, got, 2)
	// Sorted by sender.
	assert.Equal(t, gwA, got[0].Sender)
	assert.Equal(t, gwB, got[1].Sender)
	assert.Equal(t, "Router A", got[0].Name())
	assert.Equal(t, gwA, got[0].ControlEndpoint())
	assert.False(t, ch.closed, "search closed its channel")
}

func TestSearchSuppressesDuplicates(t *testing.T) {
	s := NewSearch(nil, nil, group)
	s.ConnectionMade(newFakeChannel(clock.NewFake(testEpoch), noPeer))

	resp := searchResponse(t, gwA, "Router A", 1)
	s.DatagramReceived(resp, gwA)
	s.DatagramReceived(resp, gwA)

	// Same content with different bytes after the name terminator.
	padded := append([]byte(nil), resp...)
	padded[6+8+2+22+29] = 'x'
	s.DatagramReceived(padded, gwA)

	assert.Equal(t, 1, s.Len(), "duplicates were kept")

	// The same response from a different sender is a different record.
	s.DatagramReceived(resp, gwB)
	assert.Equal(t, 2, s.Len())
}

func TestSearchIgnoresBadDatagrams(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewSearch(zap.New(core), nil, group)
	ch := newFakeChannel(clock.NewFake(testEpoch), noPeer)
	s.ConnectionMade(ch)

	empty, err := knxnet.EncodeSearchResponse(&knxnet.SearchResponse{Control: knxnet.UDPEndpoint(gwA)})
	require.NoError(t, err)

	s.DatagramReceived([]byte{0xde, 0xad, 0xbe, 0xef}, gwA)
	s.DatagramReceived(ch.sent[0].data, ch.local) // our own request looped back
	s.DatagramReceived(empty, gwA)
	s.DatagramReceived(searchResponse(t, gwA, "Router A", 1), gwA)

	require.Equal(t, 1, s.Len())
	assert.Equal(t, 2, logs.FilterMessage("Ignoring datagram").Len())
	assert.Equal(t, 1, logs.FilterMessage("Ignoring empty search response").Len())
}

func TestSearchSurvivesDecoderFault(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewSearch(zap.New(core), panicCodec{}, group)
	ch := newFakeChannel(clock.NewFake(testEpoch), noPeer)
	s.ConnectionMade(ch)

	assert.NotPanics(t, func() { s.DatagramReceived(searchResponse(t, gwA, "Router A", 1), gwA) })

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, logs.FilterMessage("Search response decoder fault").Len())
	assert.False(t, ch.closed, "decoder fault closed the channel")
}

func TestSearchSendFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewSearch(zap.New(core), nil, group)
	ch := newFakeChannel(clock.NewFake(testEpoch), noPeer)
	ch.sendErr = errors.New("network is unreachable")

	select {
	case <-s.Failed():
		t.Fatal("failed before opening")
	default:
	}

	s.ConnectionMade(ch)

	assert.Equal(t, 1, logs.FilterMessage("Failed to send search request").Len())
	select {
	case <-s.Failed():
	default:
		t.Fatal("Failed() not closed after the send error")
	}
	assert.ErrorIs(t, s.Err(), ErrSearchFailed)
	assert.ErrorIs(t, s.Err(), ch.sendErr)
}

func TestSearchKeepsRecordsAfterConnectionLost(t *testing.T) {
	s := NewSearch(nil, nil, group)
	s.ConnectionMade(newFakeChannel(clock.NewFake(testEpoch), noPeer))
	s.DatagramReceived(searchResponse(t, gwA, "Router A", 1), gwA)

	s.ConnectionLost(nil)

	assert.Equal(t, 1, s.Len())
	assert.NoError(t, s.Err())
}
