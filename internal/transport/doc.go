// Package transport provides the datagram channel the gateway exchanges run
// on.
//
// A channel owns one UDP socket and one event loop goroutine. The loop is
// the only goroutine that calls into the attached Handler: ConnectionMade
// first, then DatagramReceived for every accepted datagram and the callback
// of every timer armed with AfterFunc, one at a time and in arrival order,
// and ConnectionLost last, once the channel closed. Handlers therefore keep
// their state without locks.
//
// # Lifecycle
//
//	ch, err := transport.Open(ctx, transport.Options{Remote: gw}, handler)
//	if err != nil {
//	    return err
//	}
//	defer ch.Close()
//	<-ch.Done() // loop stopped, no more callbacks
//
// Close may be called from a handler callback. It releases the socket at
// once and the loop exits after the current callback returns. Timer events
// still queued are dropped; ConnectionLost still runs.
//
// # Peers
//
// A channel opened with a Remote endpoint drops datagrams from any other
// source, as a connected socket would, but SendTo still reaches arbitrary
// destinations. Opening with a multicast Group sets the outgoing interface,
// TTL and loopback for that group.
package transport
