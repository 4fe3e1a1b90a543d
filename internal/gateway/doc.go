// Package gateway finds KNXnet/IP gateways and asks them to describe
// themselves.
//
// Two exchanges are provided as transport handlers:
//
//   - Search multicasts a SEARCH_REQUEST when its channel opens and keeps
//     every distinct response that arrives while the channel stays open.
//   - Description sends a DESCRIPTION_REQUEST to one gateway and settles a
//     Future exactly once: with the parsed response, or with ErrTimeout,
//     ErrInvalidResponse or ErrDecodeFault.
//
// Scanner wires both to UDP channels for the common cases:
//
//	scanner := gateway.NewScanner()
//	records, err := scanner.Discover()
//	if err != nil {
//	    return err
//	}
//	for _, r := range records {
//	    desc, err := scanner.Describe(r.ControlEndpoint())
//	    ...
//	}
//
// Malformed or unsolicited datagrams never end an exchange early. Discovery
// logs and ignores them; a description resolves as a failure.
package gateway
