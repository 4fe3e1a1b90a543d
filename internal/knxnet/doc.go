// Package knxnet implements the KNXnet/IP core messages used to find and
// identify gateways on a local network.
//
// Only the four discovery services are covered. Tunnelling, routing and
// device management frames are out of scope.
//
// # Frame Layout
//
// Every KNXnet/IP frame starts with a fixed six byte header:
//   - Header length: 0x06
//   - Protocol version: 0x10
//   - Service type: 2 bytes (big-endian)
//   - Total length: 2 bytes (big-endian), header included
//
// The body is a sequence of structures that each begin with their own length
// byte. Endpoints are carried in an HPAI (host protocol address information),
// and device properties in DIBs (description information blocks).
//
// # Services
//
//   - SEARCH_REQUEST (0x0201): HPAI of the discovery endpoint
//   - SEARCH_RESPONSE (0x0202): control endpoint HPAI, DEVICE_INFO DIB,
//     SUPP_SVC_FAMILIES DIB
//   - DESCRIPTION_REQUEST (0x0203): HPAI of the control endpoint
//   - DESCRIPTION_RESPONSE (0x0204): DEVICE_INFO DIB, SUPP_SVC_FAMILIES DIB,
//     optional further DIBs
//
// # Usage Example
//
//	var codec knxnet.Codec = knxnet.DefaultCodec{}
//
//	req, err := codec.EncodeSearchRequest(local)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := codec.DecodeSearchResponse(datagram)
//	switch {
//	case errors.Is(err, knxnet.ErrInvalidFormat):
//	    // not a search response, ignore it
//	case resp.Empty():
//	    // well formed but carries no device
//	default:
//	    fmt.Println(resp.Device.Name)
//	}
package knxnet
