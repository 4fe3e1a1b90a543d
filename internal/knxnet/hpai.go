package knxnet

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// HPAI constants
const (
	HPAISize = 0x08

	ProtocolUDP HostProtocol = 0x01
	ProtocolTCP HostProtocol = 0x02
)

// HostProtocol is the transport code carried in an HPAI.
type HostProtocol byte

func (p HostProtocol) String() string {
	switch p {
	case ProtocolUDP:
		return "UDP"
	case ProtocolTCP:
		return "TCP"
	default:
		return fmt.Sprintf("0x%02x", byte(p))
	}
}

// HPAI is a host protocol address information block: an IPv4 endpoint and
// the transport it is reachable over.
type HPAI struct {
	Protocol HostProtocol
	Endpoint netip.AddrPort
}

// UDPEndpoint returns the HPAI advertising ap over UDP.
func UDPEndpoint(ap netip.AddrPort) HPAI {
	return HPAI{Protocol: ProtocolUDP, Endpoint: ap}
}

func (h HPAI) String() string {
	return fmt.Sprintf("%s/%s", h.Endpoint, h.Protocol)
}

func parseHPAI(data []byte) (HPAI, []byte, error) {
	if len(data) < HPAISize {
		return HPAI{}, nil, formatErrorf(KindTruncated, "HPAI needs %d bytes, %d left", HPAISize, len(data))
	}
	if data[0] != HPAISize {
		return HPAI{}, nil, formatErrorf(KindStructure, "HPAI length 0x%02x (expected 0x%02x)", data[0], HPAISize)
	}
	addr := netip.AddrFrom4([4]byte(data[2:6]))
	port := binary.BigEndian.Uint16(data[6:8])
	return HPAI{
		Protocol: HostProtocol(data[1]),
		Endpoint: netip.AddrPortFrom(addr, port),
	}, data[HPAISize:], nil
}

func appendHPAI(b []byte, h HPAI) ([]byte, error) {
	addr := h.Endpoint.Addr().Unmap()
	if !addr.Is4() {
		if h.Endpoint.IsValid() {
			return nil, formatErrorf(KindEncoding, "HPAI endpoint %s is not IPv4", h.Endpoint)
		}
		// An unset endpoint is sent as 0.0.0.0:0 (route back).
		addr = netip.IPv4Unspecified()
	}
	proto := h.Protocol
	if proto == 0 {
		proto = ProtocolUDP
	}
	ip := addr.As4()
	b = append(b, HPAISize, byte(proto))
	b = append(b, ip[:]...)
	return binary.BigEndian.AppendUint16(b, h.Endpoint.Port()), nil
}
