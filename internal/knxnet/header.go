package knxnet

import (
	"encoding/binary"
	"fmt"
)

// Header constants
const (
	HeaderSize      = 0x06
	ProtocolVersion = 0x10
)

// ServiceType identifies the KNXnet/IP service carried by a frame.
type ServiceType uint16

// Core discovery services
const (
	ServiceSearchRequest       ServiceType = 0x0201
	ServiceSearchResponse      ServiceType = 0x0202
	ServiceDescriptionRequest  ServiceType = 0x0203
	ServiceDescriptionResponse ServiceType = 0x0204
)

func (s ServiceType) String() string {
	switch s {
	case ServiceSearchRequest:
		return "SEARCH_REQUEST"
	case ServiceSearchResponse:
		return "SEARCH_RESPONSE"
	case ServiceDescriptionRequest:
		return "DESCRIPTION_REQUEST"
	case ServiceDescriptionResponse:
		return "DESCRIPTION_RESPONSE"
	default:
		return fmt.Sprintf("0x%04x", uint16(s))
	}
}

// Header is the fixed frame header.
type Header struct {
	Service     ServiceType
	TotalLength uint16
}

// ParseHeader validates the header of data and returns it with the body.
// The declared total length must match len(data) exactly.
func ParseHeader(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, formatErrorf(KindTruncated, "too short: %d bytes (minimum %d)", len(data), HeaderSize)
	}
	if data[0] != HeaderSize {
		return Header{}, nil, formatErrorf(KindHeader, "header length 0x%02x (expected 0x%02x)", data[0], HeaderSize)
	}
	if data[1] != ProtocolVersion {
		return Header{}, nil, formatErrorf(KindHeader, "protocol version 0x%02x (expected 0x%02x)", data[1], ProtocolVersion)
	}

	h := Header{
		Service:     ServiceType(binary.BigEndian.Uint16(data[2:4])),
		TotalLength: binary.BigEndian.Uint16(data[4:6]),
	}
	if int(h.TotalLength) != len(data) {
		return Header{}, nil, formatErrorf(KindLength, "declared %d bytes, received %d", h.TotalLength, len(data))
	}
	return h, data[HeaderSize:], nil
}

// expectService parses the header and checks its service type.
func expectService(data []byte, want ServiceType) ([]byte, error) {
	h, body, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Service != want {
		return nil, formatErrorf(KindServiceType, "got %s, want %s", h.Service, want)
	}
	return body, nil
}

// frame prepends a header to body.
func frame(service ServiceType, body []byte) ([]byte, error) {
	total := HeaderSize + len(body)
	if total > 0xFFFF {
		return nil, formatErrorf(KindEncoding, "frame of %d bytes exceeds 65535", total)
	}
	out := make([]byte, HeaderSize, total)
	out[0] = HeaderSize
	out[1] = ProtocolVersion
	binary.BigEndian.PutUint16(out[2:4], uint16(service))
	binary.BigEndian.PutUint16(out[4:6], uint16(total))
	return append(out, body...), nil
}
