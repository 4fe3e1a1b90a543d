package knxnet

import (
	"fmt"
	"net/netip"
	"strings"
)

// Message is a decoded discovery frame.
type Message interface {
	Service() ServiceType
	String() string
}

// SearchRequest asks every gateway on the multicast group to answer to Discovery.
type SearchRequest struct {
	Discovery HPAI
}

func (m *SearchRequest) Service() ServiceType { return ServiceSearchRequest }

func (m *SearchRequest) String() string {
	return fmt.Sprintf("SearchRequest{discovery=%s}", m.Discovery)
}

// SearchResponse is a gateway's answer to a SearchRequest.
type SearchResponse struct {
	Control  HPAI
	Device   *DeviceInfo
	Families []ServiceFamily
	Extra    []DIB
}

func (m *SearchResponse) Service() ServiceType { return ServiceSearchResponse }

func (m *SearchResponse) String() string {
	return fmt.Sprintf("SearchResponse{control=%s, %s}", m.Control, describeDevice(m.Device, m.Families))
}

// Empty reports whether the response carries no device information.
func (m *SearchResponse) Empty() bool {
	return m == nil || m.Device == nil
}

// Fingerprint returns a canonical encoding of the parsed response. Two
// responses with equal content have equal fingerprints even when their raw
// datagrams differed.
func (m *SearchResponse) Fingerprint() string {
	b, err := appendHPAI(nil, m.Control)
	if err == nil {
		b, err = m.dibs().appendBody(b)
	}
	if err != nil {
		return fmt.Sprintf("%+v", *m)
	}
	return string(b)
}

func (m *SearchResponse) dibs() dibSet {
	return dibSet{device: m.Device, families: m.Families, extra: m.Extra}
}

// DescriptionRequest asks a single gateway to describe itself.
type DescriptionRequest struct {
	Control HPAI
}

func (m *DescriptionRequest) Service() ServiceType { return ServiceDescriptionRequest }

func (m *DescriptionRequest) String() string {
	return fmt.Sprintf("DescriptionRequest{control=%s}", m.Control)
}

// DescriptionResponse is a gateway's self description.
type DescriptionResponse struct {
	Device   *DeviceInfo
	Families []ServiceFamily
	Extra    []DIB
}

func (m *DescriptionResponse) Service() ServiceType { return ServiceDescriptionResponse }

func (m *DescriptionResponse) String() string {
	return fmt.Sprintf("DescriptionResponse{%s, extra_dibs=%d}", describeDevice(m.Device, m.Families), len(m.Extra))
}

// Empty reports whether the response carries no device information.
func (m *DescriptionResponse) Empty() bool {
	return m == nil || m.Device == nil
}

// Supports reports whether the gateway announced the given service family.
func (m *DescriptionResponse) Supports(id FamilyID) bool {
	for _, f := range m.Families {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (m *DescriptionResponse) dibs() dibSet {
	return dibSet{device: m.Device, families: m.Families, extra: m.Extra}
}

func describeDevice(d *DeviceInfo, families []ServiceFamily) string {
	if d == nil {
		return "no device"
	}
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.String()
	}
	return fmt.Sprintf("name=%q, address=%s, medium=%s, serial=%s, families=[%s]",
		d.Name, d.Address, d.Medium, d.Serial, strings.Join(names, ", "))
}

// EncodeSearchRequest builds a SEARCH_REQUEST whose discovery HPAI is local.
func EncodeSearchRequest(local netip.AddrPort) ([]byte, error) {
	body, err := appendHPAI(make([]byte, 0, HPAISize), UDPEndpoint(local))
	if err != nil {
		return nil, err
	}
	return frame(ServiceSearchRequest, body)
}

// DecodeSearchRequest parses a SEARCH_REQUEST.
func DecodeSearchRequest(data []byte) (*SearchRequest, error) {
	body, err := expectService(data, ServiceSearchRequest)
	if err != nil {
		return nil, err
	}
	hpai, rest, err := parseHPAI(body)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, formatErrorf(KindLength, "%d trailing bytes after HPAI", len(rest))
	}
	return &SearchRequest{Discovery: hpai}, nil
}

// EncodeSearchResponse builds a SEARCH_RESPONSE.
func EncodeSearchResponse(m *SearchResponse) ([]byte, error) {
	body, err := appendHPAI(nil, m.Control)
	if err != nil {
		return nil, err
	}
	if body, err = m.dibs().appendBody(body); err != nil {
		return nil, err
	}
	return frame(ServiceSearchResponse, body)
}

// DecodeSearchResponse parses a SEARCH_RESPONSE. A well formed frame without
// a DEVICE_INFO block decodes to an Empty response and a nil error.
func DecodeSearchResponse(data []byte) (*SearchResponse, error) {
	body, err := expectService(data, ServiceSearchResponse)
	if err != nil {
		return nil, err
	}
	hpai, rest, err := parseHPAI(body)
	if err != nil {
		return nil, err
	}
	set, err := parseDIBs(rest)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Control:  hpai,
		Device:   set.device,
		Families: set.families,
		Extra:    set.extra,
	}, nil
}

// EncodeDescriptionRequest builds a DESCRIPTION_REQUEST whose control HPAI is local.
func EncodeDescriptionRequest(local netip.AddrPort) ([]byte, error) {
	body, err := appendHPAI(make([]byte, 0, HPAISize), UDPEndpoint(local))
	if err != nil {
		return nil, err
	}
	return frame(ServiceDescriptionRequest, body)
}

// DecodeDescriptionRequest parses a DESCRIPTION_REQUEST.
func DecodeDescriptionRequest(data []byte) (*DescriptionRequest, error) {
	body, err := expectService(data, ServiceDescriptionRequest)
	if err != nil {
		return nil, err
	}
	hpai, rest, err := parseHPAI(body)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, formatErrorf(KindLength, "%d trailing bytes after HPAI", len(rest))
	}
	return &DescriptionRequest{Control: hpai}, nil
}

// EncodeDescriptionResponse builds a DESCRIPTION_RESPONSE.
func EncodeDescriptionResponse(m *DescriptionResponse) ([]byte, error) {
	body, err := m.dibs().appendBody(nil)
	if err != nil {
		return nil, err
	}
	return frame(ServiceDescriptionResponse, body)
}

// DecodeDescriptionResponse parses a DESCRIPTION_RESPONSE. A well formed frame
// without a DEVICE_INFO block decodes to an Empty response and a nil error.
func DecodeDescriptionResponse(data []byte) (*DescriptionResponse, error) {
	body, err := expectService(data, ServiceDescriptionResponse)
	if err != nil {
		return nil, err
	}
	set, err := parseDIBs(body)
	if err != nil {
		return nil, err
	}
	return &DescriptionResponse{
		Device:   set.device,
		Families: set.families,
		Extra:    set.extra,
	}, nil
}

// Decode parses any of the four discovery frames.
func Decode(data []byte) (Message, error) {
	h, _, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	switch h.Service {
	case ServiceSearchRequest:
		return DecodeSearchRequest(data)
	case ServiceSearchResponse:
		return DecodeSearchResponse(data)
	case ServiceDescriptionRequest:
		return DecodeDescriptionRequest(data)
	case ServiceDescriptionResponse:
		return DecodeDescriptionResponse(data)
	default:
		return nil, formatErrorf(KindServiceType, "unsupported service %s", h.Service)
	}
}
