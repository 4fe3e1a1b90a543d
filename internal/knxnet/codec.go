package knxnet

import "net/netip"

// Codec is the message codec the discovery exchanges depend on.
//
// Decoders return an error matching ErrInvalidFormat for frames they cannot
// parse. A parsed frame that carries no device is returned with a nil error
// and reports Empty.
type Codec interface {
	EncodeSearchRequest(local netip.AddrPort) ([]byte, error)
	DecodeSearchResponse(data []byte) (*SearchResponse, error)
	EncodeDescriptionRequest(local netip.AddrPort) ([]byte, error)
	DecodeDescriptionResponse(data []byte) (*DescriptionResponse, error)
}

// DefaultCodec implements Codec with the package level functions.
type DefaultCodec struct{}

func (DefaultCodec) EncodeSearchRequest(local netip.AddrPort) ([]byte, error) {
	return EncodeSearchRequest(local)
}

func (DefaultCodec) DecodeSearchResponse(data []byte) (*SearchResponse, error) {
	return DecodeSearchResponse(data)
}

func (DefaultCodec) EncodeDescriptionRequest(local netip.AddrPort) ([]byte, error) {
	return EncodeDescriptionRequest(local)
}

func (DefaultCodec) DecodeDescriptionResponse(data []byte) (*DescriptionResponse, error) {
	return DecodeDescriptionResponse(data)
}
