package knxnet

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat matches every decoding failure through errors.Is.
var ErrInvalidFormat = errors.New("invalid KNXnet/IP frame")

// ErrorKind is the category of a decoding failure.
type ErrorKind int

const (
	// KindTruncated means the datagram ended before a structure was complete.
	KindTruncated ErrorKind = iota
	// KindHeader means the header length or protocol version is wrong.
	KindHeader
	// KindServiceType means the frame carries a different service.
	KindServiceType
	// KindLength means the declared total length disagrees with the datagram.
	KindLength
	// KindStructure means an HPAI or DIB is malformed.
	KindStructure
	// KindEncoding is returned by the encoders for values that cannot be put on the wire.
	KindEncoding
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTruncated:
		return "truncated frame"
	case KindHeader:
		return "bad header"
	case KindServiceType:
		return "unexpected service type"
	case KindLength:
		return "length mismatch"
	case KindStructure:
		return "malformed structure"
	case KindEncoding:
		return "unencodable value"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// FormatError describes why a frame could not be decoded or encoded.
type FormatError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrInvalidFormat so callers need not know the concrete type.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

func formatErrorf(kind ErrorKind, format string, args ...any) error {
	return &FormatError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a FormatError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
