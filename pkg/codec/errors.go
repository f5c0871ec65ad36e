package codec

import "fmt"

// ErrorKind classifies why a candidate buffer or record could not be decoded
type ErrorKind int

const (
	// KindSignatureMismatch means the header bytes do not carry the marker
	KindSignatureMismatch ErrorKind = iota + 1
	// KindUnsupportedVersion means the format predates decodable logs
	KindUnsupportedVersion
	// KindImplausibleSize means DataSize is above the sanity ceiling
	KindImplausibleSize
	// KindImplausibleIndex means CommittedIndex lies outside the data region
	KindImplausibleIndex
	// KindTruncatedHeader means the source ends inside the header
	KindTruncatedHeader
	// KindTruncatedData means the source ends inside the data region
	KindTruncatedData
	// KindShortRecord means a framed payload cannot hold the record prefix
	KindShortRecord
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindSignatureMismatch:
		return "signature_mismatch"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindImplausibleSize:
		return "implausible_size"
	case KindImplausibleIndex:
		return "implausible_index"
	case KindTruncatedHeader:
		return "truncated_header"
	case KindTruncatedData:
		return "truncated_data"
	case KindShortRecord:
		return "short_record"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind := KindSignatureMismatch; kind <= KindShortRecord; kind++ {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// Errors
var (
	ErrSignatureMismatch  = &DecodeError{Kind: KindSignatureMismatch, Message: "signature doesn't match"}
	ErrUnsupportedVersion = &DecodeError{Kind: KindUnsupportedVersion, Message: "unsupported log version"}
	ErrImplausibleSize    = &DecodeError{Kind: KindImplausibleSize, Message: "implausible data size"}
	ErrImplausibleIndex   = &DecodeError{Kind: KindImplausibleIndex, Message: "implausible committed index"}
	ErrTruncatedHeader    = &DecodeError{Kind: KindTruncatedHeader, Message: "header truncated"}
	ErrTruncatedData      = &DecodeError{Kind: KindTruncatedData, Message: "data region truncated"}
	ErrShortRecord        = &DecodeError{Kind: KindShortRecord, Message: "record shorter than its prefix"}
)

// DecodeError describes a rejected header or record. Offset is the position
// of the signature in the source when known, -1 otherwise.
type DecodeError struct {
	Kind    ErrorKind `json:"kind"`
	Offset  int64     `json:"offset"`
	Message string    `json:"message"`
}

func (e *DecodeError) Error() string {
	return e.Message
}

// Is matches any DecodeError of the same kind, so callers can compare
// against the package sentinels.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithOffset returns a copy of e positioned at off
func (e *DecodeError) WithOffset(off int64) *DecodeError {
	c := *e
	c.Offset = off
	return &c
}

func newDecodeError(kind ErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Offset: -1, Message: fmt.Sprintf(format, args...)}
}
