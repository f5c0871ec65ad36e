package codec

import (
	"bytes"
	"encoding/binary"
)

// Signature is the marker that starts every GFXAPILOG header
const Signature = "GFXAPILOG"

const (
	// HeaderSize is the size of the header including its tail padding
	HeaderSize = 48
	// MaxDataSize is the largest data region accepted as real
	MaxDataSize = 5_000_000
	// MinVersion is the oldest decodable format
	MinVersion = 2
	// TimestampVersion is the first format with per-record timestamps
	TimestampVersion = 3
)

// Header field offsets
const (
	headerOffsetSignature       = 0
	headerOffsetVersion         = 10
	headerOffsetThreadID        = 12
	headerOffsetLastWrittenTime = 16
	headerOffsetWriteIndex      = 24
	headerOffsetCommittedIndex  = 28
	headerOffsetCaptureID       = 32
	headerOffsetDataSize        = 40
	signatureLen                = 10
)

// fileTimeUnixEpochUs is 1970-01-01 expressed in microseconds since 1601-01-01
const fileTimeUnixEpochUs = 11_644_473_600_000_000

// Header is the fixed prefix of one GFXAPILOG ring buffer
type Header struct {
	Signature       [signatureLen]byte
	Version         uint16
	ThreadID        uint32
	LastWrittenTime uint64 // FILETIME ticks for version 2, Unix microseconds after
	WriteIndex      uint32 // informational, not used for decoding
	CommittedIndex  uint32 // oldest surviving byte of the ring
	CaptureID       uint64
	DataSize        uint32
}

// ParseHeader reads a header from the start of buf. It does not validate it.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, newDecodeError(KindTruncatedHeader,
			"header truncated: need %d bytes, %d available", HeaderSize, len(buf))
	}

	h := &Header{}
	copy(h.Signature[:], buf[headerOffsetSignature:headerOffsetSignature+signatureLen])
	h.Version = ReadUint16(buf, headerOffsetVersion)
	h.ThreadID = ReadUint32(buf, headerOffsetThreadID)
	h.LastWrittenTime = ReadUint64(buf, headerOffsetLastWrittenTime)
	h.WriteIndex = ReadUint32(buf, headerOffsetWriteIndex)
	h.CommittedIndex = ReadUint32(buf, headerOffsetCommittedIndex)
	h.CaptureID = ReadUint64(buf, headerOffsetCaptureID)
	h.DataSize = ReadUint32(buf, headerOffsetDataSize)

	return h, nil
}

// Validate checks the header in a fixed order and reports the first problem
func (h *Header) Validate() error {
	return h.ValidateLimit(MaxDataSize)
}

// ValidateLimit is Validate with a caller chosen data size ceiling
func (h *Header) ValidateLimit(maxDataSize uint32) error {
	if !h.HasSignature() {
		return newDecodeError(KindSignatureMismatch, "signature doesn't match")
	}

	if h.Version < MinVersion {
		return newDecodeError(KindUnsupportedVersion,
			"only version %d or later of the graphics API logs can be decoded, but the dump uses version %d",
			MinVersion, h.Version)
	}

	if h.DataSize > maxDataSize {
		return newDecodeError(KindImplausibleSize,
			"data size %d is larger than %d bytes, likely garbage or corrupted data", h.DataSize, maxDataSize)
	}

	if h.CommittedIndex >= h.DataSize {
		return newDecodeError(KindImplausibleIndex,
			"committed index %d is not inside the %d byte buffer, likely garbage or corrupted data",
			h.CommittedIndex, h.DataSize)
	}

	return nil
}

// HasSignature reports whether the signature bytes are the marker followed
// by a NUL reserved byte
func (h *Header) HasSignature() bool {
	return bytes.Equal(h.Signature[:len(Signature)], []byte(Signature)) && h.Signature[len(Signature)] == 0
}

// HasRecordTimestamps reports whether records carry a timestamp prefix
func (h *Header) HasRecordTimestamps() bool {
	return h.Version >= TimestampVersion
}

// UnixMicros returns the time of the last write in microseconds since the
// Unix epoch
func (h *Header) UnixMicros() uint64 {
	if h.Version == MinVersion {
		return FileTimeToUnixMicros(h.LastWrittenTime)
	}
	return h.LastWrittenTime
}

// FileTimeToUnixMicros converts 100ns ticks since 1601-01-01 to microseconds
// since 1970-01-01, clamping anything before the Unix epoch to 0
func FileTimeToUnixMicros(ticks uint64) uint64 {
	us := ticks / 10
	if us <= fileTimeUnixEpochUs {
		return 0
	}
	return us - fileTimeUnixEpochUs
}

// MarshalBinary encodes the header in its wire layout. Crash dumps are never
// written by this package; the encoder exists to build fixtures.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)

	copy(buf[headerOffsetSignature:], h.Signature[:])
	binary.LittleEndian.PutUint16(buf[headerOffsetVersion:], h.Version)
	binary.LittleEndian.PutUint32(buf[headerOffsetThreadID:], h.ThreadID)
	binary.LittleEndian.PutUint64(buf[headerOffsetLastWrittenTime:], h.LastWrittenTime)
	binary.LittleEndian.PutUint32(buf[headerOffsetWriteIndex:], h.WriteIndex)
	binary.LittleEndian.PutUint32(buf[headerOffsetCommittedIndex:], h.CommittedIndex)
	binary.LittleEndian.PutUint64(buf[headerOffsetCaptureID:], h.CaptureID)
	binary.LittleEndian.PutUint32(buf[headerOffsetDataSize:], h.DataSize)

	return buf, nil
}

// NewHeader returns a header with the signature filled in
func NewHeader(version uint16) *Header {
	h := &Header{Version: version}
	copy(h.Signature[:], Signature)
	return h
}
