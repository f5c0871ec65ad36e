// Package codec reads the GFXAPILOG wire format found in crash dumps.
//
// A GFXAPILOG buffer is a fixed header followed by a ring of trailer-framed
// command records. The writer lives in the graphics process and never
// changes its layout, so every field here is read at an explicit offset with
// an explicit width; nothing is decoded by overlaying Go structs on memory.
//
// # Header Format
//
// All integers are little-endian:
//
//	[Signature(10)][Version(2)][ThreadID(4)][LastWrittenTime(8)]
//	[WriteIndex(4)][CommittedIndex(4)][CaptureID(8)][DataSize(4)][pad(4)]
//
// The signature is the ASCII marker "GFXAPILOG" followed by one NUL byte.
// The trailing four bytes are the alignment padding of the writer's header
// struct; the data region starts at HeaderSize (48) and is DataSize bytes
// long.
//
// A header is usable when:
//   - Version is at least 2
//   - DataSize is at most MaxDataSize (5,000,000)
//   - CommittedIndex is smaller than DataSize
//
// # Record Format
//
// Inside the unwrapped data region each record is
//
//	[Payload][PayloadSize(4)]
//
// and the payload itself is
//
//	[TimestampUs(8), version >= 3 only][Opcode(4)][OriginalSize(4)][Data]
//
// OriginalSize is what the writer meant to log. It can be larger than Data
// when the writer clipped an oversized command, and readers must accept that.
//
// # Timestamps
//
// Version 2 headers store LastWrittenTime as Windows FILETIME ticks (100ns
// since 1601-01-01). Version 3 and later store microseconds since the Unix
// epoch in both the header and every record. Header.UnixMicros normalizes
// both to Unix microseconds.
//
// # Error Handling
//
// Validation failures are returned as *DecodeError values. Each carries a
// Kind and matches the corresponding sentinel with errors.Is:
//
//	if errors.Is(err, codec.ErrImplausibleSize) {
//	    // garbage hit, keep scanning
//	}
//
// The field readers (ReadUint16, ReadUint32, ReadUint64) panic on short
// buffers. Callers check lengths before reading.
package codec
