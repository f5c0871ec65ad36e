package codec

import (
	"encoding/binary"
	"fmt"
)

// ReadUint16 reads a little-endian uint16 at off.
func ReadUint16(buf []byte, off int) uint16 {
	mustFit(buf, off, 2)
	return binary.LittleEndian.Uint16(buf[off:])
}

// ReadUint32 reads a little-endian uint32 at off.
func ReadUint32(buf []byte, off int) uint32 {
	mustFit(buf, off, 4)
	return binary.LittleEndian.Uint32(buf[off:])
}

// ReadUint64 reads a little-endian uint64 at off.
func ReadUint64(buf []byte, off int) uint64 {
	mustFit(buf, off, 8)
	return binary.LittleEndian.Uint64(buf[off:])
}

// mustFit panics when buf cannot hold width bytes at off. Every caller has
// already bounded the buffer, so a failure here is a bug, not bad input.
func mustFit(buf []byte, off, width int) {
	if off < 0 || off+width > len(buf) {
		panic(fmt.Sprintf("codec: read of %d bytes at offset %d overruns buffer of %d bytes", width, off, len(buf)))
	}
}
