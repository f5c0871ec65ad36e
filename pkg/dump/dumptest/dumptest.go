// Package dumptest builds synthetic dumps containing GFXAPILOG buffers for
// tests.
package dumptest

import (
	"fmt"

	"github.com/ssargent/gfxlog/pkg/codec"
)

// Ring describes one ring buffer as the writer would have left it
type Ring struct {
	Version         uint16
	ThreadID        uint32
	LastWrittenTime uint64
	CaptureID       uint64
	Commands        []codec.Command // oldest first

	// Capacity is the data region size. Zero sizes the ring to fit the
	// commands exactly; any extra space holds zero bytes older than the
	// first command.
	Capacity int
	// Committed is the writer's next write position. The ring is rotated so
	// that unwrapping at Committed yields the commands in order.
	Committed uint32
}

// Linear returns the unwrapped ring contents
func (r Ring) Linear() []byte {
	var records []byte
	for _, c := range r.Commands {
		records = append(records, codec.EncodeCommand(c, r.Version)...)
	}

	capacity := r.Capacity
	if capacity == 0 {
		capacity = len(records)
	}
	if capacity < len(records) {
		panic(fmt.Sprintf("dumptest: %d bytes of records exceed capacity %d", len(records), capacity))
	}

	linear := make([]byte, capacity)
	copy(linear[capacity-len(records):], records)
	return linear
}

// Data returns the physical data region
func (r Ring) Data() []byte {
	linear := r.Linear()
	if int(r.Committed) > len(linear) {
		panic(fmt.Sprintf("dumptest: committed %d outside ring of %d bytes", r.Committed, len(linear)))
	}
	split := len(linear) - int(r.Committed)
	return append(append([]byte{}, linear[split:]...), linear[:split]...)
}

// Header returns the header describing the ring
func (r Ring) Header() *codec.Header {
	data := r.Data()
	h := codec.NewHeader(r.Version)
	h.ThreadID = r.ThreadID
	h.LastWrittenTime = r.LastWrittenTime
	h.WriteIndex = r.Committed
	h.CommittedIndex = r.Committed
	h.CaptureID = r.CaptureID
	h.DataSize = uint32(len(data))
	return h
}

// Bytes returns the header followed by the data region
func (r Ring) Bytes() []byte {
	return Raw(r.Header(), r.Data())
}

// Raw encodes h followed by data without checking that they agree
func Raw(h *codec.Header, data []byte) []byte {
	hdr, err := h.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return append(hdr, data...)
}

// Dump concatenates parts into one memory image
func Dump(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Commands returns n distinct commands for the given version
func Commands(n int, version uint16) []codec.Command {
	cmds := make([]codec.Command, n)
	for i := range cmds {
		data := []byte(fmt.Sprintf("command-%03d", i))
		cmds[i] = codec.Command{
			Opcode:       uint32(20000 + i),
			OriginalSize: uint32(len(data)),
			Data:         data,
		}
		if version >= codec.TimestampVersion {
			cmds[i].Timestamp = uint64(1_700_000_000_000_000 + i*1000)
		}
	}
	return cmds
}
