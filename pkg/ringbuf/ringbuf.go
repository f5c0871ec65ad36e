// Package ringbuf turns the data region of a GFXAPILOG buffer back into the
// commands it held, oldest first.
package ringbuf

import (
	"fmt"
	"slices"

	"github.com/ssargent/gfxlog/pkg/codec"
)

// Unwrap returns the ring contents in logical order: data[committed:]
// followed by data[:committed]. The result is a new slice of len(data)
// bytes; data is not modified.
func Unwrap(data []byte, committed uint32) []byte {
	if int(committed) > len(data) {
		panic(fmt.Sprintf("ringbuf: committed index %d outside %d byte ring", committed, len(data)))
	}

	buf := make([]byte, len(data))
	n := copy(buf, data[committed:])
	copy(buf[n:], data[:committed])
	return buf
}

// Framer walks an unwrapped ring from its end toward its start, yielding one
// command per trailer-framed record. Only the end of the ring is known to be
// sound after a crash, so records are found newest first.
type Framer struct {
	buf     []byte
	version uint16
	cursor  int
	cmd     codec.Command
	err     error
	done    bool
}

// NewFramer creates a framer over buf for the given format version
func NewFramer(buf []byte, version uint16) *Framer {
	return &Framer{
		buf:     buf,
		version: version,
		cursor:  len(buf),
	}
}

// Next advances to the previous record. It returns false once no further
// record can be recovered.
func (f *Framer) Next() bool {
	if f.done || f.cursor < codec.TrailerSize {
		f.done = true
		return false
	}

	i := f.cursor - codec.TrailerSize
	size := codec.ReadUint32(f.buf, i)
	if size == 0 || uint64(size) > uint64(i) {
		// Start of the buffer, or where the writer already wrapped over
		// older records.
		f.done = true
		return false
	}

	start := i - int(size)
	cmd, err := codec.DecodeCommand(f.buf[start:i], f.version)
	if err != nil {
		f.err = err
		f.done = true
		return false
	}

	f.cmd = cmd
	f.cursor = start
	return true
}

// Command returns the record found by the last successful Next
func (f *Framer) Command() codec.Command {
	return f.cmd
}

// Err returns the reason framing stopped early, if any. A nil error after
// Next returns false means an ordinary boundary was reached.
func (f *Framer) Err() error {
	return f.err
}

// Boundary returns the offset of the oldest byte consumed so far. Bytes
// before it were not attributed to any record.
func (f *Framer) Boundary() int {
	return f.cursor
}

// Result is the outcome of framing a whole ring
type Result struct {
	Commands []codec.Command // oldest first
	Unframed int             // leading bytes not attributed to any record
	Stop     error           // why framing ended early, nil at an ordinary boundary
}

// FrameAll frames every recoverable record in buf
func FrameAll(buf []byte, version uint16) Result {
	f := NewFramer(buf, version)

	var cmds []codec.Command
	for f.Next() {
		cmds = append(cmds, f.Command())
	}

	slices.Reverse(cmds)
	return Result{Commands: cmds, Unframed: f.Boundary(), Stop: f.Err()}
}
