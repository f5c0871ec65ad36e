// Package interp defines how decoded commands are turned into readable text.
//
// Decoding stops at opcode, sizes and raw bytes. Rendering the meaning of a
// given opcode belongs to an Interpreter, which may fail on any single
// command without affecting the others.
package interp

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ssargent/gfxlog/pkg/codec"
)

// QueueFlushCommands names the command whose payload embeds a nested batch
// of commands logged right after it
const QueueFlushCommands = "OP_vkQueueFlushCommandsGOOGLE"

// Result is the rendering of one command
type Result struct {
	Name string // opcode name
	Text string // human readable body, may be empty
}

// Interpreter renders one command
type Interpreter interface {
	Interpret(cmd codec.Command) (Result, error)
}

// InterpreterFunc adapts a function to Interpreter
type InterpreterFunc func(cmd codec.Command) (Result, error)

// Interpret calls f(cmd)
func (f InterpreterFunc) Interpret(cmd codec.Command) (Result, error) {
	return f(cmd)
}

// CommandError records an Interpreter failure for one command
type CommandError struct {
	Stream  int
	Command int
	Opcode  uint32
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("stream %d command %d (opcode %d): %v", e.Stream, e.Command, e.Opcode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// OpcodeNames maps opcodes to their names
type OpcodeNames map[uint32]string

// DefaultOpcodeNames returns the opcodes the report needs to recognize
func DefaultOpcodeNames() OpcodeNames {
	return OpcodeNames{
		20340: QueueFlushCommands,
	}
}

// Name returns the name of op, or a placeholder built from its number
func (n OpcodeNames) Name(op uint32) string {
	if name, ok := n[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_%d", op)
}

// HexInterpreter names commands from a table and hex dumps their payload
type HexInterpreter struct {
	Names    OpcodeNames
	MaxBytes int // payload bytes shown, 0 for all
}

// NewHexInterpreter creates a hex interpreter
func NewHexInterpreter(names OpcodeNames, maxBytes int) *HexInterpreter {
	if names == nil {
		names = DefaultOpcodeNames()
	}
	return &HexInterpreter{Names: names, MaxBytes: maxBytes}
}

// Interpret implements Interpreter
func (h *HexInterpreter) Interpret(cmd codec.Command) (Result, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "opcode %d, original size %d, %d payload bytes", cmd.Opcode, cmd.OriginalSize, len(cmd.Data))
	if cmd.Timestamp != 0 {
		fmt.Fprintf(&b, ", timestamp %d", cmd.Timestamp)
	}
	b.WriteString("\n")

	data := cmd.Data
	if h.MaxBytes > 0 && len(data) > h.MaxBytes {
		data = data[:h.MaxBytes]
	}
	if len(data) > 0 {
		b.WriteString(hex.Dump(data))
	}
	if len(data) < len(cmd.Data) {
		fmt.Fprintf(&b, "... %d more bytes\n", len(cmd.Data)-len(data))
	}

	return Result{Name: h.Names.Name(cmd.Opcode), Text: b.String()}, nil
}
