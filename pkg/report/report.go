// Package report renders decoded streams for people and tools.
//
// A report walks every stream in order, hands each command to an
// interp.Interpreter and writes the result. Interpreter failures are counted
// and reported inline; they never stop the report.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ssargent/gfxlog/pkg/codec"
	"github.com/ssargent/gfxlog/pkg/dump"
	"github.com/ssargent/gfxlog/pkg/interp"
	"github.com/ssargent/gfxlog/pkg/metrics"
)

const (
	// FormatText is the human readable layout
	FormatText = "text"
	// FormatJSON is a single JSON document
	FormatJSON = "json"

	// FlushHeaderSize is the part of a flush command's original size that
	// is not nested commands
	FlushHeaderSize = 36

	timeLayout = "2006-01-02 15:04:05.000000"
)

const interpretNote = `
NOTE: Commands are decoded with simplifying assumptions. Decoding errors are
almost certainly a limitation of the interpreter, NOT a sign of bad or
corrupted data.
`

// Options configure a Reporter
type Options struct {
	Format        string
	Interpreter   interp.Interpreter
	SubdecodeName string // opcode name that opens a nested batch, empty to disable
	Location      *time.Location
	Metrics       *metrics.Metrics
}

// Summary totals a rendered report
type Summary struct {
	Streams  int                    `json:"streams"`
	Commands int                    `json:"commands"`
	Errors   int                    `json:"errors"`
	Failures []*interp.CommandError `json:"-"`
}

// Reporter writes reports
type Reporter struct {
	opts Options
}

// New creates a reporter. A nil interpreter defaults to hex dumps.
func New(opts Options) (*Reporter, error) {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Format != FormatText && opts.Format != FormatJSON {
		return nil, fmt.Errorf("unknown report format %q", opts.Format)
	}
	if opts.Interpreter == nil {
		opts.Interpreter = interp.NewHexInterpreter(nil, 0)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Reporter{opts: opts}, nil
}

// Write renders streams to w in the configured format
func (r *Reporter) Write(w io.Writer, streams []dump.Stream) (Summary, error) {
	doc := r.build(streams)

	var err error
	switch r.opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	default:
		err = writeText(w, doc)
	}
	return doc.Summary, err
}

// Document is the rendered form of a set of streams
type Document struct {
	Streams []StreamReport `json:"streams"`
	Summary Summary        `json:"summary"`
}

// StreamReport is one rendered stream
type StreamReport struct {
	Index     int             `json:"index"`
	Offset    int64           `json:"offset"`
	Time      string          `json:"time"`
	ThreadID  uint32          `json:"thread_id"`
	CaptureID uint64          `json:"capture_id"`
	Version   uint16          `json:"version,omitempty"`
	Error     string          `json:"error,omitempty"`
	Unframed  int             `json:"unframed,omitempty"`
	Commands  []CommandReport `json:"commands,omitempty"`
}

// CommandReport is one rendered command
type CommandReport struct {
	Index        int    `json:"index"`
	Opcode       uint32 `json:"opcode"`
	Name         string `json:"name"`
	Timestamp    uint64 `json:"timestamp,omitempty"`
	OriginalSize uint32 `json:"original_size"`
	Text         string `json:"text,omitempty"`
	Error        string `json:"error,omitempty"`

	// Subdecode markers, in bytes of nested commands
	SubdecodeStart int  `json:"subdecode_start,omitempty"`
	SubdecodeEnd   bool `json:"subdecode_end,omitempty"`
}

func (r *Reporter) build(streams []dump.Stream) *Document {
	doc := &Document{Streams: make([]StreamReport, 0, len(streams))}

	for i := range streams {
		s := &streams[i]
		sr := StreamReport{
			Index:     i,
			Offset:    s.Offset,
			Time:      s.Time().In(r.opts.Location).Format(timeLayout),
			ThreadID:  s.ThreadID,
			CaptureID: s.CaptureID,
			Version:   s.Version,
			Unframed:  s.Unframed,
		}
		doc.Summary.Streams++

		if s.Failed() {
			sr.Error = s.Err.Message
			doc.Streams = append(doc.Streams, sr)
			continue
		}

		remaining := 0
		for j, cmd := range s.Commands {
			doc.Summary.Commands++
			cr := CommandReport{
				Index:        j,
				Opcode:       cmd.Opcode,
				Timestamp:    cmd.Timestamp,
				OriginalSize: cmd.OriginalSize,
			}

			res, err := interpret(r.opts.Interpreter, cmd)
			cr.Name = res.Name
			if cr.Name == "" {
				cr.Name = fmt.Sprintf("OP_%d", cmd.Opcode)
			}
			if err != nil {
				ce := &interp.CommandError{Stream: i, Command: j, Opcode: cmd.Opcode, Err: err}
				doc.Summary.Errors++
				doc.Summary.Failures = append(doc.Summary.Failures, ce)
				r.opts.Metrics.RecordInterpretError()
				cr.Error = err.Error()
			} else {
				cr.Text = res.Text
			}

			if remaining > 0 {
				// A nested command larger than what is left closes the batch
				remaining -= int(cmd.OriginalSize)
				if remaining <= 0 {
					remaining = 0
					cr.SubdecodeEnd = true
				}
			}
			if r.opts.SubdecodeName != "" && cr.Name == r.opts.SubdecodeName && int(cmd.OriginalSize) > FlushHeaderSize {
				// A flush inside an open batch closes it first
				if remaining > 0 {
					cr.SubdecodeEnd = true
				}
				remaining = int(cmd.OriginalSize) - FlushHeaderSize
				cr.SubdecodeStart = remaining
			}

			sr.Commands = append(sr.Commands, cr)
		}
		doc.Streams = append(doc.Streams, sr)
	}

	return doc
}

// interpret runs in and turns a panic into an error so one bad command
// cannot stop the report
func interpret(in interp.Interpreter, cmd codec.Command) (res interp.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = interp.Result{}
			err = fmt.Errorf("interpreter panic: %v", p)
		}
	}()
	return in.Interpret(cmd)
}

func writeText(w io.Writer, doc *Document) error {
	ew := &errWriter{w: w}

	for _, s := range doc.Streams {
		ew.printf("\n=======================================================\n")
		ew.printf("GfxApiLog command stream #%d at offset %d in dump\n", s.Index, s.Offset)
		ew.printf("  - Timestamp: %s\n", s.Time)
		ew.printf("  - Thread id: %d\n", s.ThreadID)
		ew.printf("  - Capture id: %d\n", s.CaptureID)

		if s.Error != "" {
			ew.printf("Could not decode stream. Error: %s\n", s.Error)
			continue
		}

		for _, c := range s.Commands {
			ew.printf("\n#%d %s\n", c.Index, c.Name)
			if c.Error != "" {
				ew.printf("Error decoding command #%d: %s\n", c.Index, c.Error)
			} else if c.Text != "" {
				ew.printf("%s", indent(c.Text))
			}
			if c.SubdecodeEnd {
				ew.printf("\n--- end of subdecode ---\n")
			}
			if c.SubdecodeStart > 0 {
				ew.printf("\n--- start of subdecode, size = %d bytes ---\n", c.SubdecodeStart)
			}
		}
	}

	ew.printf("\nDone: %d commands, %d errors\n", doc.Summary.Commands, doc.Summary.Errors)
	if doc.Summary.Errors > 0 {
		ew.printf("%s", interpretNote)
	}
	return ew.err
}

func indent(text string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString("    ")
		b.WriteString(l)
	}
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// errWriter keeps the first write error and drops later writes
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
