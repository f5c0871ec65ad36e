// Package dump finds GFXAPILOG buffers in crash dump memory and decodes each
// one into a Stream.
package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ssargent/gfxlog/pkg/codec"
	"github.com/ssargent/gfxlog/pkg/metrics"
	"github.com/ssargent/gfxlog/pkg/ringbuf"
)

const (
	// DefaultChunkSize is how much of the source is searched per read
	DefaultChunkSize = 4 << 20
	// DefaultWorkers decodes candidates one at a time
	DefaultWorkers = 1

	minChunkSize = 4 * len(codec.Signature)
)

// ScannerConfig holds configuration for a Scanner
type ScannerConfig struct {
	Workers     int              // Concurrent candidate decoders
	ChunkSize   int              // Bytes read per signature search step
	MaxDataSize uint32           // Largest plausible data region, 0 for codec.MaxDataSize
	Logger      *slog.Logger     // Defaults to slog.Default()
	Metrics     *metrics.Metrics // Optional
}

// Scanner locates and decodes every GFXAPILOG buffer in a Source
type Scanner struct {
	src    Source
	config ScannerConfig
	logger *slog.Logger
}

// NewScanner creates a scanner over src
func NewScanner(src Source, config ScannerConfig) *Scanner {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkSize < minChunkSize {
		config.ChunkSize = minChunkSize
	}
	if config.MaxDataSize == 0 {
		config.MaxDataSize = codec.MaxDataSize
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		src:    src,
		config: config,
		logger: logger.With("component", "scanner"),
	}
}

// Offsets returns the position of every signature occurrence in the source,
// in ascending order. Each search resumes one byte past the previous hit, so
// occurrences inside an already matched buffer are reported too.
func (s *Scanner) Offsets(ctx context.Context) ([]int64, error) {
	sig := []byte(codec.Signature)
	size := s.src.Size()
	buf := make([]byte, s.config.ChunkSize)

	var offsets []int64
	for pos := int64(0); pos < size; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		want := int64(len(buf))
		if size-pos < want {
			want = size - pos
		}
		n, err := s.src.ReadAt(buf[:want], pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read dump at %d: %w", pos, err)
		}
		chunk := buf[:n]

		for from := 0; ; {
			idx := bytes.Index(chunk[from:], sig)
			if idx < 0 {
				break
			}
			offsets = append(offsets, pos+int64(from+idx))
			from += idx + 1
		}

		if int64(n) < want || pos+int64(n) >= size {
			break
		}
		// Overlap by one byte less than the signature so hits spanning
		// chunks are found exactly once.
		pos += int64(n - (len(sig) - 1))
	}

	return offsets, nil
}

// Scan decodes every candidate and returns one Stream per signature
// occurrence, ordered by offset. Rejected candidates become error streams;
// only source read failures and cancellation end the scan with an error.
func (s *Scanner) Scan(ctx context.Context) ([]Stream, error) {
	start := time.Now()

	offsets, err := s.Offsets(ctx)
	if err != nil {
		return nil, err
	}

	streams := make([]Stream, len(offsets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, off := range offsets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stream, err := s.DecodeAt(off)
			if err != nil {
				return err
			}
			streams[i] = stream
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	commands := 0
	for i := range streams {
		if streams[i].Failed() {
			failed++
		}
		commands += len(streams[i].Commands)
	}

	s.config.Metrics.RecordScan(time.Since(start))
	s.logger.Info("scan complete",
		"candidates", len(streams),
		"failed", failed,
		"commands", commands,
		"duration", time.Since(start))

	return streams, nil
}

// DecodeAt decodes the candidate whose signature starts at off. Problems
// with the candidate itself are reported in the returned Stream; the error
// is reserved for failures reading the source.
func (s *Scanner) DecodeAt(off int64) (Stream, error) {
	hdrBuf := make([]byte, codec.HeaderSize)
	n, err := s.src.ReadAt(hdrBuf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return Stream{}, fmt.Errorf("failed to read header at %d: %w", off, err)
	}

	header, err := codec.ParseHeader(hdrBuf[:n])
	if err != nil {
		return s.reject(off, err), nil
	}
	if err := header.ValidateLimit(s.config.MaxDataSize); err != nil {
		return s.reject(off, err), nil
	}

	data := make([]byte, header.DataSize)
	n, err = s.src.ReadAt(data, off+codec.HeaderSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return Stream{}, fmt.Errorf("failed to read data region at %d: %w", off+codec.HeaderSize, err)
	}
	if n < len(data) {
		return s.reject(off, &codec.DecodeError{
			Kind:    codec.KindTruncatedData,
			Message: fmt.Sprintf("data region truncated: header declares %d bytes, %d available", header.DataSize, n),
		}), nil
	}

	res := ringbuf.FrameAll(ringbuf.Unwrap(data, header.CommittedIndex), header.Version)
	if res.Stop != nil {
		s.logger.Debug("framing stopped early", "offset", off, "reason", res.Stop, "recovered", len(res.Commands))
	}

	stream := Stream{
		Offset:    off,
		Timestamp: header.UnixMicros(),
		ThreadID:  header.ThreadID,
		CaptureID: header.CaptureID,
		Version:   header.Version,
		Commands:  res.Commands,
		Unframed:  res.Unframed,
	}
	s.config.Metrics.RecordStream("ok", len(stream.Commands), stream.Unframed)
	return stream, nil
}

func (s *Scanner) reject(off int64, err error) Stream {
	var de *codec.DecodeError
	if !errors.As(err, &de) {
		de = &codec.DecodeError{Message: err.Error()}
	}

	s.logger.Debug("rejected candidate", "offset", off, "kind", de.Kind.String(), "reason", de.Message)
	s.config.Metrics.RecordStream(de.Kind.String(), 0, 0)
	return errorStream(off, de)
}

// ScanFile maps the dump at path and scans it
func ScanFile(ctx context.Context, path string, config ScannerConfig) ([]Stream, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewScanner(f, config).Scan(ctx)
}
