// Package archive keeps decoded streams on disk so they can be browsed after
// the dump they came from is gone.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/gfxlog/pkg/dump"
	"github.com/ssargent/gfxlog/pkg/metrics"
)

// ErrNotFound is returned for ids with no stored stream
var ErrNotFound = errors.New("stream not found")

var streamPrefix = []byte("stream/")

// Record is a stored stream with its bookkeeping
type Record struct {
	ID         ksuid.KSUID `json:"id"`
	Source     string      `json:"source"` // dump the stream was found in
	ArchivedAt time.Time   `json:"archived_at"`
	Stream     dump.Stream `json:"stream"`
}

// Summary describes a stored stream without its commands
type Summary struct {
	ID         ksuid.KSUID `json:"id"`
	Source     string      `json:"source"`
	ArchivedAt time.Time   `json:"archived_at"`
	Offset     int64       `json:"offset"`
	Timestamp  uint64      `json:"timestamp"`
	ThreadID   uint32      `json:"thread_id"`
	CaptureID  uint64      `json:"capture_id"`
	Commands   int         `json:"commands"`
	Error      string      `json:"error,omitempty"`
}

// Summarize drops the commands from r
func (r *Record) Summarize() Summary {
	s := Summary{
		ID:         r.ID,
		Source:     r.Source,
		ArchivedAt: r.ArchivedAt,
		Offset:     r.Stream.Offset,
		Timestamp:  r.Stream.Timestamp,
		ThreadID:   r.Stream.ThreadID,
		CaptureID:  r.Stream.CaptureID,
		Commands:   len(r.Stream.Commands),
	}
	if r.Stream.Err != nil {
		s.Error = r.Stream.Err.Message
	}
	return s
}

// Archive stores streams in a pebble database keyed by KSUID, so listing
// returns them in archive order at one second resolution
type Archive struct {
	db      *pebble.DB
	metrics *metrics.Metrics
}

// Open opens or creates the archive in dir
func Open(dir string, m *metrics.Metrics) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive at %s: %w", dir, err)
	}
	return &Archive{db: db, metrics: m}, nil
}

func streamKey(id ksuid.KSUID) []byte {
	return append(append([]byte{}, streamPrefix...), id.Bytes()...)
}

// Put stores each stream under a new id and returns the records written
func (a *Archive) Put(source string, streams []dump.Stream) ([]Record, error) {
	batch := a.db.NewBatch()
	defer batch.Close()

	// A sequence keeps one dump's streams in dump order
	seq := ksuid.Sequence{Seed: ksuid.New()}
	now := time.Now().UTC()
	records := make([]Record, 0, len(streams))
	for _, s := range streams {
		id, err := seq.Next()
		if err != nil {
			a.metrics.RecordArchiveOperation("put", false)
			return nil, fmt.Errorf("failed to allocate stream id: %w", err)
		}
		rec := Record{ID: id, Source: source, ArchivedAt: now, Stream: s}
		data, err := json.Marshal(&rec)
		if err != nil {
			a.metrics.RecordArchiveOperation("put", false)
			return nil, fmt.Errorf("failed to encode stream at offset %d: %w", s.Offset, err)
		}
		if err := batch.Set(streamKey(rec.ID), data, nil); err != nil {
			a.metrics.RecordArchiveOperation("put", false)
			return nil, fmt.Errorf("failed to stage stream %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		a.metrics.RecordArchiveOperation("put", false)
		return nil, fmt.Errorf("failed to write streams: %w", err)
	}
	a.metrics.RecordArchiveOperation("put", true)
	return records, nil
}

// Get returns the stream stored under id
func (a *Archive) Get(id ksuid.KSUID) (*Record, error) {
	data, closer, err := a.db.Get(streamKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		a.metrics.RecordArchiveOperation("get", false)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		a.metrics.RecordArchiveOperation("get", false)
		return nil, fmt.Errorf("failed to read stream %s: %w", id, err)
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		a.metrics.RecordArchiveOperation("get", false)
		return nil, fmt.Errorf("failed to decode stream %s: %w", id, err)
	}
	a.metrics.RecordArchiveOperation("get", true)
	return &rec, nil
}

// List returns a summary of every stored stream, oldest first
func (a *Archive) List() ([]Summary, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: streamPrefix,
		UpperBound: prefixEnd(streamPrefix),
	})
	if err != nil {
		a.metrics.RecordArchiveOperation("list", false)
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	defer iter.Close()

	var out []Summary
	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			a.metrics.RecordArchiveOperation("list", false)
			return nil, fmt.Errorf("failed to decode stream at key %x: %w", iter.Key(), err)
		}
		out = append(out, rec.Summarize())
	}
	if err := iter.Error(); err != nil {
		a.metrics.RecordArchiveOperation("list", false)
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}

	a.metrics.RecordArchiveOperation("list", true)
	return out, nil
}

// Delete removes the stream stored under id
func (a *Archive) Delete(id ksuid.KSUID) error {
	key := streamKey(id)

	_, closer, err := a.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		a.metrics.RecordArchiveOperation("delete", false)
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		a.metrics.RecordArchiveOperation("delete", false)
		return fmt.Errorf("failed to read stream %s: %w", id, err)
	}
	closer.Close()

	if err := a.db.Delete(key, pebble.Sync); err != nil {
		a.metrics.RecordArchiveOperation("delete", false)
		return fmt.Errorf("failed to delete stream %s: %w", id, err)
	}
	a.metrics.RecordArchiveOperation("delete", true)
	return nil
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}

// ParseID parses a stream id
func ParseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("invalid stream id %q: %w", s, err)
	}
	return id, nil
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
