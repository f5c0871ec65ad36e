package dump

import (
	"sort"
	"time"

	"github.com/ssargent/gfxlog/pkg/codec"
)

// Stream is one GFXAPILOG buffer found in a dump. It holds either the
// decoded commands or the reason the buffer was rejected, never both.
type Stream struct {
	Offset    int64              `json:"offset"`             // position of the signature in the dump
	Timestamp uint64             `json:"timestamp"`          // Unix microseconds of the last write
	ThreadID  uint32             `json:"thread_id"`          // writer thread
	CaptureID uint64             `json:"capture_id"`         // writer session
	Version   uint16             `json:"version"`
	Commands  []codec.Command    `json:"commands,omitempty"` // oldest first
	Unframed  int                `json:"unframed,omitempty"` // leading ring bytes not attributed to a record
	Err       *codec.DecodeError `json:"error,omitempty"`
}

// errorStream builds the rejected form of a stream
func errorStream(offset int64, err *codec.DecodeError) Stream {
	return Stream{Offset: offset, Err: err.WithOffset(offset)}
}

// Failed reports whether the stream could not be decoded
func (s *Stream) Failed() bool {
	return s.Err != nil
}

// Time returns the stream timestamp as a time.Time
func (s *Stream) Time() time.Time {
	return time.UnixMicro(int64(s.Timestamp))
}

// SortByTimestamp orders streams by timestamp, keeping dump order for ties
func SortByTimestamp(streams []Stream) {
	sort.SliceStable(streams, func(i, j int) bool {
		return streams[i].Timestamp < streams[j].Timestamp
	})
}
