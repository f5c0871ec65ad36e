package dump

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

// Source is a finite, randomly addressable view of dump memory
type Source interface {
	io.ReaderAt
	Size() int64
}

// File is a memory-mapped dump file
type File struct {
	r *mmap.ReaderAt
}

// Open maps the dump at path read-only
func Open(path string) (*File, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map dump %s: %w", path, err)
	}
	return &File{r: r}, nil
}

// ReadAt implements io.ReaderAt
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.r.ReadAt(p, off)
}

// Size returns the length of the mapped file
func (f *File) Size() int64 {
	return int64(f.r.Len())
}

// Close unmaps the file
func (f *File) Close() error {
	return f.r.Close()
}

// Bytes wraps an in-memory dump
func Bytes(b []byte) Source {
	return bytes.NewReader(b)
}
