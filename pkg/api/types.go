package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/gfxlog/pkg/archive"
	"github.com/ssargent/gfxlog/pkg/dump"
)

// DefaultMaxDumpSize caps uploaded dumps
const DefaultMaxDumpSize = 512 << 20

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind        string
	Port        int
	APIKey      string
	MaxDumpSize int64              // Largest accepted upload in bytes
	Scanner     dump.ScannerConfig // Used to decode uploaded dumps
}

// StreamStore defines the archive operations the API needs
type StreamStore interface {
	Put(source string, streams []dump.Stream) ([]archive.Record, error)
	Get(id ksuid.KSUID) (*archive.Record, error)
	List() ([]archive.Summary, error)
	Delete(id ksuid.KSUID) error
}

// DumpResult is the response to an uploaded dump
type DumpResult struct {
	Source  string            `json:"source"`
	Streams []archive.Summary `json:"streams"`
}
