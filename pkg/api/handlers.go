package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/gfxlog/pkg/archive"
	"github.com/ssargent/gfxlog/pkg/dump"
	"github.com/ssargent/gfxlog/pkg/metrics"
)

// Server holds the API server state
type Server struct {
	store   StreamStore
	config  ServerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewServer creates a new API server
func NewServer(store StreamStore, config ServerConfig, logger *slog.Logger, m *metrics.Metrics) *Server {
	if config.MaxDumpSize <= 0 {
		config.MaxDumpSize = DefaultMaxDumpSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	config.Scanner.Logger = logger
	config.Scanner.Metrics = m

	return &Server{
		store:   store,
		config:  config,
		logger:  logger.With("component", "api"),
		metrics: m,
	}
}

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListStreams returns a summary of every archived stream
func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := s.store.List()
	if err != nil {
		s.logger.Error("list streams failed", "error", err)
		sendError(w, fmt.Sprintf("Failed to list streams: %v", err), http.StatusInternalServerError)
		return
	}
	if streams == nil {
		streams = []archive.Summary{}
	}
	sendSuccess(w, streams)
}

// handleGetStream returns one archived stream with its commands
func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	id, err := archive.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.store.Get(id)
	if errors.Is(err, archive.ErrNotFound) {
		sendError(w, "Stream not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get stream failed", "id", id, "error", err)
		sendError(w, fmt.Sprintf("Failed to get stream: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, rec)
}

// handleDeleteStream removes one archived stream
func (s *Server) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	id, err := archive.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.store.Delete(id)
	if errors.Is(err, archive.ErrNotFound) {
		sendError(w, "Stream not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("delete stream failed", "id", id, "error", err)
		sendError(w, fmt.Sprintf("Failed to delete stream: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, map[string]string{"status": "deleted"})
}

// handleUploadDump decodes the dump in the request body and archives every
// stream found in it
func (s *Server) handleUploadDump(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxDumpSize+1))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.config.MaxDumpSize {
		sendError(w, fmt.Sprintf("Dump larger than %d bytes", s.config.MaxDumpSize), http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	source := r.URL.Query().Get("name")
	if source == "" {
		source = "upload"
	}

	streams, err := dump.NewScanner(dump.Bytes(body), s.config.Scanner).Scan(r.Context())
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to scan dump: %v", err), http.StatusInternalServerError)
		return
	}

	records, err := s.store.Put(source, streams)
	if err != nil {
		s.logger.Error("archive streams failed", "source", source, "error", err)
		sendError(w, fmt.Sprintf("Failed to archive streams: %v", err), http.StatusInternalServerError)
		return
	}

	result := DumpResult{Source: source, Streams: make([]archive.Summary, 0, len(records))}
	for i := range records {
		result.Streams = append(result.Streams, records[i].Summarize())
	}
	s.logger.Info("dump archived", "source", source, "bytes", len(body), "streams", len(records))
	sendSuccess(w, result)
}
