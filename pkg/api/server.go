// Package api is the gfxlog REST API.
//
// Archived streams can be listed, fetched and deleted, and new dumps can be
// uploaded for decoding. Everything under /api/v1 requires the X-API-Key
// header; /metrics is open for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/gfxlog/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP handler for s. Metrics are served from reg.
func NewRouter(s *Server, reg prometheus.Gatherer) http.Handler {
	m := s.metrics

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(s.config.APIKey))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/streams", m.InstrumentHandler("GET", "/api/v1/streams", s.handleListStreams))
		r.Get("/streams/{id}", m.InstrumentHandler("GET", "/api/v1/streams/{id}", s.handleGetStream))
		r.Delete("/streams/{id}", m.InstrumentHandler("DELETE", "/api/v1/streams/{id}", s.handleDeleteStream))

		r.Post("/dumps", m.InstrumentHandler("POST", "/api/v1/dumps", s.handleUploadDump))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully. m should be registered with reg.
func StartServer(ctx context.Context, store StreamStore, config ServerConfig, logger *slog.Logger, m *metrics.Metrics, reg prometheus.Gatherer) error {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	server := NewServer(store, config, logger, m)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting gfxlog REST API server", "addr", addr)
		logger.Info("metrics available", "url", fmt.Sprintf("http://%s/metrics", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down REST API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
