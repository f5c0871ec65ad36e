// Package di provides dependency injection container
package di

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/gfxlog/pkg/api" //nolint:depguard
	"github.com/ssargent/gfxlog/pkg/archive"
	"github.com/ssargent/gfxlog/pkg/config"
	"github.com/ssargent/gfxlog/pkg/dump"
	"github.com/ssargent/gfxlog/pkg/interp"
	"github.com/ssargent/gfxlog/pkg/metrics"
	"github.com/ssargent/gfxlog/pkg/report"
)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	registry      *prometheus.Registry
	serverFactory api.ServerFactory

	metricsOnce sync.Once
	metrics     *metrics.Metrics
}

// NewContainer creates a new dependency injection container with default
// configuration
func NewContainer() *Container {
	return &Container{
		config:        config.DefaultConfig(),
		logger:        slog.Default(),
		registry:      prometheus.NewRegistry(),
		serverFactory: api.NewServerFactory(),
	}
}

// Configure replaces the configuration and rebuilds the logger from it.
// Log output goes to w.
func (c *Container) Configure(cfg *config.Config, w io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := NewLogger(w, cfg.Logging.Level)
	if err != nil {
		return err
	}
	c.config = cfg
	c.logger = logger
	return nil
}

// Config returns the active configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Registry returns the Prometheus registry all metrics are registered with
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Metrics returns the application metrics, registering them on first use
func (c *Container) Metrics() *metrics.Metrics {
	c.metricsOnce.Do(func() {
		c.metrics = metrics.NewMetrics(c.registry)
	})
	return c.metrics
}

// ScannerConfig returns scanner settings wired to the logger and metrics
func (c *Container) ScannerConfig() dump.ScannerConfig {
	sc := c.config.ScannerConfig()
	sc.Logger = c.logger
	sc.Metrics = c.Metrics()
	return sc
}

// NewReporter creates a reporter from the report section. An empty format
// uses the configured one.
func (c *Container) NewReporter(format string) (*report.Reporter, error) {
	if format == "" {
		format = c.config.Report.Format
	}
	return report.New(report.Options{
		Format:        format,
		Interpreter:   interp.NewHexInterpreter(c.config.OpcodeNames(), c.config.Report.MaxPayloadBytes),
		SubdecodeName: c.config.Report.SubdecodeOpcode,
		Location:      time.Local,
		Metrics:       c.Metrics(),
	})
}

// OpenArchive opens the stream archive in the configured data directory
func (c *Container) OpenArchive() (*archive.Archive, error) {
	dir := c.config.Archive.DataDir
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return archive.Open(dir, c.Metrics())
}

// ServerConfig returns API server settings
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Bind:    c.config.Server.Bind,
		Port:    c.config.Server.Port,
		APIKey:  c.config.Server.APIKey,
		Scanner: c.config.ScannerConfig(),
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// NewLogger creates a text logger writing to w at the named level
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
