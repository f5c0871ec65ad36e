package di

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/gfxlog/pkg/api"
	"github.com/ssargent/gfxlog/pkg/config"
	"github.com/ssargent/gfxlog/pkg/dump"
	"github.com/ssargent/gfxlog/pkg/metrics"
)

func TestNewContainer(t *testing.T) {
	c := NewContainer()

	assert.Equal(t, config.DefaultConfig(), c.Config())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.Registry())
	assert.Same(t, c.Metrics(), c.Metrics())
	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())
}

func TestConfigure(t *testing.T) {
	c := NewContainer()
	var logs bytes.Buffer

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Decode.Workers = 6
	require.NoError(t, c.Configure(cfg, &logs))

	c.Logger().Debug("hello", "k", "v")
	assert.Contains(t, logs.String(), "level=DEBUG msg=hello k=v")

	sc := c.ScannerConfig()
	assert.Equal(t, 6, sc.Workers)
	assert.Same(t, c.Metrics(), sc.Metrics)
	assert.Same(t, c.Logger(), sc.Logger)
}

func TestConfigure_Invalid(t *testing.T) {
	c := NewContainer()
	before := c.Config()

	cfg := config.DefaultConfig()
	cfg.Decode.Workers = 0
	err := c.Configure(cfg, &bytes.Buffer{})

	assert.ErrorContains(t, err, "invalid configuration")
	assert.Same(t, before, c.Config())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "WARN")
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	_, err = NewLogger(&buf, "loud")
	assert.Error(t, err)
}

func TestNewReporter(t *testing.T) {
	c := NewContainer()

	_, err := c.NewReporter("")
	require.NoError(t, err)
	_, err = c.NewReporter("json")
	require.NoError(t, err)
	_, err = c.NewReporter("xml")
	assert.Error(t, err)
}

func TestOpenArchive(t *testing.T) {
	c := NewContainer()
	cfg := config.DefaultConfig()
	cfg.Archive.DataDir = filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, c.Configure(cfg, &bytes.Buffer{}))

	a, err := c.OpenArchive()
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Put("x", []dump.Stream{{Offset: 1}})
	assert.NoError(t, err)
}

type recordingStarter struct {
	config api.ServerConfig
}

func (r *recordingStarter) StartServer(_ context.Context, _ api.StreamStore, config api.ServerConfig, _ *slog.Logger, _ *metrics.Metrics, _ prometheus.Gatherer) error {
	r.config = config
	return nil
}

type recordingFactory struct {
	starter *recordingStarter
}

func (f *recordingFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestServerFactoryOverride(t *testing.T) {
	c := NewContainer()
	starter := &recordingStarter{}
	c.SetServerFactory(&recordingFactory{starter: starter})

	cfg := config.DefaultConfig()
	cfg.Server.Port = 9300
	cfg.Server.APIKey = "k"
	require.NoError(t, c.Configure(cfg, &bytes.Buffer{}))

	err := c.GetServerFactory().CreateServerStarter().StartServer(context.Background(), nil, c.ServerConfig(), c.Logger(), c.Metrics(), c.Registry())
	require.NoError(t, err)
	assert.Equal(t, 9300, starter.config.Port)
	assert.Equal(t, "k", starter.config.APIKey)
	assert.Equal(t, uint32(5_000_000), starter.config.Scanner.MaxDataSize)
}
