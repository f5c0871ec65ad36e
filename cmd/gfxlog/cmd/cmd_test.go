package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/gfxlog/pkg/api"
	"github.com/ssargent/gfxlog/pkg/config"
	"github.com/ssargent/gfxlog/pkg/di"
	"github.com/ssargent/gfxlog/pkg/dump/dumptest"
	"github.com/ssargent/gfxlog/pkg/metrics"
	"github.com/ssargent/gfxlog/pkg/report"
)

// resetFlags clears flag values left over from a previous run
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI with a fresh container and returns its output
func execute(t *testing.T, container *di.Container, args ...string) (string, error) {
	t.Helper()

	if container == nil {
		container = di.NewContainer()
	}
	SetContainer(container)
	t.Cleanup(func() { SetContainer(nil) })

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

type testEnv struct {
	dir        string
	configPath string
	dumpPath   string
}

// newTestEnv writes a config and a dump holding two streams. The stream
// later in the dump was written first.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dumpPath:   filepath.Join(dir, "crash.dmp"),
	}

	cfg := config.DefaultConfig()
	cfg.Archive.DataDir = filepath.Join(dir, "data")
	cfg.Server.APIKey = "test-key"
	cfg.Logging.Level = "warn"
	require.NoError(t, config.SaveConfig(cfg, env.configPath))

	newer := dumptest.Ring{
		Version:         3,
		ThreadID:        1,
		LastWrittenTime: 1_700_000_002_000_000,
		CaptureID:       10,
		Commands:        dumptest.Commands(3, 3),
		Capacity:        200,
		Committed:       50,
	}
	older := dumptest.Ring{
		Version:         3,
		ThreadID:        2,
		LastWrittenTime: 1_700_000_001_000_000,
		CaptureID:       10,
		Commands:        dumptest.Commands(2, 3),
	}
	image := dumptest.Dump(make([]byte, 32), newer.Bytes(), make([]byte, 32), older.Bytes())
	require.NoError(t, os.WriteFile(env.dumpPath, image, 0644))

	return env
}

const (
	newerOffset = 32
	olderOffset = 32 + 48 + 200 + 32
)

func TestInitCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	configPath := filepath.Join(dir, "gfxlog.yaml")
	dataDir := filepath.Join(dir, "streams")

	out, err := execute(t, nil, "init", "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration created at "+configPath)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.Archive.DataDir)
	assert.Len(t, cfg.Server.APIKey, 64)
	assert.Contains(t, out, cfg.Server.APIKey[:8]+"...")
	assert.NotContains(t, out, cfg.Server.APIKey)

	out, err = execute(t, nil, "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	again, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.APIKey, again.Server.APIKey)

	_, err = execute(t, nil, "init", "--config", configPath, "--force")
	require.NoError(t, err)

	forced, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Server.APIKey, forced.Server.APIKey)
}

func TestInitializeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, created, err := initializeConfig(path, "", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "./data", cfg.Archive.DataDir)

	_, created, err = initializeConfig(path, "", false)
	require.NoError(t, err)
	assert.False(t, created)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	_, _, err = initializeConfig(filepath.Join(blocker, "config.yaml"), "", false)
	assert.Error(t, err)
}

func TestPrintCommand(t *testing.T) {
	env := newTestEnv(t)

	t.Run("sorted text", func(t *testing.T) {
		out, err := execute(t, nil, "print", env.dumpPath, "--config", env.configPath)
		require.NoError(t, err)

		first := strings.Index(out, "GfxApiLog command stream #0 at offset 312 in dump")
		second := strings.Index(out, "GfxApiLog command stream #1 at offset 32 in dump")
		require.NotEqual(t, -1, first, out)
		require.NotEqual(t, -1, second, out)
		assert.Less(t, first, second)
		assert.Contains(t, out, "  - Thread id: 2\n")
		assert.True(t, strings.HasSuffix(out, "Done: 5 commands, 0 errors\n"))
	})

	t.Run("dump order", func(t *testing.T) {
		out, err := execute(t, nil, "print", env.dumpPath, "--config", env.configPath, "--no-sort")
		require.NoError(t, err)
		assert.Contains(t, out, "GfxApiLog command stream #0 at offset 32 in dump")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, nil, "print", env.dumpPath, "--config", env.configPath, "--format", "json", "--workers", "4")
		require.NoError(t, err)

		var doc report.Document
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		require.Len(t, doc.Streams, 2)
		assert.Equal(t, int64(olderOffset), doc.Streams[0].Offset)
		assert.Equal(t, int64(newerOffset), doc.Streams[1].Offset)
		assert.Len(t, doc.Streams[1].Commands, 3)
		assert.Equal(t, 5, doc.Summary.Commands)
	})

	t.Run("missing dump", func(t *testing.T) {
		_, err := execute(t, nil, "print", filepath.Join(env.dir, "nope.dmp"), "--config", env.configPath)
		assert.ErrorContains(t, err, "failed to scan")
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := execute(t, nil, "print", env.dumpPath, "--config", filepath.Join(env.dir, "nope.yaml"))
		assert.ErrorContains(t, err, "config file does not exist")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := execute(t, nil, "print", env.dumpPath, "--config", env.configPath, "--log-level", "loud")
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("without container", func(t *testing.T) {
		SetContainer(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs([]string{"print", env.dumpPath})
		err := rootCmd.ExecuteContext(context.Background())
		assert.ErrorContains(t, err, "dependency container not initialized")
	})
}

// archivedIDs returns the stream ids printed by the archive command
func archivedIDs(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n")[1:] {
		if fields := strings.Fields(line); len(fields) > 0 {
			ids = append(ids, fields[0])
		}
	}
	return ids
}

func TestArchiveAndStreamsCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, nil, "archive", env.dumpPath, "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Archived 2 streams from "+env.dumpPath)
	ids := archivedIDs(out)
	require.Len(t, ids, 2)

	out, err = execute(t, nil, "streams", "list", "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, ids[0])
	assert.Contains(t, out, ids[1])
	assert.Contains(t, out, "crash.dmp")

	out, err = execute(t, nil, "streams", "show", ids[0], "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Stream "+ids[0]+" from crash.dmp")
	assert.Contains(t, out, "GfxApiLog command stream #0 at offset 32 in dump")
	assert.Contains(t, out, "Done: 3 commands, 0 errors")

	out, err = execute(t, nil, "streams", "delete", ids[0], "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted stream "+ids[0])

	_, err = execute(t, nil, "streams", "delete", ids[0], "--config", env.configPath)
	assert.ErrorContains(t, err, "no archived stream")

	_, err = execute(t, nil, "streams", "show", "not-an-id", "--config", env.configPath)
	assert.ErrorContains(t, err, "invalid stream id")

	out, err = execute(t, nil, "streams", "list", "--config", env.configPath)
	require.NoError(t, err)
	assert.NotContains(t, out, ids[0])
	assert.Contains(t, out, ids[1])
}

func TestArchiveCommand_DataDirFlag(t *testing.T) {
	env := newTestEnv(t)
	dataDir := filepath.Join(env.dir, "elsewhere")

	_, err := execute(t, nil, "archive", env.dumpPath, "--config", env.configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.DirExists(t, dataDir)

	out, err := execute(t, nil, "streams", "list", "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No archived streams")
}

type recordingStarter struct {
	called bool
	config api.ServerConfig
}

func (r *recordingStarter) StartServer(_ context.Context, store api.StreamStore, config api.ServerConfig, _ *slog.Logger, _ *metrics.Metrics, _ prometheus.Gatherer) error {
	r.called = store != nil
	r.config = config
	return nil
}

func (r *recordingStarter) CreateServerStarter() api.ServerStarter {
	return r
}

func TestServeCommand(t *testing.T) {
	env := newTestEnv(t)

	starter := &recordingStarter{}
	container := di.NewContainer()
	container.SetServerFactory(starter)

	_, err := execute(t, container, "serve", "--config", env.configPath, "--port", "9999")
	require.NoError(t, err)

	assert.True(t, starter.called)
	assert.Equal(t, 9999, starter.config.Port)
	assert.Equal(t, "127.0.0.1", starter.config.Bind)
	assert.Equal(t, "test-key", starter.config.APIKey)
}
