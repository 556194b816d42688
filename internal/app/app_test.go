package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/database"
	"github.com/cdtdelta/mft2es/internal/model"
)

// runLoad parses args with the common flags plus extra and returns the
// resulting config.
func runLoad(t *testing.T, extra []cli.Flag, args ...string) (config.Config, error) {
	t.Helper()
	var cfg config.Config
	var loadErr error
	app := &cli.App{
		Name:  "test",
		Flags: append(CommonFlags(), extra...),
		Action: func(c *cli.Context) error {
			cfg, loadErr = LoadConfig(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg, loadErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := runLoad(t, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mft2es.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunk_size = 100
tags = "from-file"
multiprocess = true

[store]
index = "file-index"
`), 0644))

	extra := []cli.Flag{
		&cli.StringFlag{Name: "index", Value: "mft2es"},
		&cli.StringFlag{Name: "host", Value: "localhost"},
	}
	cfg, err := runLoad(t, extra, "--config", path, "--size", "50", "--timeline", "--index", "flag-index")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.ChunkSize)
	assert.Equal(t, "from-file", cfg.Tags)
	assert.True(t, cfg.Multiprocess)
	assert.Equal(t, "timeline", cfg.Mode)
	assert.Equal(t, "flag-index", cfg.Store.Index)
	// An unset flag keeps the default, not the flag's own default value.
	assert.Equal(t, "localhost", cfg.Store.Host)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := runLoad(t, nil, "--size", "0")
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration), "got %v", err)

	_, err = runLoad(t, nil, "--decoder", "pymft")
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration), "got %v", err)
}

func TestConfigureLogger_QuietFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mft2es.toml")
	require.NoError(t, os.WriteFile(path, []byte("quiet = true\n"), 0644))

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stderr bytes.Buffer
	app := &cli.App{
		Name:      "test",
		Flags:     CommonFlags(),
		ErrWriter: &stderr,
		Before:    SetupLogger,
		Action: func(c *cli.Context) error {
			cfg, err := LoadConfig(c)
			if err != nil {
				return err
			}
			logger, err := ConfigureLogger(c, cfg)
			if err != nil {
				return err
			}
			logger.Info("importing")
			logger.Error("bulk write failed")
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"test", "--config", path}))

	assert.NotContains(t, stderr.String(), "importing")
	assert.Contains(t, stderr.String(), "bulk write failed")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestOpenIndexer_SQLite(t *testing.T) {
	store := config.Default().Store
	store.Backend = config.BackendSQLite
	store.DSN = filepath.Join(t.TempDir(), "mft.db")

	idx, closer, err := OpenIndexer(context.Background(), store, slog.Default())
	require.NoError(t, err)
	defer closer.Close()
	_, ok := idx.(*database.SQLiteStore)
	assert.True(t, ok, "got %T", idx)
}

func TestOpenIndexer_ElasticsearchUnreachable(t *testing.T) {
	store := config.Default().Store
	store.Host = "127.0.0.1"
	store.Port = 1
	store.RetryMax = 0

	_, _, err := OpenIndexer(context.Background(), store, slog.Default())
	assert.True(t, errors.Is(err, model.ErrTransport), "got %v", err)
}
