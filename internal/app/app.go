// Package app holds the command-line glue shared by mft2es and mft2json:
// common flags, logger setup and turning flags into a config.Config.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/mft2es/internal/bulk"
	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/database"
	"github.com/cdtdelta/mft2es/internal/elastic"
)

// Version is reported by --version.
const Version = "1.0.0"

// CommonFlags are accepted by both commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "TOML config file; flags override its values",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress standard output",
		},
		&cli.BoolFlag{
			Name:    "multiprocess",
			Aliases: []string{"m"},
			Usage:   "Format chunks on a worker pool",
		},
		&cli.IntFlag{
			Name:    "size",
			Aliases: []string{"s"},
			Usage:   "Number of records per chunk",
			Value:   500,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Worker pool size; 0 uses one per CPU",
		},
		&cli.IntFlag{
			Name:  "batch-chunks",
			Usage: "Chunks per output batch",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "timeline",
			Usage: "Emit one document per MACB timestamp",
		},
		&cli.StringFlag{
			Name:  "tags",
			Usage: "Comma separated tags added after \"mft\"",
		},
		&cli.StringFlag{
			Name:  "decoder",
			Usage: "Decoder to use (command, sidecar)",
			Value: config.DecoderCommand,
		},
		&cli.StringFlag{
			Name:  "decoder-cmd",
			Usage: "Decoder binary for the command decoder",
			Value: "mft_dump",
		},
	}
}

// SetupLogger installs the default slog logger from --log-level. --quiet
// raises the level to error.
func SetupLogger(c *cli.Context) error {
	_, err := installLogger(c, c.Bool("quiet"))
	return err
}

// ConfigureLogger reinstalls the default logger once cfg is loaded, so that
// quiet set in the config file silences logging as well as the flag does.
func ConfigureLogger(c *cli.Context, cfg config.Config) (*slog.Logger, error) {
	return installLogger(c, cfg.Quiet)
}

func installLogger(c *cli.Context, quiet bool) (*slog.Logger, error) {
	level, err := ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, err
	}
	if quiet {
		level = slog.LevelError
	}
	var w io.Writer = os.Stderr
	if c.App != nil && c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

// LoadConfig builds the run configuration: defaults, then the --config
// file, then every flag the user set explicitly.
func LoadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	setString(c, "decoder", &cfg.Decoder.Kind)
	setString(c, "decoder-cmd", &cfg.Decoder.Command)
	setString(c, "tags", &cfg.Tags)
	setInt(c, "size", &cfg.ChunkSize)
	setInt(c, "workers", &cfg.Workers)
	setInt(c, "batch-chunks", &cfg.BatchChunks)
	setBool(c, "multiprocess", &cfg.Multiprocess)
	setBool(c, "quiet", &cfg.Quiet)
	if c.IsSet("timeline") && c.Bool("timeline") {
		cfg.Mode = "timeline"
	}

	// Store flags exist only on mft2es; output-file only on mft2json.
	setString(c, "backend", &cfg.Store.Backend)
	setString(c, "host", &cfg.Store.Host)
	setInt(c, "port", &cfg.Store.Port)
	setString(c, "scheme", &cfg.Store.Scheme)
	setString(c, "index", &cfg.Store.Index)
	setString(c, "pipeline", &cfg.Store.Pipeline)
	setString(c, "login", &cfg.Store.Login)
	setString(c, "pwd", &cfg.Store.Password)
	setString(c, "dsn", &cfg.Store.DSN)
	setInt(c, "bulk-size", &cfg.Store.BulkSize)
	setInt(c, "retry-max", &cfg.Store.RetryMax)
	setString(c, "hash", &cfg.Hash)
	setString(c, "output-file", &cfg.Output)

	return cfg, cfg.Validate()
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func setInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func setBool(c *cli.Context, name string, dst *bool) {
	if c.IsSet(name) {
		*dst = c.Bool(name)
	}
}

// OpenIndexer connects to the store named by cfg. The returned closer
// releases it.
func OpenIndexer(ctx context.Context, cfg config.Store, logger *slog.Logger) (bulk.Indexer, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendElasticsearch:
		opts := []elastic.Option{
			elastic.WithRetryMax(cfg.RetryMax),
			elastic.WithLogger(logger),
		}
		if cfg.Login != "" {
			opts = append(opts, elastic.WithBasicAuth(cfg.Login, cfg.Password))
		}
		client := elastic.New(cfg.URL(), opts...)
		if err := client.Ping(ctx); err != nil {
			return nil, nil, err
		}
		return client, closerFunc(func() error { return nil }), nil
	default:
		store, err := database.OpenStore(ctx, cfg.Backend, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
