// Package config holds the settings of an import or export run.
package config

import (
	"fmt"
	"net"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/cdtdelta/mft2es/internal/identity"
	"github.com/cdtdelta/mft2es/internal/model"
)

// Store backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendSQLite        = "sqlite"
	BackendPostgres      = "postgres"
)

// Decoder kinds.
const (
	DecoderCommand = "command"
	DecoderSidecar = "sidecar"
)

// Store describes the target document store.
type Store struct {
	Backend  string `toml:"backend"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Scheme   string `toml:"scheme"`
	Login    string `toml:"login"`
	Password string `toml:"password"`
	Index    string `toml:"index"`
	Pipeline string `toml:"pipeline"`

	// DSN is the file path (sqlite) or connection string (postgres).
	DSN string `toml:"dsn"`

	// BulkSize caps the number of documents per bulk request.
	BulkSize int `toml:"bulk_size"`
	RetryMax int `toml:"retry_max"`
}

// URL returns the base URL of an HTTP store.
func (s Store) URL() string {
	return s.Scheme + "://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Decoder selects how the record and path streams are obtained.
type Decoder struct {
	Kind          string `toml:"kind"`
	Command       string `toml:"command"`
	RecordsSuffix string `toml:"records_suffix"`
	PathsSuffix   string `toml:"paths_suffix"`
}

// Config is the full run configuration.
type Config struct {
	Store   Store   `toml:"store"`
	Decoder Decoder `toml:"decoder"`

	Mode         string `toml:"mode"`
	Multiprocess bool   `toml:"multiprocess"`
	Workers      int    `toml:"workers"`
	ChunkSize    int    `toml:"chunk_size"`
	BatchChunks  int    `toml:"batch_chunks"`
	Tags         string `toml:"tags"`
	Quiet        bool   `toml:"quiet"`

	// Hash names the document identity algorithm.
	Hash string `toml:"hash"`

	// Output is the export file. Empty means next to the input.
	Output string `toml:"output"`
}

// Default returns the settings the original command-line tools used.
func Default() Config {
	return Config{
		Store: Store{
			Backend:  BackendElasticsearch,
			Host:     "localhost",
			Port:     9200,
			Scheme:   "http",
			Index:    "mft2es",
			BulkSize: 500,
			RetryMax: 3,
		},
		Decoder: Decoder{
			Kind: DecoderCommand,
		},
		Mode:        model.ModeStandard.String(),
		ChunkSize:   500,
		BatchChunks: 1,
		Hash:        identity.BLAKE3.String(),
	}
}

// LoadFile overlays the TOML file at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q: %w", path, undecoded[0].String(), model.ErrInvalidConfiguration)
	}
	return nil
}

// ParsedMode returns the processing mode.
func (c Config) ParsedMode() (model.Mode, error) {
	return model.ParseMode(c.Mode)
}

// Validate checks the settings that the pipeline does not need.
// Every error wraps model.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return invalid("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.BatchChunks <= 0 {
		return invalid("batch chunks must be positive, got %d", c.BatchChunks)
	}
	if c.Workers < 0 {
		return invalid("workers must not be negative, got %d", c.Workers)
	}
	if _, err := c.ParsedMode(); err != nil {
		return err
	}
	if _, err := identity.ParseAlgorithm(c.Hash); err != nil {
		return err
	}
	switch c.Decoder.Kind {
	case DecoderCommand, DecoderSidecar:
	default:
		return invalid("unknown decoder %q", c.Decoder.Kind)
	}
	return nil
}

// ValidateStore checks the store settings of an import run.
func (c Config) ValidateStore() error {
	s := c.Store
	if s.BulkSize <= 0 {
		return invalid("bulk size must be positive, got %d", s.BulkSize)
	}
	if s.Index == "" {
		return invalid("index name is required")
	}
	switch s.Backend {
	case BackendElasticsearch:
		if s.Host == "" {
			return invalid("store host is required")
		}
		if s.Port < 1 || s.Port > 65535 {
			return invalid("store port %d out of range", s.Port)
		}
		if s.Scheme != "http" && s.Scheme != "https" {
			return invalid("unsupported scheme %q", s.Scheme)
		}
		if s.RetryMax < 0 {
			return invalid("retry max must not be negative, got %d", s.RetryMax)
		}
	case BackendSQLite, BackendPostgres:
		if s.DSN == "" {
			return invalid("%s backend needs a dsn", s.Backend)
		}
	default:
		return invalid("unknown store backend %q", s.Backend)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, model.ErrInvalidConfiguration)...)
}

// Workers resolves the worker pool size. A positive request is returned
// as is; otherwise the number of logical CPUs is used.
func Workers(requested int) int {
	if requested > 0 {
		return requested
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return max(runtime.NumCPU(), 1)
}
