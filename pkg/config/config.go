// Package config provides the configuration for arbor tools.
// A single Config structure covers every command; sections group related
// settings:
//   - Tables: growth policy and edge metadata for new collections
//   - Check: default integrity checks run by the CLI
//   - Storage: compression envelope, memory mapping and remote stores
//   - Logging, Metrics, Tracing: observability
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Storage.Compression = "zstd"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"runtime"
	"time"

	"github.com/ajitpratap0/arbor/pkg/compression"
	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/logger"
	"github.com/ajitpratap0/arbor/pkg/storage"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

// Config is the configuration shared by all arbor commands.
type Config struct {
	// Tables controls how new collections grow.
	Tables TablesConfig `yaml:"tables" json:"tables"`

	// Check selects the checks run before a file is written.
	Check CheckConfig `yaml:"check" json:"check"`

	// Storage configures dumped files and remote locations.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configures the global zap logger.
	Logging logger.Config `yaml:"logging" json:"logging"`

	// Metrics configures the prometheus textfile written on exit.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configures span export.
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Workers bounds the number of files processed at once.
	Workers int `yaml:"workers" json:"workers"`
}

// TablesConfig contains the settings applied to every new collection.
type TablesConfig struct {
	// RowsIncrement is the minimum number of rows added on each growth
	RowsIncrement int `yaml:"rows_increment" json:"rows_increment"`
	// LengthIncrement is the minimum growth of ragged columns
	LengthIncrement int `yaml:"length_increment" json:"length_increment"`
	// NoEdgeMetadata disables the edge metadata column
	NoEdgeMetadata bool `yaml:"no_edge_metadata" json:"no_edge_metadata"`
}

// CheckConfig names the integrity checks to run.
type CheckConfig struct {
	// Flags lists check names, see tables.ParseCheckFlags
	Flags []string `yaml:"flags" json:"flags"`
}

// StorageConfig contains file and remote storage settings.
type StorageConfig struct {
	// Compression selects the envelope algorithm (none, gzip, snappy, lz4, zstd, s2)
	Compression string `yaml:"compression" json:"compression"`
	// CompressionLevel trades ratio for speed (1-9)
	CompressionLevel int `yaml:"compression_level" json:"compression_level"`
	// NoMmap reads files into memory instead of mapping them
	NoMmap bool `yaml:"no_mmap" json:"no_mmap"`
	// Remote configures s3:// and gs:// locations
	Remote storage.Options `yaml:"remote" json:"remote"`
}

// MetricsConfig controls the metrics textfile.
type MetricsConfig struct {
	// Textfile is written in the prometheus text format when set
	Textfile string `yaml:"textfile" json:"textfile"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	SamplingRate float64       `yaml:"sampling_rate" json:"sampling_rate"`
	PrettyPrint  bool          `yaml:"pretty_print" json:"pretty_print"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
}

// Default returns a Config with the values used when no file is given.
func Default() *Config {
	return &Config{
		Tables: TablesConfig{
			RowsIncrement:   1024,
			LengthIncrement: 65536,
		},
		Check: CheckConfig{
			Flags: []string{"trees"},
		},
		Storage: StorageConfig{
			Compression:      string(compression.None),
			CompressionLevel: int(compression.Default),
		},
		Logging: logger.DefaultConfig(),
		Tracing: TracingConfig{
			SamplingRate: 1.0,
			BatchTimeout: time.Second,
		},
		Workers: runtime.NumCPU(),
	}
}

// Validate checks the configuration and returns a parameter error naming
// the first bad field.
func (c *Config) Validate() error {
	if c.Tables.RowsIncrement < 0 {
		return invalid("tables.rows_increment", "cannot be negative")
	}
	if c.Tables.LengthIncrement < 0 {
		return invalid("tables.length_increment", "cannot be negative")
	}
	if _, err := tables.ParseCheckFlags(c.Check.Flags); err != nil {
		return invalid("check.flags", err.Error())
	}
	if _, err := compression.ParseAlgorithm(c.Storage.Compression); err != nil {
		return invalid("storage.compression", err.Error())
	}
	if c.Storage.CompressionLevel < int(compression.Fastest) || c.Storage.CompressionLevel > int(compression.Best) {
		return invalid("storage.compression_level", "must be between 1 and 9")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return invalid("tracing.sampling_rate", "must be between 0 and 1")
	}
	if c.Workers < 0 {
		return invalid("workers", "cannot be negative")
	}
	return nil
}

func invalid(field, reason string) error {
	return errors.New(errors.ErrorTypeParameter, field+" "+reason).WithDetail("field", field)
}

// TableOptions returns the options for collections created by the CLI.
func (t TablesConfig) TableOptions() []tables.Option {
	opts := []tables.Option{tables.WithTableOptions(tables.TableOptions{
		RowsIncrement:   t.RowsIncrement,
		LengthIncrement: t.LengthIncrement,
	})}
	if t.NoEdgeMetadata {
		opts = append(opts, tables.WithNoEdgeMetadata())
	}
	return opts
}

// CompressionConfig returns the envelope settings. Validate must have
// accepted the configuration.
func (s StorageConfig) CompressionConfig() compression.Config {
	algo, _ := compression.ParseAlgorithm(s.Compression)
	return compression.Config{Algorithm: algo, Level: compression.Level(s.CompressionLevel)}
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (c *Config) GetWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
