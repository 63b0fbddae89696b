package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

const (
	configName = ".arbor"
	configType = "yaml"
	envPrefix  = "ARBOR"
)

// LoadConfig builds a Config from defaults, an optional YAML file and
// ARBOR_* environment variables, in increasing precedence. Nested keys use
// underscores, so ARBOR_STORAGE_COMPRESSION sets storage.compression.
// With an empty configPath the file .arbor.yaml is searched for in the
// working and home directories; a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v, Default())

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config").WithDetail("path", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults registers every key, which also lets AutomaticEnv find
// keys absent from the file.
func applyDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("tables.rows_increment", d.Tables.RowsIncrement)
	v.SetDefault("tables.length_increment", d.Tables.LengthIncrement)
	v.SetDefault("tables.no_edge_metadata", d.Tables.NoEdgeMetadata)

	v.SetDefault("check.flags", d.Check.Flags)

	v.SetDefault("storage.compression", d.Storage.Compression)
	v.SetDefault("storage.compression_level", d.Storage.CompressionLevel)
	v.SetDefault("storage.no_mmap", d.Storage.NoMmap)
	v.SetDefault("storage.remote.region", d.Storage.Remote.Region)
	v.SetDefault("storage.remote.endpoint", d.Storage.Remote.Endpoint)
	v.SetDefault("storage.remote.credentials_file", d.Storage.Remote.CredentialsFile)
	v.SetDefault("storage.remote.part_size", d.Storage.Remote.PartSize)
	v.SetDefault("storage.remote.concurrency", d.Storage.Remote.Concurrency)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.output_paths", d.Logging.OutputPaths)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)
	v.SetDefault("tracing.pretty_print", d.Tracing.PrettyPrint)
	v.SetDefault("tracing.batch_timeout", d.Tracing.BatchTimeout)

	v.SetDefault("workers", d.Workers)
}
