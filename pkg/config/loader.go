package config

import (
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, so CPANDAS_PARQUET_CODEC
// sets parquet.codec.
const EnvPrefix = "CPANDAS"

// Load reads the optional YAML file at path, applies CPANDAS_* environment
// overrides and validates the result. An empty path reads only the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, errors.Wrap(err, errors.CodeInvalid, "parse config file").WithDetail("path", path)
			}
			return nil, errors.Wrap(err, errors.CodeIO, "read config file").WithDetail("path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv loads the defaults with CPANDAS_* environment overrides applied.
func FromEnv() (*Config, error) {
	return Load("")
}

// setDefaults registers every key so AutomaticEnv can bind it on Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("parquet.codec", d.Parquet.Codec)
	v.SetDefault("parquet.row_group_size", d.Parquet.RowGroupSize)
	v.SetDefault("parquet.dictionary", d.Parquet.Dictionary)

	v.SetDefault("csv.delimiter", d.CSV.Delimiter)
	v.SetDefault("csv.header", d.CSV.Header)
	v.SetDefault("csv.na_values", d.CSV.NAValues)
	v.SetDefault("csv.null_token", d.CSV.NullToken)

	v.SetDefault("join.strategy", d.Join.Strategy)
	v.SetDefault("join.left_suffix", d.Join.LeftSuffix)
	v.SetDefault("join.right_suffix", d.Join.RightSuffix)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.development", d.Logging.Development)
}
