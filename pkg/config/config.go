// Package config holds the cpandas runtime configuration: Parquet output,
// delimited text parsing, join defaults and logging.
//
// Example usage:
//
//	cfg, err := config.Load("cpandas.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pq, err := cfg.ParquetWriterConfig()
package config

import (
	"strings"
	"unicode/utf8"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats/csv"
	"github.com/ajitpratap0/cpandas/pkg/formats/parquet"
	"github.com/ajitpratap0/cpandas/pkg/logger"
)

// Config is the complete runtime configuration.
type Config struct {
	// Parquet controls Parquet output
	Parquet ParquetConfig `yaml:"parquet" mapstructure:"parquet"`
	// CSV controls delimited text input and output
	CSV CSVConfig `yaml:"csv" mapstructure:"csv"`
	// Join holds join defaults
	Join JoinConfig `yaml:"join" mapstructure:"join"`
	// Logging configures the global logger
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ParquetConfig contains Parquet writer settings.
type ParquetConfig struct {
	// Codec is the page compression: snappy, none/uncompressed, gzip or zstd
	Codec        string `yaml:"codec" mapstructure:"codec"`
	RowGroupSize int    `yaml:"row_group_size" mapstructure:"row_group_size"`
	// Dictionary enables dictionary pages where they are smaller
	Dictionary bool `yaml:"dictionary" mapstructure:"dictionary"`
}

// CSVConfig contains delimited text settings.
type CSVConfig struct {
	Delimiter string   `yaml:"delimiter" mapstructure:"delimiter"`
	Header    bool     `yaml:"header" mapstructure:"header"`
	NAValues  []string `yaml:"na_values" mapstructure:"na_values"`
	NullToken string   `yaml:"null_token" mapstructure:"null_token"`
}

// JoinConfig contains join defaults.
type JoinConfig struct {
	// Strategy is auto, hash, sort or nested
	Strategy    string `yaml:"strategy" mapstructure:"strategy"`
	LeftSuffix  string `yaml:"left_suffix" mapstructure:"left_suffix"`
	RightSuffix string `yaml:"right_suffix" mapstructure:"right_suffix"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	csvDefaults := csv.DefaultOptions()
	return &Config{
		Parquet: ParquetConfig{
			Codec:        "snappy",
			RowGroupSize: parquet.DefaultRowGroupSize,
			Dictionary:   true,
		},
		CSV: CSVConfig{
			Delimiter: string(csvDefaults.Delimiter),
			Header:    csvDefaults.Header,
			NAValues:  csvDefaults.NAValues,
		},
		Join: JoinConfig{
			Strategy:    columnar.AutoStrategy.String(),
			LeftSuffix:  columnar.DefaultSuffixes[0],
			RightSuffix: columnar.DefaultSuffixes[1],
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// ParseParquetCodec resolves a codec name as accepted in
// CPANDAS_PARQUET_CODEC: unset or snappy, none or uncompressed, gzip, zstd.
// Anything else is an invalid configuration.
func ParseParquetCodec(s string) (parquet.Codec, error) {
	c, err := parquet.ParseCodec(s)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInvalid, "parquet.codec")
	}
	return c, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := ParseParquetCodec(c.Parquet.Codec); err != nil {
		return err
	}
	if c.Parquet.RowGroupSize <= 0 {
		return errors.Newf(errors.CodeInvalid, "parquet.row_group_size must be positive, got %d", c.Parquet.RowGroupSize)
	}
	if utf8.RuneCountInString(c.CSV.Delimiter) != 1 {
		return errors.Newf(errors.CodeInvalid, "csv.delimiter must be a single character, got %q", c.CSV.Delimiter)
	}
	if r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter); r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return errors.Newf(errors.CodeInvalid, "csv.delimiter %q is not allowed", c.CSV.Delimiter)
	}
	if _, err := columnar.ParseJoinStrategy(c.Join.Strategy); err != nil {
		return errors.Wrap(err, errors.CodeInvalid, "join.strategy")
	}
	if c.Join.LeftSuffix == c.Join.RightSuffix {
		return errors.New(errors.CodeInvalid, "join suffixes must differ")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CodeInvalid, "logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return errors.Newf(errors.CodeInvalid, "logging.encoding %q must be json or console", c.Logging.Encoding)
	}
	return nil
}

// ParquetWriterConfig converts the Parquet section.
func (c *Config) ParquetWriterConfig() (*parquet.WriterConfig, error) {
	codec, err := ParseParquetCodec(c.Parquet.Codec)
	if err != nil {
		return nil, err
	}
	return &parquet.WriterConfig{
		Codec:             codec,
		RowGroupSize:      c.Parquet.RowGroupSize,
		DisableDictionary: !c.Parquet.Dictionary,
	}, nil
}

// CSVOptions converts the CSV section. Call Validate first.
func (c *Config) CSVOptions() *csv.Options {
	r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter)
	return &csv.Options{
		Delimiter: r,
		Header:    c.CSV.Header,
		NAValues:  append([]string(nil), c.CSV.NAValues...),
		NullToken: c.CSV.NullToken,
	}
}

// JoinOptions returns join options carrying the configured strategy and
// suffixes; callers fill in the keys and kind.
func (c *Config) JoinOptions() (columnar.JoinOptions, error) {
	s, err := columnar.ParseJoinStrategy(c.Join.Strategy)
	if err != nil {
		return columnar.JoinOptions{}, errors.Wrap(err, errors.CodeInvalid, "join.strategy")
	}
	return columnar.JoinOptions{
		Strategy: s,
		Suffixes: [2]string{c.Join.LeftSuffix, c.Join.RightSuffix},
	}, nil
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       strings.ToLower(c.Logging.Level),
		Development: c.Logging.Development,
		Encoding:    c.Logging.Encoding,
		OutputPaths: []string{"stderr"},
	}
}
