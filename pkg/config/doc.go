// Package config loads cpandas settings from YAML files and the environment.
//
// # Sources
//
// Load layers three sources, later ones winning:
//
//  1. Built-in defaults (Default)
//  2. An optional YAML file
//  3. CPANDAS_* environment variables, with "." in a key replaced by "_"
//
// so CPANDAS_PARQUET_CODEC=gzip overrides parquet.codec. LoadYAML reads a
// file over the defaults without environment overrides but expands ${VAR}
// references inside the file:
//
//	# cpandas.yaml
//	parquet:
//	  codec: ${PARQUET_CODEC}
//	  row_group_size: 65536
//	csv:
//	  delimiter: ","
//	  na_values: ["", "NA"]
//
// # Validation
//
// Every loader validates the result. An unknown Parquet codec, a
// multi-character delimiter or an unknown join strategy is reported with
// errors.CodeInvalid. Library packages never read the environment; the
// CLI converts the loaded Config into codec options.
package config
