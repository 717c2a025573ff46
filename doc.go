// Package cpandas provides an in-memory columnar dataframe engine together
// with codecs for the file formats tables are usually exchanged in.
//
// A table is an ordered set of equally long, uniquely named columns. Each
// column holds int64, float64 or string cells plus a per-cell null flag, so
// a missing value is distinguishable from a zero, an empty string or NaN.
//
// # Quick Start
//
// Read a CSV file, keep the matching rows and write them as Parquet:
//
//	import (
//	    "github.com/ajitpratap0/cpandas/pkg/formats"
//	    "github.com/ajitpratap0/cpandas/pkg/query"
//	)
//
//	t, err := formats.ReadFile("sales.csv", nil)
//	if err != nil {
//	    return err
//	}
//	eu, err := query.Filter(t, "region == 'EU' and amount > 100")
//	if err != nil {
//	    return err
//	}
//	return formats.WriteFile("sales_eu.parquet", eu, nil)
//
// # Key Packages
//
//	pkg/columnar          - Columns, tables, joins, grouping and statistics
//	pkg/query             - Boolean filter expressions over table columns
//	pkg/formats           - Format detection and dispatch by file name
//	pkg/formats/parquet   - Parquet reader and writer (PLAIN, dictionary, RLE)
//	pkg/formats/cpd       - Native little-endian column dump
//	pkg/formats/arrowio   - Arrow IPC files
//	pkg/formats/avro      - Avro object container files
//	pkg/formats/csv       - Delimited text with type inference
//	pkg/formats/jsonio    - JSON records and newline-delimited JSON
//	pkg/formats/sqlio     - PostgreSQL and MySQL import, INSERT export
//	pkg/compression       - Stream and block compression (gzip, zstd, lz4, s2, snappy)
//	pkg/config            - YAML and environment configuration
//	pkg/errors            - Coded errors with row and column locations
//	pkg/logger            - Structured logging
//	pkg/metrics           - Codec counters and latency histograms
//
// # Errors
//
// Every failure is an *errors.Error carrying one of four codes: Invalid for
// bad arguments, OutOfMemory for capacity limits, Parse for malformed input
// and IO for the underlying reader or writer. Parse errors point at the
// offending row and column where one is known:
//
//	if errors.IsCode(err, errors.CodeParse) {
//	    row, col := errors.Location(err)
//	    ...
//	}
//
// # Command Line
//
// The cpandas command wraps the packages above:
//
//	cpandas head -n 5 sales.parquet
//	cpandas query sales.csv.gz "amount >= 100"
//	cpandas groupby sales.avro --key region --agg amount:sum
//	cpandas convert --to parquet --out-dir out/ data/*.csv
package cpandas
