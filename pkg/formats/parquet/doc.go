// Package parquet reads and writes flat Parquet files for cpandas tables.
//
// The writer emits one row group per RowGroupSize rows (65536 by default).
// Each column chunk holds an optional PLAIN dictionary page and a single v1
// data page. Columns containing a null are OPTIONAL with RLE definition
// levels; the rest are REQUIRED. Values are PLAIN encoded, or dictionary
// encoded with RLE indices when that form is strictly smaller. Pages are
// compressed with the configured codec: uncompressed, Snappy, gzip or zstd.
//
// The footer is hand-encoded with the Thrift compact protocol and bracketed
// by the PAR1 magic and a little-endian footer length.
//
// The reader accepts flat schemas of INT32, INT64, FLOAT, DOUBLE and
// BYTE_ARRAY leaves. INT32 widens to Int64 and FLOAT to Float64. It handles
// multiple v1 data pages per chunk and bit-packed runs in levels and indices.
// Any structural inconsistency is a parse error.
package parquet
