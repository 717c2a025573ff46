// Package formats dispatches table reads and writes to the codec matching a
// file name, optionally wrapped in a stream compressor named by a trailing
// suffix such as ".gz" or ".zst".
package formats

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/compression"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats/arrowio"
	"github.com/ajitpratap0/cpandas/pkg/formats/avro"
	"github.com/ajitpratap0/cpandas/pkg/formats/cpd"
	"github.com/ajitpratap0/cpandas/pkg/formats/csv"
	"github.com/ajitpratap0/cpandas/pkg/formats/jsonio"
	"github.com/ajitpratap0/cpandas/pkg/formats/parquet"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/ajitpratap0/cpandas/pkg/metrics"
	"go.uber.org/zap"
)

// Format names a table file format.
type Format string

const (
	// Parquet is Apache Parquet
	Parquet Format = "parquet"
	// CPD is the native binary dump
	CPD Format = "cpd"
	// Arrow is the Arrow IPC file format
	Arrow Format = "arrow"
	// Avro is the Avro object container format
	Avro Format = "avro"
	// CSV is comma-separated text
	CSV Format = "csv"
	// TSV is tab-separated text
	TSV Format = "tsv"
	// JSON is an array of JSON objects
	JSON Format = "json"
	// NDJSON is newline-delimited JSON objects
	NDJSON Format = "ndjson"
)

// FormatInfo describes a format.
type FormatInfo struct {
	Format      Format
	Name        string
	Description string
	Extensions  []string
	Binary      bool
	// KeepsNulls reports whether null cells survive a round trip unchanged.
	KeepsNulls bool
	// KeepsIndex reports whether the row-label column survives.
	KeepsIndex bool
}

var infos = []FormatInfo{
	{Parquet, "Apache Parquet", "Columnar storage with dictionary and RLE encodings", []string{".parquet", ".pq"}, true, true, true},
	{CPD, "cpandas dump", "Self-describing little-endian column dump", []string{".cpd"}, true, true, false},
	{Arrow, "Apache Arrow IPC", "Arrow record batches in the IPC file format", []string{".arrow", ".feather", ".ipc"}, true, true, true},
	{Avro, "Apache Avro", "Row-oriented object container file", []string{".avro"}, true, true, true},
	{CSV, "CSV", "Comma-separated text with a header row", []string{".csv"}, false, false, false},
	{TSV, "TSV", "Tab-separated text with a header row", []string{".tsv", ".tab"}, false, false, false},
	{JSON, "JSON records", "Array of JSON objects", []string{".json"}, false, false, false},
	{NDJSON, "NDJSON", "One JSON object per line", []string{".ndjson", ".jsonl"}, false, false, false},
}

// Formats lists every supported format.
func Formats() []Format {
	out := make([]Format, len(infos))
	for i, in := range infos {
		out[i] = in.Format
	}
	return out
}

// GetFormatInfo returns information about a format, or nil if unknown.
func GetFormatInfo(f Format) *FormatInfo {
	for i := range infos {
		if infos[i].Format == f {
			info := infos[i]
			return &info
		}
	}
	return nil
}

// ParseFormat resolves a format name or extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	for _, in := range infos {
		if string(in.Format) == s {
			return in.Format, nil
		}
		for _, ext := range in.Extensions {
			if ext[1:] == s {
				return in.Format, nil
			}
		}
	}
	return "", errors.Newf(errors.CodeInvalid, "unknown format %q", s)
}

// Detect returns the format and stream compression implied by path, for
// example "data.csv.gz" is gzip-compressed CSV.
func Detect(path string) (Format, compression.Algorithm, error) {
	alg, base := compression.FromPath(path)
	ext := filepath.Ext(base)
	if ext == "" {
		return "", alg, errors.New(errors.CodeInvalid, "cannot detect format without a file extension").WithDetail("path", path)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", alg, errors.Wrap(err, errors.CodeInvalid, "detect format").WithDetail("path", path)
	}
	return f, alg, nil
}

// Options tunes individual codecs. A nil Options or nil field uses the
// codec defaults.
type Options struct {
	// Format overrides detection from the file name.
	Format Format
	// Compression overrides detection from the file name when set.
	Compression compression.Algorithm
	Level       compression.Level
	Parquet     *parquet.WriterConfig
	CSV         *csv.Options
	Avro        *avro.Options
}

func (o *Options) resolve(path string) (Format, compression.Algorithm, error) {
	f, alg, err := Detect(path)
	if o != nil && o.Format != "" {
		f, err = o.Format, nil
		if GetFormatInfo(f) == nil {
			return "", "", errors.Newf(errors.CodeInvalid, "unknown format %q", f)
		}
	}
	if o != nil && o.Compression != "" {
		alg = o.Compression
	}
	return f, alg, err
}

func (o *Options) csvOptions(f Format) *csv.Options {
	if o != nil && o.CSV != nil {
		c := *o.CSV
		if f == TSV {
			c.Delimiter = '\t'
		}
		return &c
	}
	if f == TSV {
		return csv.TSVOptions()
	}
	return csv.DefaultOptions()
}

// Read decodes a table of format f from r.
func Read(r io.Reader, f Format, opts *Options) (*columnar.Table, error) {
	switch f {
	case Parquet:
		return parquet.Read(r)
	case CPD:
		return cpd.Read(r)
	case Arrow:
		return arrowio.Read(r)
	case Avro:
		return avro.Read(r)
	case CSV, TSV:
		return csv.Read(r, opts.csvOptions(f))
	case JSON:
		return jsonio.Read(r, jsonio.Records)
	case NDJSON:
		return jsonio.Read(r, jsonio.Lines)
	}
	return nil, errors.Newf(errors.CodeInvalid, "unsupported format %q", f)
}

// Write encodes t as format f to w.
func Write(w io.Writer, t *columnar.Table, f Format, opts *Options) error {
	switch f {
	case Parquet:
		var cfg *parquet.WriterConfig
		if opts != nil {
			cfg = opts.Parquet
		}
		return parquet.Write(w, t, cfg)
	case CPD:
		return cpd.Write(w, t)
	case Arrow:
		return arrowio.Write(w, t)
	case Avro:
		var ao *avro.Options
		if opts != nil {
			ao = opts.Avro
		}
		return avro.Write(w, t, ao)
	case CSV, TSV:
		return csv.Write(w, t, opts.csvOptions(f))
	case JSON:
		return jsonio.Write(w, t, jsonio.Records)
	case NDJSON:
		return jsonio.Write(w, t, jsonio.Lines)
	}
	return errors.Newf(errors.CodeInvalid, "unsupported format %q", f)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ReadFile reads the table stored at path.
func ReadFile(path string, opts *Options) (*columnar.Table, error) {
	f, alg, err := opts.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "open file").WithDetail("path", path)
	}
	defer file.Close()

	timer := metrics.NewTimer(string(f), metrics.OpRead)
	counter := &countingReader{r: bufio.NewReader(file)}
	src, err := compression.NewReader(alg, counter)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "open compressed stream").WithDetail("path", path)
	}
	defer src.Close()

	t, err := Read(src, f, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "read "+string(f)).WithDetail("path", path)
	}
	d := timer.Done(t.NumRows(), counter.n)
	logger.Debug("table read",
		zap.String("path", path),
		zap.String("format", string(f)),
		zap.String("compression", string(alg)),
		zap.Int("rows", t.NumRows()),
		zap.Duration("duration", d))
	return t, nil
}

// WriteFile writes t to path, replacing any existing file. A failed write
// removes the partial file.
func WriteFile(path string, t *columnar.Table, opts *Options) (err error) {
	f, alg, err := opts.resolve(path)
	if err != nil {
		return err
	}
	level := compression.Default
	if opts != nil && opts.Level != 0 {
		level = opts.Level
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create file").WithDetail("path", path)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(path)
		}
	}()

	timer := metrics.NewTimer(string(f), metrics.OpWrite)
	counter := &countingWriter{w: file}
	bw := bufio.NewWriter(counter)
	dst, err := compression.NewWriter(alg, level, bw)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalid, "open compressed stream").WithDetail("path", path)
	}
	if err := Write(dst, t, f, opts); err != nil {
		dst.Close()
		return errors.Wrap(err, errors.CodeOf(err), "write "+string(f)).WithDetail("path", path)
	}
	if err := dst.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "close compressed stream").WithDetail("path", path)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "flush file").WithDetail("path", path)
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "close file").WithDetail("path", path)
	}
	d := timer.Done(t.NumRows(), counter.n)
	logger.Debug("table written",
		zap.String("path", path),
		zap.String("format", string(f)),
		zap.String("compression", string(alg)),
		zap.Int("rows", t.NumRows()),
		zap.Duration("duration", d))
	return nil
}
