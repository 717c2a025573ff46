// Package csv reads and writes delimited text tables.
package csv

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	stringpool "github.com/ajitpratap0/cpandas/pkg/strings"
	"go.uber.org/zap"
)

// Options configures Read and Write.
type Options struct {
	Delimiter rune
	// Header reports whether the first record holds column names. Without
	// one, columns are named col0, col1, ...
	Header bool
	// NAValues are read as null in every column.
	NAValues []string
	// NullToken is written for null cells.
	NullToken string
	// Schema fixes column names and dtypes. When nil dtypes are inferred:
	// int64 if every non-null field parses as one, then float64, else string.
	Schema *columnar.Schema
}

// DefaultOptions returns comma-separated options with a header row.
func DefaultOptions() *Options {
	return &Options{
		Delimiter: ',',
		Header:    true,
		NAValues:  []string{"", "NA", "null"},
	}
}

// TSVOptions returns DefaultOptions with a tab delimiter.
func TSVOptions() *Options {
	o := DefaultOptions()
	o.Delimiter = '\t'
	return o
}

// maxInterned bounds the distinct values deduplicated per string column.
const maxInterned = 1 << 14

// Read parses delimited text into a table. Repeated values in string
// columns share storage.
func Read(r io.Reader, opts *Options) (*columnar.Table, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, errors.Wrap(err, errors.CodeParse, "parse delimited text").WithDetail("line", pe.Line)
		}
		return nil, errors.Wrap(err, errors.CodeIO, "read delimited text")
	}

	var names []string
	if opts.Header {
		if len(records) == 0 {
			return nil, errors.New(errors.CodeParse, "missing header row")
		}
		names, records = records[0], records[1:]
	}

	schema, err := resolveSchema(opts, names, records)
	if err != nil {
		return nil, err
	}
	b, err := columnar.NewBuilder(schema, columnar.WithNAValues(opts.NAValues...))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "build columns from header")
	}
	interns := make([]*stringpool.Intern, len(schema.Fields))
	for j, f := range schema.Fields {
		if f.Type == columnar.String {
			interns[j] = stringpool.NewIntern(maxInterned)
		}
	}
	for _, rec := range records {
		for j, in := range interns {
			if in != nil && j < len(rec) {
				rec[j] = in.Get(rec[j])
			}
		}
		if err := b.AppendText(rec); err != nil {
			return nil, err
		}
	}
	t := b.Table()
	logger.Debug("csv read", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return t, nil
}

func resolveSchema(opts *Options, names []string, records [][]string) (columnar.Schema, error) {
	if opts.Schema != nil {
		if names != nil && len(names) != len(opts.Schema.Fields) {
			return columnar.Schema{}, errors.Newf(errors.CodeParse, "header has %d fields, schema has %d", len(names), len(opts.Schema.Fields))
		}
		return *opts.Schema, nil
	}
	if names == nil {
		width := 0
		if len(records) > 0 {
			width = len(records[0])
		}
		names = make([]string, width)
		for j := range names {
			names[j] = "col" + strconv.Itoa(j)
		}
	}

	na := make(map[string]bool, len(opts.NAValues))
	for _, tok := range opts.NAValues {
		na[tok] = true
	}
	schema := columnar.Schema{Fields: make([]columnar.Field, len(names))}
	for j, name := range names {
		schema.Fields[j] = columnar.Field{Name: name, Type: inferColumn(records, j, na)}
	}
	return schema, nil
}

func inferColumn(records [][]string, j int, na map[string]bool) columnar.DType {
	dtype := columnar.Int64
	for _, rec := range records {
		if j >= len(rec) {
			continue
		}
		f := rec[j]
		if na[f] || strings.TrimSpace(f) == "" {
			continue
		}
		f = strings.TrimSpace(f)
		if dtype == columnar.Int64 {
			if _, err := strconv.ParseInt(f, 10, 64); err == nil {
				continue
			}
			dtype = columnar.Float64
		}
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			return columnar.String
		}
	}
	return dtype
}

// Write renders t as delimited text.
func Write(w io.Writer, t *columnar.Table, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter

	if opts.Header {
		if err := cw.Write(t.ColumnNames()); err != nil {
			return errors.Wrap(err, errors.CodeIO, "write header")
		}
	}
	cols := t.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range cols {
			rec[j] = FormatCell(c, i, opts.NullToken)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, errors.CodeIO, "write record").WithRow(i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "flush delimited text")
	}
	logger.Debug("csv written", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return nil
}

// FormatCell renders one cell as text, null as nullToken.
func FormatCell(c *columnar.Column, i int, nullToken string) string {
	if c.IsNull(i) {
		return nullToken
	}
	switch c.DType() {
	case columnar.Int64:
		return strconv.FormatInt(c.Int(i), 10)
	case columnar.Float64:
		return strconv.FormatFloat(c.Float(i), 'g', -1, 64)
	default:
		return c.Str(i)
	}
}
