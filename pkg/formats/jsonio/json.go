// Package jsonio reads and writes tables as JSON records: either a single
// array of objects or newline-delimited objects (NDJSON).
//
// Column order follows the first appearance of each key. A key missing
// from a record is null in that row. Numbers become int64 when every
// value in the column is integral, float64 otherwise; a column mixing
// numbers and strings or booleans is read as strings. NaN and infinities
// have no JSON form and are written as null.
package jsonio

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/ajitpratap0/cpandas/pkg/pool"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Layout selects the record framing.
type Layout int

const (
	// Records is a JSON array of objects.
	Records Layout = iota
	// Lines is one object per line.
	Lines
)

// Write encodes t in the given layout.
func Write(w io.Writer, t *columnar.Table, layout Layout) error {
	bw := bufio.NewWriter(w)
	cols := t.Columns()

	keys := make([][]byte, len(cols))
	for j, c := range cols {
		k, err := json.Marshal(c.Name())
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalid, "encode column name").WithColumn(j)
		}
		keys[j] = k
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if layout == Records {
		bw.WriteByte('[')
	}
	for i := 0; i < t.NumRows(); i++ {
		buf.Reset()
		if layout == Records && i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range cols {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			if err := appendCell(buf, c, i); err != nil {
				return errors.Wrap(err, errors.CodeInvalid, "encode cell").At(i, j)
			}
		}
		buf.WriteByte('}')
		if layout == Lines {
			buf.WriteByte('\n')
		}
		bw.Write(buf.Bytes())
	}
	if layout == Records {
		bw.WriteString("]\n")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write json")
	}
	logger.Debug("json written", zap.Int("rows", t.NumRows()), zap.Int("columns", len(cols)))
	return nil
}

func appendCell(buf *bytes.Buffer, c *columnar.Column, i int) error {
	if c.IsNull(i) {
		buf.WriteString("null")
		return nil
	}
	switch c.DType() {
	case columnar.Int64:
		buf.WriteString(strconv.FormatInt(c.Int(i), 10))
	case columnar.Float64:
		f := c.Float(i)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf.WriteString("null")
			return nil
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		buf.WriteString(s)
		if isIntegral(s) {
			// keep the column float on the way back in
			buf.WriteString(".0")
		}
	default:
		b, err := json.Marshal(c.Str(i))
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

func isIntegral(s string) bool {
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'E' {
			return false
		}
	}
	return true
}

// record maps keys to json.Number, string, bool or nil.
type record map[string]interface{}

type reader struct {
	dec   *json.Decoder
	order []string
	seen  map[string]int
	rows  []record
}

// Read decodes t from the given layout.
func Read(r io.Reader, layout Layout) (*columnar.Table, error) {
	rd := &reader{
		dec:  json.NewDecoder(bufio.NewReader(r)),
		seen: make(map[string]int),
	}
	rd.dec.UseNumber()

	var err error
	if layout == Records {
		err = rd.readArray()
	} else {
		err = rd.readLines()
	}
	if err != nil {
		return nil, err
	}
	t, err := rd.table()
	if err != nil {
		return nil, err
	}
	logger.Debug("json read", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return t, nil
}

func (rd *reader) fail(err error, msg string) *errors.Error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrap(err, errors.CodeParse, msg).WithRow(len(rd.rows))
}

func (rd *reader) readArray() error {
	tok, err := rd.dec.Token()
	if err != nil {
		return rd.fail(err, "read json array")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return rd.fail(errors.Newf(errors.CodeParse, "unexpected token %v", tok), "expected JSON array")
	}
	for rd.dec.More() {
		if err := rd.readObject(); err != nil {
			return err
		}
	}
	if _, err := rd.dec.Token(); err != nil {
		return rd.fail(err, "close json array")
	}
	if _, err := rd.dec.Token(); err != io.EOF {
		return rd.fail(errors.New(errors.CodeParse, "trailing data"), "after json array")
	}
	return nil
}

func (rd *reader) readLines() error {
	for {
		if !rd.dec.More() {
			if _, err := rd.dec.Token(); err != io.EOF {
				return rd.fail(errors.New(errors.CodeParse, "unexpected token"), "read json lines")
			}
			return nil
		}
		if err := rd.readObject(); err != nil {
			return err
		}
	}
}

func (rd *reader) readObject() error {
	tok, err := rd.dec.Token()
	if err != nil {
		return rd.fail(err, "read json object")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return rd.fail(errors.Newf(errors.CodeParse, "unexpected token %v", tok), "expected JSON object")
	}
	rec := make(record)
	for rd.dec.More() {
		tok, err := rd.dec.Token()
		if err != nil {
			return rd.fail(err, "read json key")
		}
		key, ok := tok.(string)
		if !ok {
			return rd.fail(errors.Newf(errors.CodeParse, "unexpected key %v", tok), "read json key")
		}
		val, err := rd.dec.Token()
		if err != nil {
			return rd.fail(err, "read json value")
		}
		if d, ok := val.(json.Delim); ok {
			return rd.fail(errors.Newf(errors.CodeParse, "nested value %v for key %q", d, key), "read json value")
		}
		if _, dup := rec[key]; dup {
			return rd.fail(errors.Newf(errors.CodeParse, "duplicate key %q", key), "read json object")
		}
		if _, ok := rd.seen[key]; !ok {
			rd.seen[key] = len(rd.order)
			rd.order = append(rd.order, key)
		}
		rec[key] = val
	}
	if _, err := rd.dec.Token(); err != nil {
		return rd.fail(err, "close json object")
	}
	rd.rows = append(rd.rows, rec)
	return nil
}

func (rd *reader) dtype(key string) columnar.DType {
	dtype := columnar.Int64
	for _, rec := range rd.rows {
		switch v := rec[key].(type) {
		case json.Number:
			if dtype == columnar.Int64 {
				if _, err := v.Int64(); err != nil {
					dtype = columnar.Float64
				}
			}
		case string, bool:
			return columnar.String
		}
	}
	return dtype
}

func (rd *reader) table() (*columnar.Table, error) {
	cols := make([]*columnar.Column, len(rd.order))
	for j, key := range rd.order {
		c, err := columnar.NewColumn(key, rd.dtype(key), len(rd.rows))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeOf(err), "create column").WithColumn(j)
		}
		for i, rec := range rd.rows {
			if err := appendValue(c, rec[key]); err != nil {
				return nil, errors.Wrap(err, errors.CodeParse, "convert json value").At(i, j).WithColumnName(key)
			}
		}
		cols[j] = c
	}
	t, err := columnar.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "assemble json table")
	}
	return t, nil
}

func appendValue(c *columnar.Column, v interface{}) error {
	if v == nil {
		c.AppendNull()
		return nil
	}
	switch c.DType() {
	case columnar.Int64:
		n, err := v.(json.Number).Int64()
		if err != nil {
			return err
		}
		c.AppendInt(n)
	case columnar.Float64:
		f, err := v.(json.Number).Float64()
		if err != nil {
			return err
		}
		c.AppendFloat(f)
	default:
		switch x := v.(type) {
		case string:
			c.AppendString(x)
		case json.Number:
			c.AppendString(x.String())
		case bool:
			c.AppendString(strconv.FormatBool(x))
		}
	}
	return nil
}
