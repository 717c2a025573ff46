// Package cpd reads and writes CPD, a self-describing little-endian dump of
// a table.
//
// Layout:
//
//	"CPD1" | uint32 ncols | uint64 nrows
//	per column: uint32 name length | name | uint8 dtype (1 int64, 2 float64, 3 string)
//	per column: nrows null bytes (0 or 1), then
//	  int64/float64: nrows x 8 bytes
//	  string: uint64 total | nrows x uint64 length | total bytes
//
// Null cells store zero values and zero-length strings.
package cpd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"go.uber.org/zap"
)

const magic = "CPD1"

const (
	tagInt64   byte = 1
	tagFloat64 byte = 2
	tagString  byte = 3
)

func tagOf(d columnar.DType) byte {
	switch d {
	case columnar.Int64:
		return tagInt64
	case columnar.Float64:
		return tagFloat64
	default:
		return tagString
	}
}

func dtypeOf(tag byte) (columnar.DType, bool) {
	switch tag {
	case tagInt64:
		return columnar.Int64, true
	case tagFloat64:
		return columnar.Float64, true
	case tagString:
		return columnar.String, true
	}
	return 0, false
}

// WriteFile writes t to path.
func WriteFile(path string, t *columnar.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create cpd file").WithDetail("path", path)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "close cpd file").WithDetail("path", path)
	}
	return nil
}

// Write encodes t to w.
func Write(w io.Writer, t *columnar.Table) error {
	if t == nil {
		return errors.New(errors.CodeInvalid, "nil table")
	}
	if t.NumCols() > math.MaxUint32 {
		return errors.Newf(errors.CodeInvalid, "%d columns exceed the format limit", t.NumCols())
	}
	bw := bufio.NewWriter(w)
	rows := t.NumRows()

	buf := make([]byte, 0, 64)
	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.NumCols()))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(rows))
	for j, c := range t.Columns() {
		if len(c.Name()) > math.MaxUint32 {
			return errors.New(errors.CodeInvalid, "column name exceeds the format limit").WithColumn(j)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Name())))
		buf = append(buf, c.Name()...)
		buf = append(buf, tagOf(c.DType()))
	}
	bw.Write(buf)

	for _, c := range t.Columns() {
		buf = buf[:0]
		for i := 0; i < rows; i++ {
			if c.IsNull(i) {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}

		switch c.DType() {
		case columnar.Int64:
			for i := 0; i < rows; i++ {
				var v int64
				if !c.IsNull(i) {
					v = c.Int(i)
				}
				buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
			}
		case columnar.Float64:
			for i := 0; i < rows; i++ {
				var v float64
				if !c.IsNull(i) {
					v = c.Float(i)
				}
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		default:
			var total uint64
			for i := 0; i < rows; i++ {
				if !c.IsNull(i) {
					total += uint64(len(c.Str(i)))
				}
			}
			buf = binary.LittleEndian.AppendUint64(buf, total)
			for i := 0; i < rows; i++ {
				var n int
				if !c.IsNull(i) {
					n = len(c.Str(i))
				}
				buf = binary.LittleEndian.AppendUint64(buf, uint64(n))
			}
			for i := 0; i < rows; i++ {
				if !c.IsNull(i) {
					buf = append(buf, c.Str(i)...)
				}
			}
		}
		bw.Write(buf)
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write cpd")
	}
	logger.Debug("cpd written", zap.Int("rows", rows), zap.Int("columns", t.NumCols()))
	return nil
}

// ReadFile reads a CPD file.
func ReadFile(path string) (*columnar.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "open cpd file").WithDetail("path", path)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "read cpd file").WithDetail("path", path)
	}
	return t, nil
}

// decoder reads fixed-layout fields and turns short reads into parse errors.
type decoder struct {
	r   *bufio.Reader
	pos int64
}

func (d *decoder) fail(format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.CodeParse, "cpd: "+format, args...).WithDetail("offset", d.pos)
}

func (d *decoder) readErr(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return d.fail("truncated %s", what)
	}
	return errors.Wrap(err, errors.CodeIO, "read cpd "+what)
}

func (d *decoder) full(b []byte, what string) error {
	n, err := io.ReadFull(d.r, b)
	d.pos += int64(n)
	if err != nil {
		return d.readErr(err, what)
	}
	return nil
}

func (d *decoder) u32(what string) (uint32, error) {
	var b [4]byte
	if err := d.full(b[:], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (d *decoder) u64(what string) (uint64, error) {
	var b [8]byte
	if err := d.full(b[:], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// bytes reads n bytes, growing the buffer only as input arrives so a bogus
// length cannot force a huge allocation.
func (d *decoder) bytes(n uint64, what string) ([]byte, error) {
	if n > math.MaxInt64 {
		return nil, d.fail("%s length %d out of range", what, n)
	}
	var buf bytes.Buffer
	m, err := io.CopyN(&buf, d.r, int64(n))
	d.pos += m
	if err != nil {
		return nil, d.readErr(err, what)
	}
	return buf.Bytes(), nil
}

// Read decodes a CPD stream. The stream must end right after the last
// column; no partial table is returned on failure.
func Read(r io.Reader) (*columnar.Table, error) {
	d := &decoder{r: bufio.NewReader(r)}

	head := make([]byte, len(magic))
	if err := d.full(head, "magic"); err != nil {
		return nil, err
	}
	if string(head) != magic {
		return nil, d.fail("bad magic %q", head)
	}
	ncols, err := d.u32("column count")
	if err != nil {
		return nil, err
	}
	nrows64, err := d.u64("row count")
	if err != nil {
		return nil, err
	}
	if nrows64 > math.MaxInt64/8 {
		return nil, d.fail("row count %d out of range", nrows64)
	}
	rows := int(nrows64)

	type field struct {
		name  string
		dtype columnar.DType
	}
	var fields []field
	for j := uint32(0); j < ncols; j++ {
		n, err := d.u32("name length")
		if err != nil {
			return nil, err
		}
		name, err := d.bytes(uint64(n), "column name")
		if err != nil {
			return nil, err
		}
		var tag [1]byte
		if err := d.full(tag[:], "dtype tag"); err != nil {
			return nil, err
		}
		dtype, ok := dtypeOf(tag[0])
		if !ok {
			return nil, errors.Newf(errors.CodeParse, "cpd: unknown dtype tag %d for column %q", tag[0], name).WithColumn(int(j))
		}
		fields = append(fields, field{name: string(name), dtype: dtype})
	}

	hint := rows
	if hint > 1<<20 {
		hint = 1 << 20
	}
	cols := make([]*columnar.Column, len(fields))
	for j, f := range fields {
		c, err := columnar.NewColumn(f.name, f.dtype, hint)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "cpd: column header").WithColumn(j)
		}
		if err := d.readColumn(c, rows); err != nil {
			return nil, errors.Wrap(err, errors.CodeOf(err), "cpd: column data").WithColumn(j).WithColumnName(f.name)
		}
		cols[j] = c
	}

	var extra [1]byte
	if n, _ := d.r.Read(extra[:]); n > 0 {
		return nil, d.fail("trailing data after last column")
	}

	t, err := columnar.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "cpd: assemble table")
	}
	logger.Debug("cpd read", zap.Int("rows", rows), zap.Int("columns", len(cols)))
	return t, nil
}

func (d *decoder) readColumn(c *columnar.Column, rows int) error {
	nulls, err := d.bytes(uint64(rows), "null flags")
	if err != nil {
		return err
	}
	for i, b := range nulls {
		if b > 1 {
			return d.fail("null flag %d at row %d", b, i).WithRow(i)
		}
	}

	switch c.DType() {
	case columnar.Int64, columnar.Float64:
		data, err := d.bytes(uint64(rows)*8, "values")
		if err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			if nulls[i] == 1 {
				c.AppendNull()
				continue
			}
			u := binary.LittleEndian.Uint64(data[i*8:])
			if c.DType() == columnar.Int64 {
				c.AppendInt(int64(u))
			} else {
				c.AppendFloat(math.Float64frombits(u))
			}
		}
		return nil
	}

	total, err := d.u64("string total")
	if err != nil {
		return err
	}
	lens, err := d.bytes(uint64(rows)*8, "string lengths")
	if err != nil {
		return err
	}
	var sum uint64
	for i := 0; i < rows; i++ {
		n := binary.LittleEndian.Uint64(lens[i*8:])
		if nulls[i] == 1 && n != 0 {
			return d.fail("null row %d has string length %d", i, n).WithRow(i)
		}
		if n > total-sum {
			return d.fail("string lengths exceed declared total %d", total).WithRow(i)
		}
		sum += n
	}
	if sum != total {
		return d.fail("string lengths sum to %d, declared total %d", sum, total)
	}
	data, err := d.bytes(total, "string bytes")
	if err != nil {
		return err
	}
	var off uint64
	for i := 0; i < rows; i++ {
		if nulls[i] == 1 {
			c.AppendNull()
			continue
		}
		n := binary.LittleEndian.Uint64(lens[i*8:])
		c.AppendString(string(data[off : off+n]))
		off += n
	}
	return nil
}
