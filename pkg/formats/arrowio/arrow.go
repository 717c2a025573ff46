// Package arrowio converts tables to and from Apache Arrow record batches
// and reads and writes Arrow IPC files.
package arrowio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
)

// IndexKey is the schema metadata key holding the row-label column name.
const IndexKey = "cpandas.index"

// DefaultBatchSize is the number of rows per record batch written by Write.
const DefaultBatchSize = 64 * 1024

// Schema converts a table schema to an Arrow schema. Every field is
// nullable.
func Schema(t *columnar.Table) *arrow.Schema {
	fields := make([]arrow.Field, t.NumCols())
	for i, c := range t.Columns() {
		fields[i] = arrow.Field{Name: c.Name(), Type: arrowType(c.DType()), Nullable: true}
	}
	var md *arrow.Metadata
	if t.Index() != "" {
		m := arrow.NewMetadata([]string{IndexKey}, []string{t.Index()})
		md = &m
	}
	return arrow.NewSchema(fields, md)
}

func arrowType(d columnar.DType) arrow.DataType {
	switch d {
	case columnar.Int64:
		return arrow.PrimitiveTypes.Int64
	case columnar.Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// dtypeOf maps an Arrow type onto the dtype it widens to.
func dtypeOf(t arrow.DataType) (columnar.DType, bool) {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return columnar.Int64, true
	case arrow.FLOAT32, arrow.FLOAT64:
		return columnar.Float64, true
	case arrow.STRING, arrow.LARGE_STRING:
		return columnar.String, true
	}
	return 0, false
}

// ToRecord copies rows [lo, hi) of t into a new record. The caller releases
// the record.
func ToRecord(mem memory.Allocator, t *columnar.Table, lo, hi int) (arrow.Record, error) {
	if lo < 0 || hi > t.NumRows() || lo > hi {
		return nil, errors.Newf(errors.CodeInvalid, "row range [%d, %d) out of bounds for %d rows", lo, hi, t.NumRows())
	}
	b := array.NewRecordBuilder(mem, Schema(t))
	defer b.Release()

	for j, c := range t.Columns() {
		switch fb := b.Field(j).(type) {
		case *array.Int64Builder:
			fb.Reserve(hi - lo)
			for i := lo; i < hi; i++ {
				if c.IsNull(i) {
					fb.AppendNull()
				} else {
					fb.Append(c.Int(i))
				}
			}
		case *array.Float64Builder:
			fb.Reserve(hi - lo)
			for i := lo; i < hi; i++ {
				if c.IsNull(i) {
					fb.AppendNull()
				} else {
					fb.Append(c.Float(i))
				}
			}
		case *array.StringBuilder:
			fb.Reserve(hi - lo)
			for i := lo; i < hi; i++ {
				if c.IsNull(i) {
					fb.AppendNull()
				} else {
					fb.Append(c.Str(i))
				}
			}
		default:
			return nil, errors.Newf(errors.CodeInvalid, "unsupported builder type: %T", fb).WithColumn(j)
		}
	}
	return b.NewRecord(), nil
}

// AppendRecord appends the rows of rec to cols, which must match rec's
// fields in order and dtype.
func AppendRecord(cols []*columnar.Column, rec arrow.Record) error {
	if int(rec.NumCols()) != len(cols) {
		return errors.Newf(errors.CodeParse, "record has %d columns, want %d", rec.NumCols(), len(cols))
	}
	for j, arr := range rec.Columns() {
		if err := appendArray(cols[j], arr); err != nil {
			return errors.Wrap(err, errors.CodeOf(err), "append arrow column").WithColumn(j).WithColumnName(cols[j].Name())
		}
	}
	return nil
}

func appendArray(c *columnar.Column, arr arrow.Array) error {
	n := arr.Len()
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			c.AppendNull()
			continue
		}
		switch a := arr.(type) {
		case *array.Int8:
			c.AppendInt(int64(a.Value(i)))
		case *array.Int16:
			c.AppendInt(int64(a.Value(i)))
		case *array.Int32:
			c.AppendInt(int64(a.Value(i)))
		case *array.Int64:
			c.AppendInt(a.Value(i))
		case *array.Uint8:
			c.AppendInt(int64(a.Value(i)))
		case *array.Uint16:
			c.AppendInt(int64(a.Value(i)))
		case *array.Uint32:
			c.AppendInt(int64(a.Value(i)))
		case *array.Float32:
			c.AppendFloat(float64(a.Value(i)))
		case *array.Float64:
			c.AppendFloat(a.Value(i))
		case *array.String:
			c.AppendString(a.Value(i))
		case *array.LargeString:
			c.AppendString(a.Value(i))
		default:
			return errors.Newf(errors.CodeInvalid, "unsupported arrow type %s", arr.DataType()).WithRow(c.Len())
		}
	}
	return nil
}

// NewColumns creates empty columns for an Arrow schema.
func NewColumns(s *arrow.Schema, capacity int) ([]*columnar.Column, error) {
	cols := make([]*columnar.Column, s.NumFields())
	for j, f := range s.Fields() {
		dtype, ok := dtypeOf(f.Type)
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "unsupported arrow type %s for field %q", f.Type, f.Name).WithColumn(j).WithColumnName(f.Name)
		}
		c, err := columnar.NewColumn(f.Name, dtype, capacity)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	return cols, nil
}

// FromRecords builds a table from record batches sharing schema s.
func FromRecords(s *arrow.Schema, recs ...arrow.Record) (*columnar.Table, error) {
	var rows int64
	for _, r := range recs {
		rows += r.NumRows()
	}
	hint := rows
	if hint > columnar.MaxCapacity {
		hint = columnar.MaxCapacity
	}
	cols, err := NewColumns(s, int(hint))
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if err := AppendRecord(cols, r); err != nil {
			return nil, err
		}
	}
	return assemble(s, cols)
}

func assemble(s *arrow.Schema, cols []*columnar.Column) (*columnar.Table, error) {
	t, err := columnar.NewTable(cols...)
	if err != nil {
		return nil, err
	}
	md := s.Metadata()
	if i := md.FindKey(IndexKey); i >= 0 {
		if err := t.SetIndex(md.Values()[i]); err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "restore row label")
		}
	}
	return t, nil
}

// Write writes t as an Arrow IPC file in batches of DefaultBatchSize rows.
func Write(w io.Writer, t *columnar.Table) error {
	mem := memory.NewGoAllocator()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(Schema(t)), ipc.WithAllocator(mem))
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create arrow writer")
	}

	batches := 0
	for lo := 0; lo < t.NumRows() || (lo == 0 && batches == 0); lo += DefaultBatchSize {
		hi := lo + DefaultBatchSize
		if hi > t.NumRows() {
			hi = t.NumRows()
		}
		rec, err := ToRecord(mem, t, lo, hi)
		if err != nil {
			fw.Close()
			return err
		}
		err = fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return errors.Wrap(err, errors.CodeIO, "write record batch")
		}
		batches++
	}

	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "close arrow writer")
	}
	logger.Debug("arrow written", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()), zap.Int("batches", batches))
	return nil
}

// Read decodes an Arrow IPC file. The whole stream is buffered since the
// file format is read from its footer.
func Read(r io.Reader) (*columnar.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "read arrow data")
	}
	return Decode(data)
}

// Decode decodes an in-memory Arrow IPC file.
func Decode(data []byte) (t *columnar.Table, err error) {
	// Malformed flatbuffers can panic inside the IPC reader.
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, errors.Newf(errors.CodeParse, "corrupt arrow file: %v", r)
		}
	}()

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "open arrow file")
	}
	defer fr.Close()

	s := fr.Schema()
	cols, err := NewColumns(s, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, fmt.Sprintf("read record batch %d", i))
		}
		if err := AppendRecord(cols, rec); err != nil {
			return nil, err
		}
	}
	t, err = assemble(s, cols)
	if err != nil {
		return nil, err
	}
	logger.Debug("arrow read", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()), zap.Int("batches", fr.NumRecords()))
	return t, nil
}
