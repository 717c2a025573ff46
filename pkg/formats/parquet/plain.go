package parquet

import (
	"encoding/binary"
	"math"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// values holds decoded non-null cells of one page or dictionary.
type values struct {
	dtype  columnar.DType
	ints   []int64
	floats []float64
	strs   []string
}

func (v *values) len() int {
	switch v.dtype {
	case columnar.Int64:
		return len(v.ints)
	case columnar.Float64:
		return len(v.floats)
	default:
		return len(v.strs)
	}
}

func (v *values) appendTo(c *columnar.Column, i int) {
	switch v.dtype {
	case columnar.Int64:
		c.AppendInt(v.ints[i])
	case columnar.Float64:
		c.AppendFloat(v.floats[i])
	default:
		c.AppendString(v.strs[i])
	}
}

// gather resolves dictionary indices.
func (v *values) gather(idx []uint32) (*values, error) {
	n := uint32(v.len())
	out := &values{dtype: v.dtype}
	for i, k := range idx {
		if k >= n {
			return nil, errors.Newf(errors.CodeParse, "dictionary index %d out of range [0, %d)", k, n).WithRow(i)
		}
		switch v.dtype {
		case columnar.Int64:
			out.ints = append(out.ints, v.ints[k])
		case columnar.Float64:
			out.floats = append(out.floats, v.floats[k])
		default:
			out.strs = append(out.strs, v.strs[k])
		}
	}
	return out, nil
}

// dtypeOf maps a physical type onto the column type it materializes as.
func dtypeOf(t Type) (columnar.DType, bool) {
	switch t {
	case Int32, Int64:
		return columnar.Int64, true
	case Float, Double:
		return columnar.Float64, true
	case ByteArray:
		return columnar.String, true
	}
	return 0, false
}

// physicalType is the type written for a column type.
func physicalType(d columnar.DType) Type {
	switch d {
	case columnar.Int64:
		return Int64
	case columnar.Float64:
		return Double
	default:
		return ByteArray
	}
}

// appendPlainCell appends the PLAIN encoding of row i of c.
func appendPlainCell(dst []byte, c *columnar.Column, i int) []byte {
	switch c.DType() {
	case columnar.Int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(c.Int(i)))
	case columnar.Float64:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(c.Float(i)))
	default:
		s := c.Str(i)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
		return append(dst, s...)
	}
}

// plainStat is the statistics form of a value: PLAIN without the length
// prefix byte arrays carry.
func plainStat(c *columnar.Column, i int) []byte {
	switch c.DType() {
	case columnar.String:
		return []byte(c.Str(i))
	default:
		return appendPlainCell(nil, c, i)
	}
}

// decodePlain decodes exactly n PLAIN values of physical type t. The input
// must be consumed completely.
func decodePlain(t Type, data []byte, n int) (*values, error) {
	dtype, ok := dtypeOf(t)
	if !ok {
		return nil, errors.Newf(errors.CodeParse, "unsupported physical type %s", t)
	}
	if n < 0 {
		return nil, errors.Newf(errors.CodeParse, "negative value count %d", n)
	}
	v := &values{dtype: dtype}

	fixed := 0
	switch t {
	case Int32, Float:
		fixed = 4
	case Int64, Double:
		fixed = 8
	}
	if fixed > 0 {
		if len(data) != n*fixed {
			return nil, errors.Newf(errors.CodeParse, "plain %s: %d bytes for %d values", t, len(data), n)
		}
		for i := 0; i < n; i++ {
			b := data[i*fixed:]
			switch t {
			case Int32:
				v.ints = append(v.ints, int64(int32(binary.LittleEndian.Uint32(b))))
			case Int64:
				v.ints = append(v.ints, int64(binary.LittleEndian.Uint64(b)))
			case Float:
				v.floats = append(v.floats, float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
			case Double:
				v.floats = append(v.floats, math.Float64frombits(binary.LittleEndian.Uint64(b)))
			}
		}
		return v, nil
	}

	pos := 0
	v.strs = make([]string, 0, n)
	for i := 0; i < n; i++ {
		if len(data)-pos < 4 {
			return nil, errors.Newf(errors.CodeParse, "plain BYTE_ARRAY: truncated length at value %d", i).WithRow(i)
		}
		size := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if size < 0 || size > len(data)-pos {
			return nil, errors.Newf(errors.CodeParse, "plain BYTE_ARRAY: value %d of %d bytes overruns page", i, size).WithRow(i)
		}
		v.strs = append(v.strs, string(data[pos:pos+size]))
		pos += size
	}
	if pos != len(data) {
		return nil, errors.Newf(errors.CodeParse, "plain BYTE_ARRAY: %d trailing bytes", len(data)-pos)
	}
	return v, nil
}
