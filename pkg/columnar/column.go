package columnar

import (
	"math"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// MaxCapacity bounds the initial capacity hint a column may request.
const MaxCapacity = 1 << 27

// capacityLimit is MaxCapacity; tests lower it.
var capacityLimit = MaxCapacity

// checkCapacity reports out_of_memory for a row count no column may reserve.
func checkCapacity(n int, what string) error {
	if n < 0 || n > capacityLimit {
		return errors.Newf(errors.CodeOutOfMemory, "%s: cannot allocate %d rows (limit %d)", what, n, capacityLimit)
	}
	return nil
}

// Column is a named, typed, nullable vector. Exactly one of the typed
// backing slices is in use, selected by dtype, and its length always equals
// the length of the null flags.
type Column struct {
	name   string
	dtype  DType
	nulls  []bool
	ints   []int64
	floats []float64
	strs   []string
}

// NewColumn creates an empty column
func NewColumn(name string, dtype DType, capacity int) (*Column, error) {
	if !dtype.Valid() {
		return nil, errors.Newf(errors.CodeInvalid, "unsupported dtype %s", dtype).WithColumnName(name)
	}
	if capacity < 0 || capacity > capacityLimit {
		return nil, errors.Newf(errors.CodeOutOfMemory, "cannot allocate column of capacity %d", capacity).WithColumnName(name)
	}
	return newColumn(name, dtype, capacity), nil
}

// newColumn treats capacity as a hint and clamps it; derived columns grow
// by append past the limit when their source already did.
func newColumn(name string, dtype DType, capacity int) *Column {
	capacity = min(max(capacity, 0), capacityLimit)
	c := &Column{name: name, dtype: dtype, nulls: make([]bool, 0, capacity)}
	switch dtype {
	case Int64:
		c.ints = make([]int64, 0, capacity)
	case Float64:
		c.floats = make([]float64, 0, capacity)
	case String:
		c.strs = make([]string, 0, capacity)
	}
	return c
}

// FromValues builds a column from Go values. nil is null; int, int32, int64,
// float32, float64, string and Value are accepted where they fit the dtype.
func FromValues(name string, dtype DType, values []interface{}) (*Column, error) {
	c, err := NewColumn(name, dtype, len(values))
	if err != nil {
		return nil, err
	}
	for i, raw := range values {
		v, err := toValue(dtype, raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "invalid value").WithRow(i).WithColumnName(name)
		}
		if err := c.Append(v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func toValue(dtype DType, raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(dtype), nil
	case Value:
		return x.As(dtype)
	case int:
		return IntValue(int64(x)).As(dtype)
	case int32:
		return IntValue(int64(x)).As(dtype)
	case int64:
		return IntValue(x).As(dtype)
	case float32:
		return FloatValue(float64(x)).As(dtype)
	case float64:
		return FloatValue(x).As(dtype)
	case string:
		return StringValue(x).As(dtype)
	default:
		return Value{}, errors.Newf(errors.CodeInvalid, "unsupported Go type %T", raw)
	}
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// DType returns the element type
func (c *Column) DType() DType { return c.dtype }

// Len returns the logical length
func (c *Column) Len() int { return len(c.nulls) }

// IsNull reports whether row i is null
func (c *Column) IsNull(i int) bool { return c.nulls[i] }

// Int returns the raw int64 at row i; meaningless when null
func (c *Column) Int(i int) int64 { return c.ints[i] }

// Float returns the raw float64 at row i; meaningless when null
func (c *Column) Float(i int) float64 { return c.floats[i] }

// Str returns the raw string at row i; empty when null
func (c *Column) Str(i int) string { return c.strs[i] }

// Get returns the value at row i
func (c *Column) Get(i int) (Value, error) {
	if i < 0 || i >= c.Len() {
		return Value{}, errors.Newf(errors.CodeInvalid, "index %d out of range [0, %d)", i, c.Len()).WithRow(i).WithColumnName(c.name)
	}
	return c.At(i), nil
}

// At returns the value at row i without a range check.
func (c *Column) At(i int) Value {
	if c.nulls[i] {
		return NullValue(c.dtype)
	}
	switch c.dtype {
	case Int64:
		return IntValue(c.ints[i])
	case Float64:
		return FloatValue(c.floats[i])
	default:
		return StringValue(c.strs[i])
	}
}

// ValidNumeric reports whether row i holds a non-null, non-NaN number
func (c *Column) ValidNumeric(i int) bool {
	if c.nulls[i] {
		return false
	}
	switch c.dtype {
	case Int64:
		return true
	case Float64:
		return !math.IsNaN(c.floats[i])
	}
	return false
}

// Number returns row i as float64. Only meaningful when ValidNumeric.
func (c *Column) Number(i int) float64 {
	if c.dtype == Int64 {
		return float64(c.ints[i])
	}
	return c.floats[i]
}

// NullCount returns the number of null rows
func (c *Column) NullCount() int {
	n := 0
	for _, null := range c.nulls {
		if null {
			n++
		}
	}
	return n
}

// Append appends v, which must match the column dtype (Int64 widens into Float64)
func (c *Column) Append(v Value) error {
	v, err := v.As(c.dtype)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalid, "append").WithColumnName(c.name)
	}
	if v.Null {
		c.AppendNull()
		return nil
	}
	switch c.dtype {
	case Int64:
		c.AppendInt(v.Int)
	case Float64:
		c.AppendFloat(v.Float)
	case String:
		c.AppendString(v.Str)
	}
	return nil
}

// AppendNull appends a null
func (c *Column) AppendNull() {
	c.nulls = append(c.nulls, true)
	switch c.dtype {
	case Int64:
		c.ints = append(c.ints, 0)
	case Float64:
		c.floats = append(c.floats, 0)
	case String:
		c.strs = append(c.strs, "")
	}
}

// AppendInt appends a non-null int64. The column must be Int64.
func (c *Column) AppendInt(v int64) {
	c.nulls = append(c.nulls, false)
	c.ints = append(c.ints, v)
}

// AppendFloat appends a non-null float64. The column must be Float64.
func (c *Column) AppendFloat(v float64) {
	c.nulls = append(c.nulls, false)
	c.floats = append(c.floats, v)
}

// AppendString appends a non-null string. The column must be String.
func (c *Column) AppendString(v string) {
	c.nulls = append(c.nulls, false)
	c.strs = append(c.strs, v)
}

// PopLast removes the last row
func (c *Column) PopLast() error {
	n := c.Len()
	if n == 0 {
		return errors.New(errors.CodeInvalid, "pop from empty column").WithColumnName(c.name)
	}
	c.nulls = c.nulls[:n-1]
	switch c.dtype {
	case Int64:
		c.ints = c.ints[:n-1]
	case Float64:
		c.floats = c.floats[:n-1]
	case String:
		c.strs[n-1] = ""
		c.strs = c.strs[:n-1]
	}
	return nil
}

// appendFrom copies row i of src, which must share the dtype
func (c *Column) appendFrom(src *Column, i int) {
	if src.nulls[i] {
		c.AppendNull()
		return
	}
	switch c.dtype {
	case Int64:
		c.AppendInt(src.ints[i])
	case Float64:
		c.AppendFloat(src.floats[i])
	case String:
		c.AppendString(src.strs[i])
	}
}

// Copy returns a deep copy of the column
func (c *Column) Copy() *Column {
	return c.CopyAs(c.name)
}

// CopyAs returns a deep copy of the column under a new name
func (c *Column) CopyAs(name string) *Column {
	out := &Column{name: name, dtype: c.dtype, nulls: append([]bool(nil), c.nulls...)}
	switch c.dtype {
	case Int64:
		out.ints = append([]int64(nil), c.ints...)
	case Float64:
		out.floats = append([]float64(nil), c.floats...)
	case String:
		out.strs = append([]string(nil), c.strs...)
	}
	if out.nulls == nil {
		out.nulls = []bool{}
	}
	return out
}

// take gathers rows by position; -1 produces a null
func (c *Column) take(rows []int) *Column {
	out := newColumn(c.name, c.dtype, len(rows))
	for _, r := range rows {
		if r < 0 {
			out.AppendNull()
			continue
		}
		out.appendFrom(c, r)
	}
	return out
}

// cellEqual compares row i of c with row j of d by identity
func cellEqual(c *Column, i int, d *Column, j int) bool {
	if c.nulls[i] || d.nulls[j] {
		return c.nulls[i] && d.nulls[j]
	}
	switch c.dtype {
	case Int64:
		return c.ints[i] == d.ints[j]
	case Float64:
		a, b := c.floats[i], d.floats[j]
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.IsNaN(a) && math.IsNaN(b)
		}
		return a == b
	default:
		return c.strs[i] == d.strs[j]
	}
}

// Equal reports whether both columns have the same name, dtype and cells
func (c *Column) Equal(o *Column) bool {
	if c.name != o.name || c.dtype != o.dtype || c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if !cellEqual(c, i, o, i) {
			return false
		}
	}
	return true
}

// MemoryUsage estimates the bytes held by the column
func (c *Column) MemoryUsage() int64 {
	size := int64(cap(c.nulls))
	switch c.dtype {
	case Int64:
		size += int64(cap(c.ints)) * 8
	case Float64:
		size += int64(cap(c.floats)) * 8
	case String:
		size += int64(cap(c.strs)) * 16
		for _, s := range c.strs {
			size += int64(len(s))
		}
	}
	return size
}
