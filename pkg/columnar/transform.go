package columnar

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Bounds is an inclusive clip range
type Bounds struct {
	Lower float64
	Upper float64
}

const fracTolerance = 1e-9

// Clip clamps numeric columns to per-column bounds. NaN cells pass through.
// Int64 columns clamp to the integers inside the bounds.
func (t *Table) Clip(bounds map[string]Bounds) (*Table, error) {
	byIndex := make(map[int]Bounds, len(bounds))
	for name, b := range bounds {
		j, ok := t.index[name]
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
		}
		if !t.columns[j].dtype.IsNumeric() {
			return nil, errors.New(errors.CodeInvalid, "clip requires a numeric column").WithColumn(j).WithColumnName(name)
		}
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) {
			return nil, errors.New(errors.CodeInvalid, "clip bounds must be finite").WithColumn(j).WithColumnName(name)
		}
		if b.Lower > b.Upper {
			return nil, errors.Newf(errors.CodeInvalid, "clip lower bound %g exceeds upper bound %g", b.Lower, b.Upper).WithColumn(j).WithColumnName(name)
		}
		byIndex[j] = b
	}

	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		b, ok := byIndex[j]
		if !ok {
			cols[j] = c.Copy()
			continue
		}
		out := c.Copy()
		if c.dtype == Int64 {
			lo, hi := intBound(math.Ceil(b.Lower)), intBound(math.Floor(b.Upper))
			if lo > hi {
				return nil, errors.Newf(errors.CodeInvalid, "no integer within [%g, %g]", b.Lower, b.Upper).WithColumn(j).WithColumnName(c.name)
			}
			for r := range out.ints {
				if out.nulls[r] {
					continue
				}
				if out.ints[r] < lo {
					out.ints[r] = lo
				} else if out.ints[r] > hi {
					out.ints[r] = hi
				}
			}
		} else {
			for r := range out.floats {
				f := out.floats[r]
				if out.nulls[r] || math.IsNaN(f) {
					continue
				}
				out.floats[r] = math.Min(math.Max(f, b.Lower), b.Upper)
			}
		}
		cols[j] = out
	}
	return t.derive(cols), nil
}

func intBound(f float64) int64 {
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// Replace substitutes every cell of one column equal to from with to.
// Matching is by identity, so a null or NaN from matches null or NaN cells.
func (t *Table) Replace(column string, from, to Value) (*Table, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, errors.Newf(errors.CodeInvalid, "column %q not found", column).WithColumnName(column)
	}
	c := t.columns[j]
	match, err := from.As(c.dtype)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "replace match value").WithColumn(j).WithColumnName(column)
	}
	repl, err := to.As(c.dtype)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "replace value").WithColumn(j).WithColumnName(column)
	}
	out := newColumn(c.name, c.dtype, c.Len())
	for r := 0; r < c.Len(); r++ {
		if c.At(r).Equal(match) {
			_ = out.Append(repl)
		} else {
			out.appendFrom(c, r)
		}
	}
	return t.replaceColumn(j, out), nil
}

func (t *Table) replaceColumn(j int, col *Column) *Table {
	cols := make([]*Column, len(t.columns))
	for k, c := range t.columns {
		if k == j {
			cols[k] = col
		} else {
			cols[k] = c.Copy()
		}
	}
	return t.derive(cols)
}

// AsType casts one column. Lossy float to int casts fail; NaN becomes null.
func (t *Table) AsType(column string, dtype DType) (*Table, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, errors.Newf(errors.CodeInvalid, "column %q not found", column).WithColumnName(column)
	}
	if !dtype.Valid() {
		return nil, errors.Newf(errors.CodeInvalid, "unsupported dtype %s", dtype).WithColumnName(column)
	}
	out, err := castColumn(t.columns[j], dtype)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "astype").WithColumn(j)
	}
	return t.replaceColumn(j, out), nil
}

func castColumn(c *Column, dtype DType) (*Column, error) {
	if c.dtype == dtype {
		return c.Copy(), nil
	}
	out := newColumn(c.name, dtype, c.Len())
	for r := 0; r < c.Len(); r++ {
		if c.nulls[r] {
			out.AppendNull()
			continue
		}
		if err := castCell(c, r, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func castCell(c *Column, r int, out *Column) error {
	switch c.dtype {
	case Int64:
		if out.dtype == Float64 {
			out.AppendFloat(float64(c.ints[r]))
		} else {
			out.AppendString(strconv.FormatInt(c.ints[r], 10))
		}
	case Float64:
		f := c.floats[r]
		if out.dtype == String {
			out.AppendString(formatFloat(f))
			return nil
		}
		if math.IsNaN(f) {
			out.AppendNull()
			return nil
		}
		n, err := floatToInt(f)
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalid, "cast float64 to int64").WithRow(r).WithColumnName(c.name)
		}
		out.AppendInt(n)
	case String:
		v, err := ParseValue(out.dtype, c.strs[r])
		if err != nil {
			return errors.Wrap(err, errors.CodeParse, "cast string").WithRow(r).WithColumnName(c.name)
		}
		if out.dtype == Int64 {
			out.AppendInt(v.Int)
		} else {
			out.AppendFloat(v.Float)
		}
	}
	return nil
}

// floatToInt converts an integral, finite, in-range float
func floatToInt(f float64) (int64, error) {
	if math.IsInf(f, 0) {
		return 0, errors.Newf(errors.CodeInvalid, "value %g is not finite", f)
	}
	if f < -9223372036854775808.0 || f >= 9223372036854775808.0 {
		return 0, errors.Newf(errors.CodeInvalid, "value %g out of int64 range", f)
	}
	rounded := math.Round(f)
	if math.Abs(f-rounded) > fracTolerance {
		return 0, errors.Newf(errors.CodeInvalid, "value %g has a fractional part", f)
	}
	return int64(rounded), nil
}

// Diff replaces numeric columns with the difference from the previous row.
// Row 0 is null. With no names every numeric column is differenced.
func (t *Table) Diff(columns ...string) (*Table, error) {
	targets := make(map[int]bool)
	if len(columns) == 0 {
		for j, c := range t.columns {
			if c.dtype.IsNumeric() {
				targets[j] = true
			}
		}
	}
	for _, name := range columns {
		j, ok := t.index[name]
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
		}
		if !t.columns[j].dtype.IsNumeric() {
			return nil, errors.New(errors.CodeInvalid, "diff requires a numeric column").WithColumn(j).WithColumnName(name)
		}
		targets[j] = true
	}
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		if !targets[j] {
			cols[j] = c.Copy()
			continue
		}
		out, err := diffColumn(c)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "diff").WithColumn(j)
		}
		cols[j] = out
	}
	return t.derive(cols), nil
}

func diffColumn(c *Column) (*Column, error) {
	out := newColumn(c.name, c.dtype, c.Len())
	for r := 0; r < c.Len(); r++ {
		if r == 0 || c.nulls[r] || c.nulls[r-1] {
			out.AppendNull()
			continue
		}
		if c.dtype == Float64 {
			out.AppendFloat(c.floats[r] - c.floats[r-1])
			continue
		}
		d, ok := subInt64(c.ints[r], c.ints[r-1])
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "int64 overflow computing %d - %d", c.ints[r], c.ints[r-1]).WithRow(r).WithColumnName(c.name)
		}
		out.AppendInt(d)
	}
	return out, nil
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

func subInt64(a, b int64) (int64, bool) {
	d := a - b
	if (b > 0 && d > a) || (b < 0 && d < a) {
		return 0, false
	}
	return d, true
}

// Rank computes the average rank (1-based, ascending) of each column.
// Null and NaN cells get a null rank. With no names every numeric column is
// ranked. Ranked columns become Float64.
func (t *Table) Rank(columns ...string) (*Table, error) {
	targets := make(map[int]bool)
	if len(columns) == 0 {
		for j, c := range t.columns {
			if c.dtype.IsNumeric() {
				targets[j] = true
			}
		}
	}
	for _, name := range columns {
		j, ok := t.index[name]
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
		}
		targets[j] = true
	}
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		if targets[j] {
			cols[j] = c.Rank()
		} else {
			cols[j] = c.Copy()
		}
	}
	return t.derive(cols), nil
}

// Rank returns the average rank of every valid cell as a Float64 column
func (c *Column) Rank() *Column {
	rows := make([]int, 0, c.Len())
	for r := 0; r < c.Len(); r++ {
		if c.nulls[r] || (c.dtype == Float64 && math.IsNaN(c.floats[r])) {
			continue
		}
		rows = append(rows, r)
	}
	rows = mergeSort(rows, func(a, b int) int { return compareCells(c, a, b) })

	ranks := make([]float64, c.Len())
	for i := 0; i < len(rows); {
		k := i
		for k+1 < len(rows) && compareCells(c, rows[i], rows[k+1]) == 0 {
			k++
		}
		avg := float64(i+k)/2 + 1
		for m := i; m <= k; m++ {
			ranks[rows[m]] = avg
		}
		i = k + 1
	}
	out := newColumn(c.name, Float64, c.Len())
	for r := 0; r < c.Len(); r++ {
		if c.nulls[r] || (c.dtype == Float64 && math.IsNaN(c.floats[r])) {
			out.AppendNull()
		} else {
			out.AppendFloat(ranks[r])
		}
	}
	return out
}

// Apply derives a new column named name from a per-row callback
func (t *Table) Apply(name string, dtype DType, fn func(Row) (Value, error)) (*Table, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New(errors.CodeInvalid, "blank column name")
	}
	if t.HasColumn(name) {
		return nil, errors.Newf(errors.CodeInvalid, "column %q already exists", name).WithColumnName(name)
	}
	out, err := t.mapRows(name, dtype, fn)
	if err != nil {
		return nil, err
	}
	cols := make([]*Column, 0, len(t.columns)+1)
	for _, c := range t.columns {
		cols = append(cols, c.Copy())
	}
	cols = append(cols, out)
	return t.derive(cols), nil
}

// Transform replaces an existing column with the result of a per-row
// callback. The column keeps its dtype.
func (t *Table) Transform(column string, fn func(Row) (Value, error)) (*Table, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, errors.Newf(errors.CodeInvalid, "column %q not found", column).WithColumnName(column)
	}
	out, err := t.mapRows(column, t.columns[j].dtype, fn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "transform").WithColumn(j)
	}
	return t.replaceColumn(j, out), nil
}

func (t *Table) mapRows(name string, dtype DType, fn func(Row) (Value, error)) (*Column, error) {
	out, err := NewColumn(name, dtype, t.rows)
	if err != nil {
		return nil, err
	}
	for r := 0; r < t.rows; r++ {
		v, err := fn(Row{table: t, index: r})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "callback failed").WithRow(r).WithColumnName(name)
		}
		if err := out.Append(v); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "callback returned a mismatched value").WithRow(r).WithColumnName(name)
		}
	}
	return out, nil
}
