package columnar

import (
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// IsNull returns the null mask flattened row-major: cell (r, c) is at
// r*NumCols()+c.
func (t *Table) IsNull() []bool {
	ncols := len(t.columns)
	mask := make([]bool, t.rows*ncols)
	for j, c := range t.columns {
		for r := 0; r < t.rows; r++ {
			mask[r*ncols+j] = c.nulls[r]
		}
	}
	return mask
}

// DropNA drops every row containing at least one null
func (t *Table) DropNA() *Table {
	rows := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		keep := true
		for _, c := range t.columns {
			if c.nulls[r] {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return t.take(rows)
}

// FillNA replaces nulls column-wise. Fill values are text parsed as the
// column dtype; columns without a fill value keep their nulls.
func (t *Table) FillNA(values map[string]string) (*Table, error) {
	fills := make(map[int]Value, len(values))
	for name, text := range values {
		j, ok := t.index[name]
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
		}
		v, err := ParseValue(t.columns[j].dtype, text)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "fill value").WithColumn(j).WithColumnName(name)
		}
		fills[j] = v
	}
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		fill, ok := fills[j]
		if !ok {
			cols[j] = c.Copy()
			continue
		}
		out := newColumn(c.name, c.dtype, c.Len())
		for r := 0; r < c.Len(); r++ {
			if c.nulls[r] {
				_ = out.Append(fill)
			} else {
				out.appendFrom(c, r)
			}
		}
		cols[j] = out
	}
	return t.derive(cols), nil
}

// Where keeps rows where mask is true and replaces the others. With a nil
// replacement map every column of a replaced row becomes null; otherwise
// the listed columns take the given value and the rest keep the original.
func (t *Table) Where(mask []bool, other map[string]Value) (*Table, error) {
	return t.where(mask, other, false)
}

// Mask is the inverse of Where: rows where mask is true are replaced.
func (t *Table) Mask(mask []bool, other map[string]Value) (*Table, error) {
	return t.where(mask, other, true)
}

func (t *Table) where(mask []bool, other map[string]Value, invert bool) (*Table, error) {
	if len(mask) != t.rows {
		return nil, errors.Newf(errors.CodeInvalid, "mask length %d does not match row count %d", len(mask), t.rows)
	}
	repl := make(map[int]Value, len(t.columns))
	if other == nil {
		for j, c := range t.columns {
			repl[j] = NullValue(c.dtype)
		}
	} else {
		for name, v := range other {
			j, ok := t.index[name]
			if !ok {
				return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
			}
			cv, err := v.As(t.columns[j].dtype)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalid, "replacement value").WithColumn(j).WithColumnName(name)
			}
			repl[j] = cv
		}
	}
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		v, replaced := repl[j]
		if !replaced {
			cols[j] = c.Copy()
			continue
		}
		out := newColumn(c.name, c.dtype, c.Len())
		for r := 0; r < c.Len(); r++ {
			if mask[r] != invert {
				out.appendFrom(c, r)
			} else {
				_ = out.Append(v)
			}
		}
		cols[j] = out
	}
	return t.derive(cols), nil
}
