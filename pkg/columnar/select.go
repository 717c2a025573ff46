package columnar

import (
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// SelectIndices projects columns by position. Repeated positions fail.
func (t *Table) SelectIndices(indices []int) (*Table, error) {
	seen := make(map[int]struct{}, len(indices))
	cols := make([]*Column, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(t.columns) {
			return nil, errors.Newf(errors.CodeInvalid, "column index %d out of range [0, %d)", i, len(t.columns)).WithColumn(i)
		}
		if _, dup := seen[i]; dup {
			return nil, errors.Newf(errors.CodeInvalid, "column index %d selected twice", i).WithColumn(i)
		}
		seen[i] = struct{}{}
		cols = append(cols, t.columns[i].Copy())
	}
	return t.derive(cols), nil
}

// Select projects columns by name. Repeated names fail.
func (t *Table) Select(names ...string) (*Table, error) {
	indices, err := t.resolve(names)
	if err != nil {
		return nil, err
	}
	return t.SelectIndices(indices)
}

func (t *Table) resolve(names []string) ([]int, error) {
	indices := make([]int, len(names))
	for k, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
		}
		indices[k] = i
	}
	return indices, nil
}

// SelectDTypes keeps the columns whose dtype is in include (every dtype when
// include is empty) and not in exclude.
func (t *Table) SelectDTypes(include, exclude []DType) (*Table, error) {
	inc := make(map[DType]bool, len(include))
	for _, d := range include {
		if !d.Valid() {
			return nil, errors.Newf(errors.CodeInvalid, "unsupported dtype %s", d)
		}
		inc[d] = true
	}
	exc := make(map[DType]bool, len(exclude))
	for _, d := range exclude {
		if !d.Valid() {
			return nil, errors.Newf(errors.CodeInvalid, "unsupported dtype %s", d)
		}
		if inc[d] {
			return nil, errors.Newf(errors.CodeInvalid, "dtype %s both included and excluded", d)
		}
		exc[d] = true
	}
	var indices []int
	for i, c := range t.columns {
		if (len(inc) == 0 || inc[c.dtype]) && !exc[c.dtype] {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, errors.New(errors.CodeInvalid, "no columns match the dtype selection")
	}
	return t.SelectIndices(indices)
}

// Drop removes the named columns. Dropping every column fails.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !t.HasColumn(name) {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
		}
		drop[name] = true
	}
	var indices []int
	for i, c := range t.columns {
		if !drop[c.name] {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, errors.New(errors.CodeInvalid, "drop would remove every column")
	}
	return t.SelectIndices(indices)
}

// Rename renames columns by old -> new mapping
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for from, to := range mapping {
		if !t.HasColumn(from) {
			return nil, errors.Newf(errors.CodeInvalid, "column %q not found", from).WithColumnName(from)
		}
		if to == "" {
			return nil, errors.Newf(errors.CodeInvalid, "blank new name for column %q", from).WithColumnName(from)
		}
	}
	cols := make([]*Column, len(t.columns))
	seen := make(map[string]struct{}, len(t.columns))
	for i, c := range t.columns {
		name := c.name
		if to, ok := mapping[name]; ok {
			name = to
		}
		if _, dup := seen[name]; dup {
			return nil, errors.Newf(errors.CodeInvalid, "rename produces duplicate column %q", name).WithColumn(i).WithColumnName(name)
		}
		seen[name] = struct{}{}
		cols[i] = c.CopyAs(name)
	}
	out := t.derive(cols)
	if to, ok := mapping[t.label]; ok && t.label != "" {
		out.label = to
	}
	return out, nil
}

// ILoc selects rows and columns by position. A nil list selects everything.
// Rows may repeat; columns may not.
func (t *Table) ILoc(rows, cols []int) (*Table, error) {
	if rows == nil {
		rows = allRows(t.rows)
	}
	if err := checkCapacity(len(rows), "iloc"); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, errors.Newf(errors.CodeInvalid, "row index %d out of range [0, %d)", r, t.rows).WithRow(r)
		}
	}
	src := t
	if cols != nil {
		var err error
		if src, err = t.SelectIndices(cols); err != nil {
			return nil, err
		}
	}
	return src.take(rows), nil
}

// Loc selects rows by label and columns by name. Labels match the row-label
// column by value, or row positions when no label column is set. A nil
// label list selects every row; a nil column list selects every column.
func (t *Table) Loc(labels []Value, cols []string) (*Table, error) {
	var rows []int
	if labels == nil {
		rows = allRows(t.rows)
	} else {
		rows = make([]int, len(labels))
		for k, label := range labels {
			pos, err := t.labelPosition(label)
			if err != nil {
				return nil, err
			}
			rows[k] = pos
		}
	}
	return t.ilocNames(rows, cols)
}

// LocRange selects the inclusive span of rows between two labels. The span
// is taken by position; a start label positioned after the end label fails.
func (t *Table) LocRange(start, end Value, cols []string) (*Table, error) {
	from, err := t.labelPosition(start)
	if err != nil {
		return nil, err
	}
	to, err := t.labelPosition(end)
	if err != nil {
		return nil, err
	}
	if from > to {
		return nil, errors.Newf(errors.CodeInvalid, "label range start %s is after end %s", start, end).WithRow(from)
	}
	rows := make([]int, 0, to-from+1)
	for r := from; r <= to; r++ {
		rows = append(rows, r)
	}
	return t.ilocNames(rows, cols)
}

func (t *Table) ilocNames(rows []int, cols []string) (*Table, error) {
	if cols == nil {
		return t.ILoc(rows, nil)
	}
	indices, err := t.resolve(cols)
	if err != nil {
		return nil, err
	}
	return t.ILoc(rows, indices)
}

// labelPosition returns the first row whose label equals v
func (t *Table) labelPosition(v Value) (int, error) {
	if v.Null {
		return -1, errors.New(errors.CodeInvalid, "null row label")
	}
	if t.label == "" {
		if v.Type != Int64 {
			return -1, errors.Newf(errors.CodeInvalid, "positional label must be int64, got %s", v.Type)
		}
		if v.Int < 0 || v.Int >= int64(t.rows) {
			return -1, errors.Newf(errors.CodeInvalid, "label %d out of range [0, %d)", v.Int, t.rows)
		}
		return int(v.Int), nil
	}
	c := t.columns[t.index[t.label]]
	if v.Type != c.dtype {
		return -1, errors.Newf(errors.CodeInvalid, "label %s is %s, row labels are %s", v, v.Type, c.dtype).WithColumnName(c.name)
	}
	for i := 0; i < c.Len(); i++ {
		if c.nulls[i] {
			continue
		}
		if (c.dtype == Int64 && c.ints[i] == v.Int) || (c.dtype == String && c.strs[i] == v.Str) {
			return i, nil
		}
	}
	return -1, errors.Newf(errors.CodeInvalid, "label %s not found", v).WithColumnName(c.name)
}

// Head returns the first n rows, clamped to the row count
func (t *Table) Head(n int) (*Table, error) {
	if n < 0 {
		return nil, errors.Newf(errors.CodeInvalid, "negative row count %d", n)
	}
	if n > t.rows {
		n = t.rows
	}
	return t.take(rangeRows(0, n)), nil
}

// Tail returns the last n rows, clamped to the row count
func (t *Table) Tail(n int) (*Table, error) {
	if n < 0 {
		return nil, errors.Newf(errors.CodeInvalid, "negative row count %d", n)
	}
	if n > t.rows {
		n = t.rows
	}
	return t.take(rangeRows(t.rows-n, t.rows)), nil
}

// FilterMask keeps the rows where mask is true
func (t *Table) FilterMask(mask []bool) (*Table, error) {
	if len(mask) != t.rows {
		return nil, errors.Newf(errors.CodeInvalid, "mask length %d does not match row count %d", len(mask), t.rows)
	}
	rows := make([]int, 0, t.rows)
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	return t.take(rows), nil
}

func allRows(n int) []int {
	return rangeRows(0, n)
}

func rangeRows(from, to int) []int {
	rows := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		rows = append(rows, i)
	}
	return rows
}
