package columnar

import (
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Field describes one column of a schema
type Field struct {
	Name string
	Type DType
}

// Schema defines the ordered columns of a table
type Schema struct {
	Fields []Field
}

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Table is an ordered collection of equal-length, uniquely named columns
// with an optional row-label column.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
	label   string
}

// NewTable builds a table that takes ownership of columns
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c == nil {
			return nil, errors.New(errors.CodeInvalid, "nil column").WithColumn(i)
		}
		if c.name == "" {
			return nil, errors.New(errors.CodeInvalid, "blank column name").WithColumn(i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, errors.Newf(errors.CodeInvalid, "duplicate column name %q", c.name).WithColumn(i).WithColumnName(c.name)
		}
		if i > 0 && c.Len() != t.rows {
			return nil, errors.Newf(errors.CodeInvalid, "column length %d does not match row count %d", c.Len(), t.rows).WithColumn(i).WithColumnName(c.name)
		}
		t.rows = c.Len()
		t.index[c.name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// NewTableFromSchema creates an empty table with one column per field
func NewTableFromSchema(schema Schema, capacity int) (*Table, error) {
	cols := make([]*Column, len(schema.Fields))
	for i, f := range schema.Fields {
		c, err := NewColumn(f.Name, f.Type, capacity)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeOf(err), "create column").WithColumn(i)
		}
		cols[i] = c
	}
	return NewTable(cols...)
}

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. The columns remain owned by t.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// ColumnAt returns the column at position i
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// Column returns the named column
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.Newf(errors.CodeInvalid, "column %q not found", name).WithColumnName(name)
	}
	return t.columns[i], nil
}

// ColumnIndex returns the position of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Schema returns the table schema
func (t *Table) Schema() Schema {
	s := Schema{Fields: make([]Field, len(t.columns))}
	for i, c := range t.columns {
		s.Fields[i] = Field{Name: c.name, Type: c.dtype}
	}
	return s
}

// Index returns the name of the row-label column, or "" when rows are
// labelled by position.
func (t *Table) Index() string { return t.label }

// SetIndex marks the named Int64 or String column as the row-label column.
// An empty name clears the label.
func (t *Table) SetIndex(name string) error {
	if name == "" {
		t.label = ""
		return nil
	}
	c, err := t.Column(name)
	if err != nil {
		return err
	}
	if c.dtype == Float64 {
		return errors.New(errors.CodeInvalid, "row-label column must be int64 or string").WithColumnName(name)
	}
	t.label = name
	return nil
}

// AppendRow appends one value per column. Either every column receives the
// row or none does.
func (t *Table) AppendRow(values []Value) error {
	if len(values) != len(t.columns) {
		return errors.Newf(errors.CodeInvalid, "row has %d values, table has %d columns", len(values), len(t.columns)).WithRow(t.rows)
	}
	for j, c := range t.columns {
		if err := c.Append(values[j]); err != nil {
			t.rollback(j)
			return errors.Wrap(err, errors.CodeInvalid, "append row").At(t.rows, j).WithColumnName(c.name)
		}
	}
	t.rows++
	return nil
}

// rollback pops the partially appended row from the first n columns
func (t *Table) rollback(n int) {
	for k := 0; k < n; k++ {
		_ = t.columns[k].PopLast()
	}
}

// Copy returns a deep copy of the table
func (t *Table) Copy() *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Copy()
	}
	return t.derive(cols)
}

// derive wraps freshly built columns, keeping the row label when it survives
func (t *Table) derive(cols []*Column) *Table {
	out, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	if t != nil && t.label != "" {
		if c, ok := out.index[t.label]; ok && out.columns[c].dtype != Float64 {
			out.label = t.label
		}
	}
	return out
}

// take gathers rows by position from every column
func (t *Table) take(rows []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.take(rows)
	}
	out := t.derive(cols)
	if len(cols) == 0 {
		out.rows = len(rows)
	}
	return out
}

// Equal reports whether both tables have the same columns, cells and row label
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) || t.label != o.label {
		return false
	}
	for i, c := range t.columns {
		if !c.Equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// Row returns a view of row i
func (t *Table) Row(i int) (Row, error) {
	if i < 0 || i >= t.rows {
		return Row{}, errors.Newf(errors.CodeInvalid, "index %d out of range [0, %d)", i, t.rows).WithRow(i)
	}
	return Row{table: t, index: i}, nil
}

// MemoryUsage estimates the bytes held by all columns
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, c := range t.columns {
		total += c.MemoryUsage()
	}
	return total
}

// String renders up to the first ten rows as text
func (t *Table) String() string {
	const maxRows = 10
	var b strings.Builder
	b.WriteString(strings.Join(t.ColumnNames(), "\t"))
	b.WriteByte('\n')
	n := t.rows
	if n > maxRows {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		for j, c := range t.columns {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(c.At(i).String())
		}
		b.WriteByte('\n')
	}
	if t.rows > n {
		b.WriteString("...\n")
	}
	return b.String()
}

// Row is a read-only view of one table row handed to callbacks
type Row struct {
	table *Table
	index int
}

// Index returns the row position
func (r Row) Index() int { return r.index }

// Get returns the value of the named column
func (r Row) Get(name string) (Value, error) {
	c, err := r.table.Column(name)
	if err != nil {
		return Value{}, err
	}
	return c.At(r.index), nil
}

// At returns the value of the column at position j
func (r Row) At(j int) Value {
	return r.table.columns[j].At(r.index)
}

// Values returns all values of the row in column order
func (r Row) Values() []Value {
	out := make([]Value, len(r.table.columns))
	for j, c := range r.table.columns {
		out[j] = c.At(r.index)
	}
	return out
}
