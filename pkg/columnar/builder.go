package columnar

import (
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Builder incrementally constructs a table from text or typed rows. Rows
// are appended atomically: a failed row leaves the table unchanged.
type Builder struct {
	table    *Table
	naValues map[string]struct{}
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithNAValues sets the text tokens parsed as null in every column
func WithNAValues(tokens ...string) BuilderOption {
	return func(b *Builder) {
		for _, tok := range tokens {
			b.naValues[tok] = struct{}{}
		}
	}
}

// NewBuilder creates a builder for schema
func NewBuilder(schema Schema, opts ...BuilderOption) (*Builder, error) {
	t, err := NewTableFromSchema(schema, 16)
	if err != nil {
		return nil, err
	}
	b := &Builder{table: t, naValues: make(map[string]struct{})}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Len returns the number of rows appended so far
func (b *Builder) Len() int { return b.table.rows }

// Schema returns the schema being built
func (b *Builder) Schema() Schema { return b.table.Schema() }

// AppendText parses one text field per column. NA tokens become null, and
// an empty field in a numeric column is null.
func (b *Builder) AppendText(fields []string) error {
	t := b.table
	if len(fields) != len(t.columns) {
		return errors.Newf(errors.CodeParse, "expected %d fields, got %d", len(t.columns), len(fields)).WithRow(t.rows)
	}
	for j, c := range t.columns {
		if err := b.appendField(c, fields[j]); err != nil {
			t.rollback(j)
			return errors.Wrap(err, errors.CodeParse, "append text").At(t.rows, j).WithColumnName(c.name)
		}
	}
	t.rows++
	return nil
}

func (b *Builder) appendField(c *Column, field string) error {
	if _, na := b.naValues[field]; na {
		c.AppendNull()
		return nil
	}
	if c.dtype.IsNumeric() && strings.TrimSpace(field) == "" {
		c.AppendNull()
		return nil
	}
	v, err := ParseValue(c.dtype, field)
	if err != nil {
		return err
	}
	return c.Append(v)
}

// AppendRow appends typed values
func (b *Builder) AppendRow(values []Value) error {
	return b.table.AppendRow(values)
}

// Table returns the built table and resets the builder
func (b *Builder) Table() *Table {
	out := b.table
	fresh, err := NewTableFromSchema(out.Schema(), 16)
	if err != nil {
		panic(err)
	}
	b.table = fresh
	return out
}
