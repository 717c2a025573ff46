package query

import (
	"math"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// binding maps the columns a query references to a concrete table
type binding struct {
	cols map[string]*columnar.Column
}

func (q *Query) bind(t *columnar.Table) (*binding, error) {
	b := &binding{cols: make(map[string]*columnar.Column, len(q.dtypes))}
	for name, dtype := range q.dtypes {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if c.DType() != dtype {
			return nil, errors.Newf(errors.CodeInvalid, "column %q is %s, query was compiled for %s", name, c.DType(), dtype).WithColumnName(name)
		}
		b.cols[name] = c
	}
	return b, nil
}

// Mask evaluates the query on every row of t
func (q *Query) Mask(t *columnar.Table) ([]bool, error) {
	b, err := q.bind(t)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, t.NumRows())
	for r := range mask {
		ok, err := q.Root.eval(b, r)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "evaluate query").WithRow(r)
		}
		mask[r] = ok
	}
	return mask, nil
}

// Evaluate compiles src against t and returns the row mask
func Evaluate(t *columnar.Table, src string) ([]bool, error) {
	q, err := Compile(t, src)
	if err != nil {
		return nil, err
	}
	return q.Mask(t)
}

// Filter returns the rows of t matching src
func Filter(t *columnar.Table, src string) (*columnar.Table, error) {
	mask, err := Evaluate(t, src)
	if err != nil {
		return nil, err
	}
	return t.FilterMask(mask)
}

func (n *AndNode) eval(b *binding, row int) (bool, error) {
	ok, err := n.Left.eval(b, row)
	if err != nil || !ok {
		return false, err
	}
	return n.Right.eval(b, row)
}

func (n *OrNode) eval(b *binding, row int) (bool, error) {
	ok, err := n.Left.eval(b, row)
	if err != nil || ok {
		return ok, err
	}
	return n.Right.eval(b, row)
}

// eval applies the predicate to one row. Null cells never satisfy a value
// comparison; float comparisons follow IEEE 754, so NaN only satisfies !=.
func (p *Predicate) eval(b *binding, row int) (bool, error) {
	c, ok := b.cols[p.Column]
	if !ok {
		return false, errors.Newf(errors.CodeInvalid, "column %q is not bound", p.Column).WithColumnName(p.Column)
	}
	null := c.IsNull(row)
	switch p.Kind {
	case LiteralNull:
		return null == (p.Op == OpEqual), nil
	case LiteralNaN:
		if null {
			return false, nil
		}
		return math.IsNaN(c.Float(row)) == (p.Op == OpEqual), nil
	}
	if null {
		return false, nil
	}
	switch c.DType() {
	case columnar.Int64:
		return compareOrdered(c.Int(row), p.Literal.Int, p.Op), nil
	case columnar.Float64:
		return compareOrdered(c.Float(row), p.Literal.Float, p.Op), nil
	case columnar.String:
		return compareOrdered(strings.Compare(c.Str(row), p.Literal.Str), 0, p.Op), nil
	}
	return false, errors.Newf(errors.CodeInvalid, "unsupported dtype %s", c.DType()).WithColumnName(p.Column)
}

type ordered interface {
	~int | ~int64 | ~float64
}

func compareOrdered[T ordered](x, y T, op Op) bool {
	switch op {
	case OpEqual:
		return x == y
	case OpNotEqual:
		return x != y
	case OpLess:
		return x < y
	case OpLessEqual:
		return x <= y
	case OpGreater:
		return x > y
	case OpGreaterEqual:
		return x >= y
	}
	return false
}
