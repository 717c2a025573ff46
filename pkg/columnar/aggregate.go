package columnar

import (
	"math"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// AggOp is an aggregate operation
type AggOp int

const (
	// Count counts non-null cells
	Count AggOp = iota
	// Sum adds valid numeric cells
	Sum
	// Mean averages valid numeric cells
	Mean
	// Min takes the smallest valid cell
	Min
	// Max takes the largest valid cell
	Max
)

// String returns the op name used in output column names
func (op AggOp) String() string {
	switch op {
	case Count:
		return "count"
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return "unknown"
	}
}

// ParseAggOp parses an op name
func ParseAggOp(s string) (AggOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return Count, nil
	case "sum":
		return Sum, nil
	case "mean", "avg":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	default:
		return 0, errors.Newf(errors.CodeInvalid, "unknown aggregate %q", s)
	}
}

// Agg pairs a value column with an aggregate op
type Agg struct {
	Column string
	Op     AggOp
}

// outputType returns the dtype an op produces for an input dtype
func (op AggOp) outputType(in DType) (DType, error) {
	switch op {
	case Count:
		return Int64, nil
	case Mean:
		if !in.IsNumeric() {
			return 0, errors.Newf(errors.CodeInvalid, "mean requires a numeric column, got %s", in)
		}
		return Float64, nil
	case Sum:
		if !in.IsNumeric() {
			return 0, errors.Newf(errors.CodeInvalid, "sum requires a numeric column, got %s", in)
		}
		return in, nil
	case Min, Max:
		return in, nil
	}
	return 0, errors.Newf(errors.CodeInvalid, "unknown aggregate %d", int(op))
}

// aggState accumulates one aggregate for one group
type aggState struct {
	count int64
	n     int64
	isum  int64
	fsum  float64
	best  int // row holding the current min/max, -1 when none
}

func newAggState() aggState { return aggState{best: -1} }

// add folds row r of c into the state
func (s *aggState) add(op AggOp, c *Column, r int) error {
	if c.nulls[r] {
		return nil
	}
	s.count++
	if op == Count {
		return nil
	}
	if c.dtype == Float64 && math.IsNaN(c.floats[r]) {
		return nil
	}
	s.n++
	switch op {
	case Sum, Mean:
		if c.dtype == Int64 {
			if op == Sum {
				sum, ok := addInt64(s.isum, c.ints[r])
				if !ok {
					return errors.New(errors.CodeInvalid, "int64 overflow in sum").WithRow(r).WithColumnName(c.name)
				}
				s.isum = sum
			}
			s.fsum += float64(c.ints[r])
		} else {
			s.fsum += c.floats[r]
		}
	case Min:
		if s.best < 0 || compareValues(c, r, c, s.best) < 0 {
			s.best = r
		}
	case Max:
		if s.best < 0 || compareValues(c, r, c, s.best) > 0 {
			s.best = r
		}
	}
	return nil
}

// emit appends the final aggregate to out. Groups without a valid value
// produce null for every op except count.
func (s *aggState) emit(op AggOp, c *Column, out *Column) {
	switch op {
	case Count:
		out.AppendInt(s.count)
		return
	}
	if s.n == 0 {
		out.AppendNull()
		return
	}
	switch op {
	case Sum:
		if c.dtype == Int64 {
			out.AppendInt(s.isum)
		} else {
			out.AppendFloat(s.fsum)
		}
	case Mean:
		out.AppendFloat(s.fsum / float64(s.n))
	case Min, Max:
		out.appendFrom(c, s.best)
	}
}

// groupKeys assigns each row of a key column a dense group id in first-seen
// order. Null keys get -1.
func groupKeys(c *Column) (ids []int, firsts []int, err error) {
	ids = make([]int, c.Len())
	switch c.dtype {
	case Int64:
		seen := make(map[int64]int)
		for r := 0; r < c.Len(); r++ {
			if c.nulls[r] {
				ids[r] = -1
				continue
			}
			id, ok := seen[c.ints[r]]
			if !ok {
				id = len(firsts)
				seen[c.ints[r]] = id
				firsts = append(firsts, r)
			}
			ids[r] = id
		}
	case String:
		seen := make(map[string]int)
		for r := 0; r < c.Len(); r++ {
			if c.nulls[r] {
				ids[r] = -1
				continue
			}
			id, ok := seen[c.strs[r]]
			if !ok {
				id = len(firsts)
				seen[c.strs[r]] = id
				firsts = append(firsts, r)
			}
			ids[r] = id
		}
	default:
		return nil, nil, errors.Newf(errors.CodeInvalid, "group key must be int64 or string, got %s", c.dtype).WithColumnName(c.name)
	}
	return ids, firsts, nil
}

// GroupBy groups rows by an int64 or string key and aggregates value
// columns in one pass. Groups appear in first-seen order; null keys are
// dropped. Output columns are the key followed by <column>_<op>, with a
// numeric suffix when that name is already taken.
func (t *Table) GroupBy(key string, aggs ...Agg) (*Table, error) {
	kc, err := t.Column(key)
	if err != nil {
		return nil, err
	}
	ids, firsts, err := groupKeys(kc)
	if err != nil {
		return nil, err
	}

	values := make([]*Column, len(aggs))
	outs := make([]*Column, len(aggs))
	used := map[string]bool{key: true}
	for a, agg := range aggs {
		vc, err := t.Column(agg.Column)
		if err != nil {
			return nil, err
		}
		dt, err := agg.Op.outputType(vc.dtype)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalid, "groupby").WithColumn(t.index[agg.Column]).WithColumnName(agg.Column)
		}
		values[a] = vc
		outs[a] = newColumn(uniqueName(agg.Column+"_"+agg.Op.String(), used), dt, len(firsts))
	}

	states := make([][]aggState, len(firsts))
	for g := range states {
		states[g] = make([]aggState, len(aggs))
		for a := range aggs {
			states[g][a] = newAggState()
		}
	}
	for r, g := range ids {
		if g < 0 {
			continue
		}
		for a, agg := range aggs {
			if err := states[g][a].add(agg.Op, values[a], r); err != nil {
				return nil, err
			}
		}
	}

	cols := []*Column{kc.take(firsts)}
	for a, agg := range aggs {
		for g := range firsts {
			states[g][a].emit(agg.Op, values[a], outs[a])
		}
		cols = append(cols, outs[a])
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "groupby output")
	}
	return out, nil
}

// PivotTable aggregates values over a dense grid of index x columns keys.
// One row is emitted per distinct index value and one column per distinct
// columns value, named by its text form. A blank value takes the columns
// column's name and clashes get a numeric suffix. Empty cells are 0 for
// count and null otherwise.
func (t *Table) PivotTable(index, columns, values string, op AggOp) (*Table, error) {
	ic, err := t.Column(index)
	if err != nil {
		return nil, err
	}
	cc, err := t.Column(columns)
	if err != nil {
		return nil, err
	}
	vc, err := t.Column(values)
	if err != nil {
		return nil, err
	}
	rowIDs, rowFirsts, err := groupKeys(ic)
	if err != nil {
		return nil, err
	}
	colIDs, colFirsts, err := groupKeys(cc)
	if err != nil {
		return nil, err
	}
	dt, err := op.outputType(vc.dtype)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "pivot_table").WithColumnName(values)
	}

	grid := make([]aggState, len(rowFirsts)*len(colFirsts))
	for i := range grid {
		grid[i] = newAggState()
	}
	for r := 0; r < t.rows; r++ {
		gi, gj := rowIDs[r], colIDs[r]
		if gi < 0 || gj < 0 {
			continue
		}
		if err := grid[gi*len(colFirsts)+gj].add(op, vc, r); err != nil {
			return nil, err
		}
	}

	cols := []*Column{ic.take(rowFirsts)}
	used := map[string]bool{index: true}
	for j, first := range colFirsts {
		name := cc.At(first).String()
		if name == "" {
			name = columns
		}
		out := newColumn(uniqueName(name, used), dt, len(rowFirsts))
		for i := range rowFirsts {
			grid[i*len(colFirsts)+j].emit(op, vc, out)
		}
		cols = append(cols, out)
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "pivot_table output")
	}
	return out, nil
}
