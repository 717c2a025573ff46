package columnar

import (
	"math"
	"strconv"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Describe summarises numeric columns as text: count, mean, min and max
// rows under a leading "statistic" column.
func (t *Table) Describe() (*Table, error) {
	numeric := t.numericColumns()
	if len(numeric) == 0 {
		return nil, errors.New(errors.CodeInvalid, "describe requires at least one numeric column")
	}
	label := newColumn("statistic", String, 4)
	for _, s := range []string{"count", "mean", "min", "max"} {
		label.AppendString(s)
	}
	cols := []*Column{label}
	for _, c := range numeric {
		out := newColumn(c.name, String, 4)
		var n int
		var sum float64
		lo, hi := -1, -1
		for r := 0; r < c.Len(); r++ {
			if !c.ValidNumeric(r) {
				continue
			}
			n++
			sum += c.Number(r)
			if lo < 0 || compareValues(c, r, c, lo) < 0 {
				lo = r
			}
			if hi < 0 || compareValues(c, r, c, hi) > 0 {
				hi = r
			}
		}
		out.AppendString(strconv.Itoa(n))
		if n == 0 {
			out.AppendNull()
			out.AppendNull()
			out.AppendNull()
		} else {
			out.AppendString(formatFloat(sum / float64(n)))
			out.AppendString(c.At(lo).String())
			out.AppendString(c.At(hi).String())
		}
		cols = append(cols, out)
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "describe output")
	}
	return out, nil
}

func (t *Table) numericColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.dtype.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// Corr returns the pairwise Pearson correlation of numeric columns
func (t *Table) Corr() (*Table, error) {
	return t.pairwise("corr", pearson)
}

// Cov returns the pairwise sample covariance of numeric columns
func (t *Table) Cov() (*Table, error) {
	return t.pairwise("cov", covariance)
}

// pairwise builds an N x N grid with a leading "column" label column.
// A nil result from stat is emitted as null.
func (t *Table) pairwise(name string, stat func(x, y *Column) (float64, bool)) (*Table, error) {
	numeric := t.numericColumns()
	if len(numeric) == 0 {
		return nil, errors.Newf(errors.CodeInvalid, "%s requires at least one numeric column", name)
	}
	label := newColumn("column", String, len(numeric))
	for _, c := range numeric {
		label.AppendString(c.name)
	}
	cols := []*Column{label}
	for _, y := range numeric {
		out := newColumn(y.name, Float64, len(numeric))
		for _, x := range numeric {
			if v, ok := stat(x, y); ok {
				out.AppendFloat(v)
			} else {
				out.AppendNull()
			}
		}
		cols = append(cols, out)
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalid, "%s output", name)
	}
	return out, nil
}

// jointMoments returns the count, means and centred sums over rows where
// both columns are valid numbers
func jointMoments(x, y *Column) (n int, sxx, syy, sxy float64) {
	var mx, my float64
	for r := 0; r < x.Len(); r++ {
		if x.ValidNumeric(r) && y.ValidNumeric(r) {
			n++
			mx += x.Number(r)
			my += y.Number(r)
		}
	}
	if n == 0 {
		return 0, 0, 0, 0
	}
	mx /= float64(n)
	my /= float64(n)
	for r := 0; r < x.Len(); r++ {
		if x.ValidNumeric(r) && y.ValidNumeric(r) {
			dx, dy := x.Number(r)-mx, y.Number(r)-my
			sxx += dx * dx
			syy += dy * dy
			sxy += dx * dy
		}
	}
	return n, sxx, syy, sxy
}

func pearson(x, y *Column) (float64, bool) {
	n, sxx, syy, sxy := jointMoments(x, y)
	if n < 2 || sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

func covariance(x, y *Column) (float64, bool) {
	n, _, _, sxy := jointMoments(x, y)
	if n < 2 {
		return 0, false
	}
	return sxy / float64(n-1), true
}
