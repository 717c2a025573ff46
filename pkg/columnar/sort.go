package columnar

import (
	"math"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// SortKey names one sort column
type SortKey struct {
	Column     string
	Descending bool
}

// Asc returns an ascending sort key
func Asc(column string) SortKey { return SortKey{Column: column} }

// Desc returns a descending sort key
func Desc(column string) SortKey { return SortKey{Column: column, Descending: true} }

// SortValues stably sorts rows by one or more keys. Nulls sort after every
// non-null value and NaN after every other float, whatever the direction.
func (t *Table) SortValues(keys ...SortKey) (*Table, error) {
	if len(keys) == 0 {
		return nil, errors.New(errors.CodeInvalid, "sort requires at least one key")
	}
	cols := make([]*Column, len(keys))
	for k, key := range keys {
		c, err := t.Column(key.Column)
		if err != nil {
			return nil, err
		}
		cols[k] = c
	}
	rows := mergeSort(allRows(t.rows), func(a, b int) int {
		for k, c := range cols {
			if d := compareDirected(c, a, b, keys[k].Descending); d != 0 {
				return d
			}
		}
		return 0
	})
	return t.take(rows), nil
}

// cellRank orders missing values: 0 for a regular value, 1 for NaN, 2 for null
func cellRank(c *Column, i int) int {
	if c.nulls[i] {
		return 2
	}
	if c.dtype == Float64 && math.IsNaN(c.floats[i]) {
		return 1
	}
	return 0
}

// compareCells orders two rows of c ascending with NaN then null last
func compareCells(c *Column, a, b int) int {
	return compareDirected(c, a, b, false)
}

func compareDirected(c *Column, a, b int, descending bool) int {
	ra, rb := cellRank(c, a), cellRank(c, b)
	if ra != 0 || rb != 0 {
		return ra - rb
	}
	d := compareValues(c, a, c, b)
	if descending {
		return -d
	}
	return d
}

// compareValues orders two non-missing cells of same-typed columns
func compareValues(c *Column, a int, d *Column, b int) int {
	switch c.dtype {
	case Int64:
		x, y := c.ints[a], d.ints[b]
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case Float64:
		x, y := c.floats[a], d.floats[b]
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	default:
		return strings.Compare(c.strs[a], d.strs[b])
	}
}

// mergeSort is a stable top-down merge sort over row positions
func mergeSort(rows []int, cmp func(a, b int) int) []int {
	if len(rows) < 2 {
		return rows
	}
	buf := make([]int, len(rows))
	mergeSortRec(rows, buf, cmp)
	return rows
}

func mergeSortRec(rows, buf []int, cmp func(a, b int) int) {
	n := len(rows)
	if n < 2 {
		return
	}
	if n <= 12 {
		for i := 1; i < n; i++ {
			for j := i; j > 0 && cmp(rows[j-1], rows[j]) > 0; j-- {
				rows[j-1], rows[j] = rows[j], rows[j-1]
			}
		}
		return
	}
	mid := n / 2
	mergeSortRec(rows[:mid], buf[:mid], cmp)
	mergeSortRec(rows[mid:], buf[mid:], cmp)
	if cmp(rows[mid-1], rows[mid]) <= 0 {
		return
	}
	copy(buf, rows)
	i, j, k := 0, mid, 0
	for i < mid && j < n {
		if cmp(buf[j], buf[i]) < 0 {
			rows[k] = buf[j]
			j++
		} else {
			rows[k] = buf[i]
			i++
		}
		k++
	}
	for i < mid {
		rows[k] = buf[i]
		i++
		k++
	}
	for j < n {
		rows[k] = buf[j]
		j++
		k++
	}
}

// NLargest returns the n rows with the largest valid values of column
func (t *Table) NLargest(n int, column string) (*Table, error) {
	return t.nExtreme(n, column, true)
}

// NSmallest returns the n rows with the smallest valid values of column
func (t *Table) NSmallest(n int, column string) (*Table, error) {
	return t.nExtreme(n, column, false)
}

func (t *Table) nExtreme(n int, column string, largest bool) (*Table, error) {
	if n < 0 {
		return nil, errors.Newf(errors.CodeInvalid, "negative row count %d", n)
	}
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if !c.dtype.IsNumeric() {
		return nil, errors.New(errors.CodeInvalid, "nlargest/nsmallest require a numeric column").WithColumnName(column)
	}
	rows := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		if c.ValidNumeric(r) {
			rows = append(rows, r)
		}
	}
	rows = mergeSort(rows, func(a, b int) int { return compareDirected(c, a, b, largest) })
	if n < len(rows) {
		rows = rows[:n]
	}
	return t.take(rows), nil
}
