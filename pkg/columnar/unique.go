package columnar

import (
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Keep selects which occurrences Duplicated leaves unmarked
type Keep int

const (
	// KeepFirst marks every occurrence except the first
	KeepFirst Keep = iota
	// KeepLast marks every occurrence except the last
	KeepLast
	// KeepNone marks every occurrence of a repeated row
	KeepNone
)

// ParseKeep parses "first", "last" or "none"
func ParseKeep(s string) (Keep, error) {
	switch s {
	case "first", "":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	case "none", "false":
		return KeepNone, nil
	}
	return 0, errors.Newf(errors.CodeInvalid, "unknown keep policy %q", s)
}

// groupRows assigns every row a group id by identity of the key columns,
// ids dense in first-seen order
func groupRows(keys rowKey, n int) (ids []int, firsts []int) {
	idx := newHashIndex(keys, n)
	ids = make([]int, n)
	groupOf := make(map[int]int)
	for r := 0; r < n; r++ {
		if prev := idx.first(keys, r); prev >= 0 {
			ids[r] = groupOf[prev]
			continue
		}
		idx.insert(r)
		groupOf[r] = len(firsts)
		ids[r] = len(firsts)
		firsts = append(firsts, r)
	}
	return ids, firsts
}

// ValueCounts counts distinct non-null, non-NaN values of a column, most
// frequent first; ties keep first-seen order.
func (t *Table) ValueCounts(column string) (*Table, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	valid := make([]int, 0, c.Len())
	for r := 0; r < c.Len(); r++ {
		if cellRank(c, r) == 0 {
			valid = append(valid, r)
		}
	}
	sub := c.take(valid)
	ids, firsts := groupRows(rowKey{sub}, sub.Len())
	counts := make([]int64, len(firsts))
	for _, g := range ids {
		counts[g]++
	}
	order := mergeSort(allRows(len(firsts)), func(a, b int) int {
		switch {
		case counts[a] > counts[b]:
			return -1
		case counts[a] < counts[b]:
			return 1
		}
		return 0
	})
	values := newColumn(c.name, c.dtype, len(order))
	countName := "count"
	if countName == c.name {
		countName = "frequency"
	}
	freq := newColumn(countName, Int64, len(order))
	for _, g := range order {
		values.appendFrom(sub, firsts[g])
		freq.AppendInt(counts[g])
	}
	return NewTable(values, freq)
}

// Unique returns the distinct values of a column in first-seen order,
// including null and NaN once each.
func (t *Table) Unique(column string) (*Column, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	_, firsts := groupRows(rowKey{c}, c.Len())
	return c.take(firsts), nil
}

// NUnique counts distinct values of a column, excluding null and NaN
func (t *Table) NUnique(column string) (int, error) {
	u, err := t.Unique(column)
	if err != nil {
		return 0, err
	}
	n := 0
	for r := 0; r < u.Len(); r++ {
		if cellRank(u, r) == 0 {
			n++
		}
	}
	return n, nil
}

// Duplicated marks repeated rows, comparing the subset columns (every
// column when subset is empty) by identity.
func (t *Table) Duplicated(keep Keep, subset ...string) ([]bool, error) {
	var keys rowKey
	if len(subset) == 0 {
		keys = rowKey(t.columns)
	}
	for _, name := range subset {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, c)
	}
	ids, firsts := groupRows(keys, t.rows)
	mask := make([]bool, t.rows)
	switch keep {
	case KeepFirst:
		for r, g := range ids {
			mask[r] = firsts[g] != r
		}
	case KeepLast:
		last := make([]int, len(firsts))
		for r, g := range ids {
			last[g] = r
		}
		for r, g := range ids {
			mask[r] = last[g] != r
		}
	case KeepNone:
		counts := make([]int, len(firsts))
		for _, g := range ids {
			counts[g]++
		}
		for r, g := range ids {
			mask[r] = counts[g] > 1
		}
	default:
		return nil, errors.Newf(errors.CodeInvalid, "unknown keep policy %d", int(keep))
	}
	return mask, nil
}

// DropDuplicates removes the rows Duplicated marks
func (t *Table) DropDuplicates(keep Keep, subset ...string) (*Table, error) {
	dup, err := t.Duplicated(keep, subset...)
	if err != nil {
		return nil, err
	}
	for i := range dup {
		dup[i] = !dup[i]
	}
	return t.FilterMask(dup)
}

// Concat appends the rows of others below t. Every table must have the same
// column names and dtypes in the same order.
func (t *Table) Concat(others ...*Table) (*Table, error) {
	total := t.rows
	for k, o := range others {
		if len(o.columns) != len(t.columns) {
			return nil, errors.Newf(errors.CodeInvalid, "table %d has %d columns, expected %d", k+1, len(o.columns), len(t.columns))
		}
		for j, c := range o.columns {
			if c.name != t.columns[j].name || c.dtype != t.columns[j].dtype {
				return nil, errors.Newf(errors.CodeInvalid, "table %d column %q (%s) does not match %q (%s)",
					k+1, c.name, c.dtype, t.columns[j].name, t.columns[j].dtype).WithColumn(j)
			}
		}
		total += o.rows
	}
	if err := checkCapacity(total, "concat"); err != nil {
		return nil, err
	}
	cols := make([]*Column, len(t.columns))
	for j, c := range t.columns {
		out := newColumn(c.name, c.dtype, total)
		for _, src := range append([]*Table{t}, others...) {
			sc := src.columns[j]
			for r := 0; r < sc.Len(); r++ {
				out.appendFrom(sc, r)
			}
		}
		cols[j] = out
	}
	return t.derive(cols), nil
}
