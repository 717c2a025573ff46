package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func mustCol(t *testing.T, name string, dtype DType, values ...interface{}) *Column {
	t.Helper()
	c, err := FromValues(name, dtype, values)
	require.NoError(t, err)
	return c
}

func mustTable(t *testing.T, cols ...*Column) *Table {
	t.Helper()
	tbl, err := NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

// cells returns the values of a column as Go values, nil for null
func cells(t *testing.T, tbl *Table, name string) []interface{} {
	t.Helper()
	c, err := tbl.Column(name)
	require.NoError(t, err)
	out := make([]interface{}, c.Len())
	for i := range out {
		out[i] = c.At(i).Interface()
	}
	return out
}
