package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCounts(t *testing.T) {
	tbl := mustTable(t, mustCol(t, "f", Float64, 1.0, 2.0, nan, nil, 2.0, 3.0, nan, 1.0, 2.0))
	out, err := tbl.ValueCounts("f")
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "count"}, out.ColumnNames())
	assert.Equal(t, []interface{}{2.0, 1.0, 3.0}, cells(t, out, "f"))
	assert.Equal(t, []interface{}{int64(3), int64(2), int64(1)}, cells(t, out, "count"))
}

func TestUniqueAndNUnique(t *testing.T) {
	tbl := mustTable(t, mustCol(t, "f", Float64, nan, 1.0, nil, nan, 1.0, nil, 2.0))
	u, err := tbl.Unique("f")
	require.NoError(t, err)
	require.Equal(t, 4, u.Len())
	assert.True(t, math.IsNaN(u.Float(0)))
	assert.Equal(t, 1.0, u.Float(1))
	assert.True(t, u.IsNull(2))
	assert.Equal(t, 2.0, u.Float(3))

	n, err := tbl.NUnique("f")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDuplicated(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "a", String, "x", "y", "x", nil, nil, "x"),
		mustCol(t, "b", Int64, 1, 1, 1, 2, 2, 9),
	)
	tests := []struct {
		name   string
		keep   Keep
		subset []string
		want   []bool
	}{
		{"first", KeepFirst, nil, []bool{false, false, true, false, true, false}},
		{"last", KeepLast, nil, []bool{true, false, false, true, false, false}},
		{"none", KeepNone, nil, []bool{true, false, true, true, true, false}},
		{"subset", KeepFirst, []string{"a"}, []bool{false, false, true, false, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.Duplicated(tt.keep, tt.subset...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	out, err := tbl.DropDuplicates(KeepFirst)
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())
}
