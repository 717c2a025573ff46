package columnar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortValuesMissingLast(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "v", Float64, 2.0, nil, nan, 1.0, 3.0),
		mustCol(t, "pos", Int64, 0, 1, 2, 3, 4),
	)
	asc, err := tbl.SortValues(Asc("v"))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(3), int64(0), int64(4), int64(2), int64(1)}, cells(t, asc, "pos"))

	desc, err := tbl.SortValues(Desc("v"))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(4), int64(0), int64(3), int64(2), int64(1)}, cells(t, desc, "pos"))
}

func TestSortValuesStableMultiKey(t *testing.T) {
	n := 200
	keys := make([]interface{}, n)
	sub := make([]interface{}, n)
	pos := make([]interface{}, n)
	for i := 0; i < n; i++ {
		keys[i] = int64(i % 7)
		sub[i] = []string{"b", "a"}[i%2]
		pos[i] = int64(i)
	}
	tbl := mustTable(t, mustCol(t, "k", Int64, keys...), mustCol(t, "s", String, sub...), mustCol(t, "pos", Int64, pos...))

	out, err := tbl.SortValues(Asc("k"))
	require.NoError(t, err)
	k, _ := out.Column("k")
	p, _ := out.Column("pos")
	for i := 1; i < n; i++ {
		require.LessOrEqual(t, k.Int(i-1), k.Int(i))
		if k.Int(i-1) == k.Int(i) {
			require.Less(t, p.Int(i-1), p.Int(i), "stability at row %d", i)
		}
	}

	out, err = tbl.SortValues(Asc("k"), Desc("s"))
	require.NoError(t, err)
	k, _ = out.Column("k")
	s, _ := out.Column("s")
	p, _ = out.Column("pos")
	for i := 1; i < n; i++ {
		if k.Int(i-1) != k.Int(i) {
			continue
		}
		require.GreaterOrEqual(t, s.Str(i-1), s.Str(i))
		if s.Str(i-1) == s.Str(i) {
			require.Less(t, p.Int(i-1), p.Int(i))
		}
	}

	_, err = tbl.SortValues(Asc("nope"))
	assert.Error(t, err)
}

func TestNLargestNSmallest(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "v", Float64, 5.0, nil, 9.0, nan, 1.0, 9.0),
		mustCol(t, "pos", Int64, 0, 1, 2, 3, 4, 5),
	)
	out, err := tbl.NLargest(2, "v")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(2), int64(5)}, cells(t, out, "pos"))

	out, err = tbl.NSmallest(10, "v")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(4), int64(0), int64(2), int64(5)}, cells(t, out, "pos"))

	_, err = tbl.NLargest(-1, "v")
	assert.Error(t, err)
}

func TestSampleDeterministic(t *testing.T) {
	vals := make([]interface{}, 50)
	for i := range vals {
		vals[i] = int64(i)
	}
	tbl := mustTable(t, mustCol(t, "v", Int64, vals...))

	a, err := tbl.Sample(20, false, 42)
	require.NoError(t, err)
	b, err := tbl.Sample(20, false, 42)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	seen := map[int64]bool{}
	c, _ := a.Column("v")
	for i := 0; i < c.Len(); i++ {
		assert.False(t, seen[c.Int(i)], "duplicate without replacement")
		seen[c.Int(i)] = true
	}

	_, err = tbl.Sample(51, false, 1)
	assert.Error(t, err)

	r, err := tbl.Sample(100, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, r.NumRows())
}

func TestXorshift32(t *testing.T) {
	rng := newXorshift32(1)
	assert.Equal(t, uint32(270369), rng.next())
	zero := newXorshift32(0)
	assert.NotEqual(t, uint32(0), zero.next())
}
