package columnar

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStrategies = []JoinStrategy{HashStrategy, SortedStrategy, NestedStrategy, AutoStrategy}

func joinInputs(t *testing.T) (*Table, *Table) {
	left := mustTable(t,
		mustCol(t, "k", Int64, 1, 2, nil, 3, 2),
		mustCol(t, "v", String, "l1", "l2", "lnull", "l3", "l2b"),
	)
	right := mustTable(t,
		mustCol(t, "k", Int64, 2, 4, 2, nil, 1),
		mustCol(t, "v", String, "r2", "r4", "r2b", "rnull", "r1"),
	)
	return left, right
}

func TestJoinKinds(t *testing.T) {
	left, right := joinInputs(t)
	tests := []struct {
		how   JoinKind
		keys  []interface{}
		lvals []interface{}
		rvals []interface{}
	}{
		{
			how:   InnerJoin,
			keys:  []interface{}{int64(1), int64(2), int64(2), int64(2), int64(2)},
			lvals: []interface{}{"l1", "l2", "l2", "l2b", "l2b"},
			rvals: []interface{}{"r1", "r2", "r2b", "r2", "r2b"},
		},
		{
			how:   LeftJoin,
			keys:  []interface{}{int64(1), int64(2), int64(2), nil, int64(3), int64(2), int64(2)},
			lvals: []interface{}{"l1", "l2", "l2", "lnull", "l3", "l2b", "l2b"},
			rvals: []interface{}{"r1", "r2", "r2b", nil, nil, "r2", "r2b"},
		},
		{
			how:   RightJoin,
			keys:  []interface{}{int64(1), int64(2), int64(2), int64(2), int64(2), int64(4), nil},
			lvals: []interface{}{"l1", "l2", "l2", "l2b", "l2b", nil, nil},
			rvals: []interface{}{"r1", "r2", "r2b", "r2", "r2b", "r4", "rnull"},
		},
		{
			how:   OuterJoin,
			keys:  []interface{}{int64(1), int64(2), int64(2), nil, int64(3), int64(2), int64(2), int64(4), nil},
			lvals: []interface{}{"l1", "l2", "l2", "lnull", "l3", "l2b", "l2b", nil, nil},
			rvals: []interface{}{"r1", "r2", "r2b", nil, nil, "r2", "r2b", "r4", "rnull"},
		},
	}
	for _, tt := range tests {
		for _, strategy := range allStrategies {
			t.Run(fmt.Sprintf("%s/%s", tt.how, strategy), func(t *testing.T) {
				out, err := Join(left, right, JoinOptions{On: []string{"k"}, How: tt.how, Strategy: strategy})
				require.NoError(t, err)
				assert.Equal(t, []string{"k", "v", "v_right"}, out.ColumnNames())
				assert.Equal(t, tt.keys, cells(t, out, "k"))
				assert.Equal(t, tt.lvals, cells(t, out, "v"))
				assert.Equal(t, tt.rvals, cells(t, out, "v_right"))
			})
		}
	}
}

func TestJoinRowCountInvariant(t *testing.T) {
	n := 300
	lk := make([]interface{}, n)
	for i := range lk {
		lk[i] = fmt.Sprintf("k%d", i%37)
	}
	rk := make([]interface{}, 50)
	for i := range rk {
		rk[i] = fmt.Sprintf("k%d", i%45)
	}
	left := mustTable(t, mustCol(t, "key", String, lk...))
	right := mustTable(t, mustCol(t, "id", String, rk...))

	pairs := 0
	unmatchedLeft := 0
	for _, a := range lk {
		m := 0
		for _, b := range rk {
			if a == b {
				m++
			}
		}
		pairs += m
		if m == 0 {
			unmatchedLeft++
		}
	}
	unmatchedRight := 0
	for _, b := range rk {
		found := false
		for _, a := range lk {
			if a == b {
				found = true
				break
			}
		}
		if !found {
			unmatchedRight++
		}
	}

	for _, strategy := range allStrategies {
		opts := JoinOptions{LeftOn: []string{"key"}, RightOn: []string{"id"}, Strategy: strategy}
		inner, err := Join(left, right, opts)
		require.NoError(t, err)
		assert.Equal(t, pairs, inner.NumRows())
		assert.Equal(t, []string{"key", "id"}, inner.ColumnNames())

		opts.How = LeftJoin
		l, err := Join(left, right, opts)
		require.NoError(t, err)
		assert.Equal(t, pairs+unmatchedLeft, l.NumRows())

		opts.How = OuterJoin
		o, err := Join(left, right, opts)
		require.NoError(t, err)
		assert.Equal(t, pairs+unmatchedLeft+unmatchedRight, o.NumRows())
	}
}

func TestJoinMultiKeyAndSuffixes(t *testing.T) {
	left := mustTable(t,
		mustCol(t, "a", Int64, 1, 1, 2),
		mustCol(t, "b", String, "x", "y", "x"),
		mustCol(t, "val", Int64, 10, 20, 30),
		mustCol(t, "val_r", Int64, 0, 0, 0),
	)
	right := mustTable(t,
		mustCol(t, "a", Int64, 1, 2),
		mustCol(t, "b", String, "y", "x"),
		mustCol(t, "val", Int64, 200, 300),
	)
	out, err := Join(left, right, JoinOptions{On: []string{"a", "b"}, Suffixes: [2]string{"_l", "_r"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "val_l", "val_r", "val_r_1"}, out.ColumnNames())
	assert.Equal(t, []interface{}{int64(20), int64(30)}, cells(t, out, "val_l"))
	assert.Equal(t, []interface{}{int64(200), int64(300)}, cells(t, out, "val_r_1"))
}

func TestJoinValidation(t *testing.T) {
	left, right := joinInputs(t)
	_, err := Join(left, right, JoinOptions{})
	assert.Error(t, err)
	_, err = Join(left, right, JoinOptions{LeftOn: []string{"k"}, RightOn: []string{"k", "v"}})
	assert.Error(t, err)
	_, err = Join(left, right, JoinOptions{LeftOn: []string{"k"}, RightOn: []string{"v"}})
	assert.Error(t, err, "dtype mismatch")

	f := mustTable(t, mustCol(t, "f", Float64, 1.0))
	_, err = Join(f, f, JoinOptions{On: []string{"f"}})
	assert.Error(t, err, "float keys")
}

func TestResolveStrategy(t *testing.T) {
	assert.Equal(t, HashStrategy, resolveStrategy(AutoStrategy, 2000, 1))
	assert.Equal(t, NestedStrategy, resolveStrategy(AutoStrategy, 10, 10))
	assert.Equal(t, NestedStrategy, resolveStrategy(AutoStrategy, 0, 10))
	assert.Equal(t, SortedStrategy, resolveStrategy(SortedStrategy, 0, 0))
}

func TestJoinInputsUnchanged(t *testing.T) {
	left, right := joinInputs(t)
	lc, rc := left.Copy(), right.Copy()
	_, err := Join(left, right, JoinOptions{On: []string{"k"}, How: OuterJoin})
	require.NoError(t, err)
	assert.True(t, left.Equal(lc))
	assert.True(t, right.Equal(rc))
}
