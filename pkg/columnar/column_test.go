package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

func TestNewColumnValidation(t *testing.T) {
	_, err := NewColumn("x", DType(9), 0)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))

	_, err = NewColumn("x", Int64, -1)
	assert.True(t, errors.IsCode(err, errors.CodeOutOfMemory))

	c, err := NewColumn("x", String, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestColumnAppendGetPop(t *testing.T) {
	c, err := NewColumn("s", String, 1)
	require.NoError(t, err)
	require.NoError(t, c.Append(StringValue("")))
	require.NoError(t, c.Append(NullValue(String)))
	require.NoError(t, c.Append(StringValue("x")))

	v, err := c.Get(0)
	require.NoError(t, err)
	assert.False(t, v.Null, "empty string is not null")
	assert.Equal(t, "", v.Str)

	v, err = c.Get(1)
	require.NoError(t, err)
	assert.True(t, v.Null)

	_, err = c.Get(3)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))

	require.NoError(t, c.PopLast())
	assert.Equal(t, 2, c.Len())
	require.NoError(t, c.PopLast())
	require.NoError(t, c.PopLast())
	assert.Error(t, c.PopLast())
}

func TestColumnAppendTypeMismatch(t *testing.T) {
	c := mustCol(t, "i", Int64, 1)
	err := c.Append(StringValue("x"))
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
	assert.Equal(t, 1, c.Len())

	f := mustCol(t, "f", Float64, 1)
	require.NoError(t, f.Append(IntValue(2)))
	assert.Equal(t, 2.0, f.Float(1))
}

func TestValueEqualIdentity(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", NullValue(Int64), NullValue(Int64), true},
		{"null vs value", NullValue(Int64), IntValue(0), false},
		{"nan", FloatValue(math.NaN()), FloatValue(math.NaN()), true},
		{"nan vs number", FloatValue(math.NaN()), FloatValue(1), false},
		{"nan vs null", FloatValue(math.NaN()), NullValue(Float64), false},
		{"empty vs null", StringValue(""), NullValue(String), false},
		{"strings", StringValue("a"), StringValue("a"), true},
		{"types differ", IntValue(1), FloatValue(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestValidNumeric(t *testing.T) {
	c := mustCol(t, "f", Float64, 1.5, nil, nan)
	assert.True(t, c.ValidNumeric(0))
	assert.False(t, c.ValidNumeric(1))
	assert.False(t, c.ValidNumeric(2))
	assert.Equal(t, 1, c.NullCount())
}

func TestParseDType(t *testing.T) {
	for in, want := range map[string]DType{"int64": Int64, "INT": Int64, "float": Float64, "str": String} {
		got, err := ParseDType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDType("bool")
	assert.Error(t, err)
}

func TestColumnRank(t *testing.T) {
	c := mustCol(t, "v", Float64, 3.0, 1.0, nil, 3.0, nan, 2.0)
	r := c.Rank()
	want := []interface{}{3.5, 1.0, nil, 3.5, nil, 2.0}
	for i, w := range want {
		assert.Equal(t, w, r.At(i).Interface(), "row %d", i)
	}
}

func withCapacityLimit(t *testing.T, n int) {
	t.Helper()
	prev := capacityLimit
	capacityLimit = n
	t.Cleanup(func() { capacityLimit = prev })
}

func TestCapacityOverMax(t *testing.T) {
	_, err := NewColumn("x", Int64, MaxCapacity+1)
	assert.True(t, errors.IsCode(err, errors.CodeOutOfMemory))

	one := mustTable(t, mustCol(t, "x", Int64, 1))
	_, err = one.Sample(MaxCapacity+1, true, 42)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeOutOfMemory))
}

func TestDerivedRowsOverCapacity(t *testing.T) {
	left := mustTable(t,
		mustCol(t, "k", Int64, 1, 1, 2),
		mustCol(t, "v", String, "a", "b", "c"),
	)
	right := mustTable(t,
		mustCol(t, "k", Int64, 1, 1, 1),
		mustCol(t, "w", String, "x", "y", "z"),
	)
	wide := mustTable(t, mustCol(t, "n", Int64, 6, 5, 4, 3, 2, 1))
	withCapacityLimit(t, 4)

	tests := []struct {
		name string
		run  func() (*Table, error)
	}{
		{"new column", func() (*Table, error) {
			_, err := NewColumn("x", Int64, 5)
			return nil, err
		}},
		{"sample with replacement", func() (*Table, error) { return left.Sample(5, true, 7) }},
		{"iloc repeated rows", func() (*Table, error) { return left.ILoc([]int{0, 0, 1, 1, 2}, nil) }},
		{"concat", func() (*Table, error) { return left.Concat(left) }},
		{"join fan-out", func() (*Table, error) {
			return Join(left, right, JoinOptions{On: []string{"k"}, How: InnerJoin})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.run()
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.IsCode(err, errors.CodeOutOfMemory), err.Error())
		})
	}

	// within the limit the same paths succeed
	out, err := left.Sample(4, true, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())

	// subsets of a table already past the limit only use it as a hint
	sorted, err := wide.SortValues(SortKey{Column: "n"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4), int64(5), int64(6)}, cells(t, sorted, "n"))
	assert.Equal(t, 6, wide.DropNA().NumRows())
	head, err := wide.Head(5)
	require.NoError(t, err)
	assert.Equal(t, 5, head.NumRows())
}
