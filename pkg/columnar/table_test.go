package columnar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

func sampleTable(t *testing.T) *Table {
	return mustTable(t,
		mustCol(t, "id", Int64, 1, 2, 3, 4),
		mustCol(t, "name", String, "a", nil, "c", "d"),
		mustCol(t, "score", Float64, 1.5, 2.5, nil, nan),
	)
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable(mustCol(t, "a", Int64, 1), mustCol(t, "a", Int64, 2))
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))

	_, err = NewTable(mustCol(t, "a", Int64, 1), mustCol(t, "b", Int64, 2, 3))
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))

	_, err = NewTable(mustCol(t, "", Int64))
	assert.Error(t, err)
}

func TestAppendRowIsAtomic(t *testing.T) {
	tbl := sampleTable(t)
	err := tbl.AppendRow([]Value{IntValue(5), StringValue("e"), StringValue("bad")})
	require.Error(t, err)
	row, col := errors.Location(err)
	assert.Equal(t, 4, row)
	assert.Equal(t, 2, col)

	assert.Equal(t, 4, tbl.NumRows())
	for _, c := range tbl.Columns() {
		assert.Equal(t, 4, c.Len(), c.Name())
	}

	require.NoError(t, tbl.AppendRow([]Value{IntValue(5), NullValue(String), FloatValue(9)}))
	assert.Equal(t, 5, tbl.NumRows())
}

func TestBuilderNAValues(t *testing.T) {
	schema := Schema{Fields: []Field{{"n", Int64}, {"s", String}, {"f", Float64}}}
	b, err := NewBuilder(schema, WithNAValues("NA"))
	require.NoError(t, err)

	require.NoError(t, b.AppendText([]string{"NA", "x", "1.5"}))
	require.NoError(t, b.AppendText([]string{" 7 ", "", ""}))
	require.NoError(t, b.AppendText([]string{"3", "NA", "nan"}))

	err = b.AppendText([]string{"4", "y", "abc"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
	row, col := errors.Location(err)
	assert.Equal(t, 3, row)
	assert.Equal(t, 2, col)

	assert.Error(t, b.AppendText([]string{"1"}))

	tbl := b.Table()
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []interface{}{nil, int64(7), int64(3)}, cells(t, tbl, "n"))
	assert.Equal(t, []interface{}{"x", "", nil}, cells(t, tbl, "s"))
	f, _ := tbl.Column("f")
	assert.True(t, f.IsNull(1))
	assert.True(t, f.At(2).IsNaN())
	assert.Equal(t, 0, b.Len())
}

func TestCopyIsIndependent(t *testing.T) {
	tbl := sampleTable(t)
	cp := tbl.Copy()
	assert.True(t, tbl.Equal(cp))

	require.NoError(t, cp.AppendRow([]Value{IntValue(9), StringValue("z"), FloatValue(0)}))
	assert.Equal(t, 4, tbl.NumRows())
	assert.False(t, tbl.Equal(cp))
}

func TestProjection(t *testing.T) {
	tbl := sampleTable(t)

	out, err := tbl.Select("score", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"score", "id"}, out.ColumnNames())

	_, err = tbl.Select("id", "id")
	assert.Error(t, err)
	_, err = tbl.SelectIndices([]int{0, 5})
	assert.Error(t, err)

	out, err = tbl.SelectDTypes([]DType{Int64, Float64}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score"}, out.ColumnNames())

	out, err = tbl.SelectDTypes(nil, []DType{String})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score"}, out.ColumnNames())

	_, err = tbl.SelectDTypes([]DType{Int64}, []DType{Int64})
	assert.Error(t, err)

	out, err = tbl.Drop("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score"}, out.ColumnNames())
	_, err = tbl.Drop("id", "name", "score")
	assert.Error(t, err)

	out, err = tbl.Rename(map[string]string{"id": "key"})
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "name", "score"}, out.ColumnNames())
	_, err = tbl.Rename(map[string]string{"id": ""})
	assert.Error(t, err)
	_, err = tbl.Rename(map[string]string{"id": "name"})
	assert.Error(t, err)

	assert.Equal(t, []string{"id", "name", "score"}, tbl.ColumnNames(), "input unchanged")
}

func TestRowSelection(t *testing.T) {
	tbl := sampleTable(t)

	out, err := tbl.ILoc([]int{3, 0, 0}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(4), int64(1), int64(1)}, cells(t, out, "id"))

	head, err := tbl.Head(10)
	require.NoError(t, err)
	assert.Equal(t, 4, head.NumRows())
	tail, err := tbl.Tail(1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(4)}, cells(t, tail, "id"))
	_, err = tbl.Head(-1)
	assert.Error(t, err)

	_, err = tbl.FilterMask([]bool{true})
	assert.Error(t, err)
}

func TestLocWithLabels(t *testing.T) {
	tbl := sampleTable(t)
	require.NoError(t, tbl.SetIndex("id"))
	assert.Error(t, tbl.SetIndex("score"))

	out, err := tbl.Loc([]Value{IntValue(3), IntValue(1)}, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"c", "a"}, cells(t, out, "name"))

	_, err = tbl.Loc([]Value{IntValue(42)}, nil)
	assert.Error(t, err)

	out, err = tbl.LocRange(IntValue(2), IntValue(3), nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(2), int64(3)}, cells(t, out, "id"))
	assert.Equal(t, "id", out.Index())

	_, err = tbl.LocRange(IntValue(3), IntValue(2), nil)
	assert.Error(t, err)

	require.NoError(t, tbl.SetIndex(""))
	out, err = tbl.Loc([]Value{IntValue(0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1)}, cells(t, out, "id"))
}

func TestFilterMaskComplement(t *testing.T) {
	tbl := sampleTable(t)
	mask := []bool{true, false, false, true}
	inv := make([]bool, len(mask))
	for i, m := range mask {
		inv[i] = !m
	}
	a, err := tbl.FilterMask(mask)
	require.NoError(t, err)
	b, err := tbl.FilterMask(inv)
	require.NoError(t, err)
	assert.Equal(t, tbl.NumRows(), a.NumRows()+b.NumRows())

	ids := append(cells(t, a, "id"), cells(t, b, "id")...)
	assert.ElementsMatch(t, cells(t, tbl, "id"), ids)
}

func TestConcat(t *testing.T) {
	tbl := sampleTable(t)
	out, err := tbl.Concat(tbl)
	require.NoError(t, err)
	assert.Equal(t, 8, out.NumRows())

	other := mustTable(t, mustCol(t, "id", Int64, 1))
	_, err = tbl.Concat(other)
	assert.Error(t, err)
}
