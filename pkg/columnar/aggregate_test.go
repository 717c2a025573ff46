package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

func TestGroupBySumNullGroup(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "g", String, "a", "a", "b"),
		mustCol(t, "v", Int64, 1, 2, nil),
	)
	out, err := tbl.GroupBy("g", Agg{Column: "v", Op: Sum})
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "v_sum"}, out.ColumnNames())
	assert.Equal(t, []interface{}{"a", "b"}, cells(t, out, "g"))
	assert.Equal(t, []interface{}{int64(3), nil}, cells(t, out, "v_sum"))
}

func TestGroupByAllOps(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "k", Int64, 2, 1, 2, nil, 1, 2),
		mustCol(t, "f", Float64, 1.0, nan, 3.0, 100.0, nil, 5.0),
		mustCol(t, "s", String, "x", "b", "a", "z", "c", nil),
	)
	out, err := tbl.GroupBy("k",
		Agg{"f", Count}, Agg{"f", Sum}, Agg{"f", Mean}, Agg{"f", Min}, Agg{"f", Max},
		Agg{"s", Count}, Agg{"s", Min}, Agg{"s", Max})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{int64(2), int64(1)}, cells(t, out, "k"))
	assert.Equal(t, []interface{}{int64(3), int64(1)}, cells(t, out, "f_count"), "NaN counts as non-null")
	assert.Equal(t, []interface{}{9.0, nil}, cells(t, out, "f_sum"))
	assert.Equal(t, []interface{}{3.0, nil}, cells(t, out, "f_mean"))
	assert.Equal(t, []interface{}{1.0, nil}, cells(t, out, "f_min"))
	assert.Equal(t, []interface{}{5.0, nil}, cells(t, out, "f_max"))
	assert.Equal(t, []interface{}{int64(2), int64(2)}, cells(t, out, "s_count"))
	assert.Equal(t, []interface{}{"a", "b"}, cells(t, out, "s_min"))
	assert.Equal(t, []interface{}{"x", "c"}, cells(t, out, "s_max"))

	fc, _ := out.Column("f_count")
	assert.Equal(t, Int64, fc.DType())
	mean, _ := out.Column("f_mean")
	assert.Equal(t, Float64, mean.DType())
}

func TestGroupByErrors(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "f", Float64, 1.0),
		mustCol(t, "s", String, "a"),
		mustCol(t, "i", Int64, math.MaxInt64),
	)
	_, err := tbl.GroupBy("f", Agg{"s", Count})
	assert.Error(t, err, "float keys are rejected")

	_, err = tbl.GroupBy("s", Agg{"s", Sum})
	assert.Error(t, err)

	over := mustTable(t,
		mustCol(t, "k", String, "a", "a"),
		mustCol(t, "i", Int64, int64(math.MaxInt64), 1),
	)
	_, err = over.GroupBy("k", Agg{"i", Sum})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
	row, _ := errors.Location(err)
	assert.Equal(t, 1, row)
}

func TestPivotTable(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "region", String, "n", "s", "n", "s", "n"),
		mustCol(t, "year", Int64, 2020, 2020, 2021, 2022, 2021),
		mustCol(t, "sales", Int64, 1, 2, 3, nil, 4),
	)
	out, err := tbl.PivotTable("region", "year", "sales", Sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "2020", "2021", "2022"}, out.ColumnNames())
	assert.Equal(t, []interface{}{"n", "s"}, cells(t, out, "region"))
	assert.Equal(t, []interface{}{int64(1), int64(2)}, cells(t, out, "2020"))
	assert.Equal(t, []interface{}{int64(7), nil}, cells(t, out, "2021"))
	assert.Equal(t, []interface{}{nil, nil}, cells(t, out, "2022"))

	counts, err := tbl.PivotTable("region", "year", "sales", Count)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(0), int64(0)}, cells(t, counts, "2022"))
	assert.Equal(t, []interface{}{int64(2), int64(0)}, cells(t, counts, "2021"))
}

func TestPivotTableColumnNames(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "k", Int64, 1, 1, 2, 2),
		mustCol(t, "c", String, "", "x", "k", ""),
		mustCol(t, "v", Int64, 10, 20, 30, 40),
	)
	out, err := tbl.PivotTable("k", "c", "v", Sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "c", "x", "k_1"}, out.ColumnNames())
	assert.Equal(t, []interface{}{int64(10), int64(40)}, cells(t, out, "c"))
	assert.Equal(t, []interface{}{nil, int64(30)}, cells(t, out, "k_1"))
}

func TestGroupByOutputNameCollision(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "v_sum", String, "a", "a", "b"),
		mustCol(t, "v", Int64, 1, 2, 3),
	)
	out, err := tbl.GroupBy("v_sum", Agg{"v", Sum}, Agg{"v", Sum})
	require.NoError(t, err)
	assert.Equal(t, []string{"v_sum", "v_sum_1", "v_sum_2"}, out.ColumnNames())
	assert.Equal(t, []interface{}{int64(3), int64(3)}, cells(t, out, "v_sum_1"))
}

func TestDescribe(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "i", Int64, 1, 2, nil),
		mustCol(t, "f", Float64, 0.5, nan, 1.0),
		mustCol(t, "s", String, "a", "b", "c"),
	)
	out, err := tbl.Describe()
	require.NoError(t, err)
	assert.Equal(t, []string{"statistic", "i", "f"}, out.ColumnNames())
	assert.Equal(t, 4, out.NumRows())
	assert.Equal(t, []interface{}{"2", "1.5", "1", "2"}, cells(t, out, "i"))
	assert.Equal(t, []interface{}{"2", "0.75", "0.5", "1"}, cells(t, out, "f"))

	strOnly := mustTable(t, mustCol(t, "s", String, "a"))
	_, err = strOnly.Describe()
	assert.Error(t, err)
}

func TestCorrCov(t *testing.T) {
	tbl := mustTable(t,
		mustCol(t, "x", Float64, 1.0, 2.0, 3.0, nil),
		mustCol(t, "y", Int64, 2, 4, 6, 8),
		mustCol(t, "c", Float64, 5.0, 5.0, 5.0, 5.0),
	)
	corr, err := tbl.Corr()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", "y", "c"}, cells(t, corr, "column"))
	y := cells(t, corr, "y")
	assert.InDelta(t, 1.0, y[0], 1e-12)
	assert.InDelta(t, 1.0, y[1], 1e-12)
	assert.Nil(t, y[2], "zero variance")

	cov, err := tbl.Cov()
	require.NoError(t, err)
	x := cells(t, cov, "x")
	assert.InDelta(t, 1.0, x[0], 1e-12)
	assert.InDelta(t, 2.0, x[1], 1e-12)
	assert.InDelta(t, 0.0, x[2], 1e-12)

	single := mustTable(t, mustCol(t, "x", Float64, 1.0))
	cov, err = single.Cov()
	require.NoError(t, err)
	assert.Nil(t, cells(t, cov, "x")[0])
}
