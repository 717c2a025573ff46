// Package testutil provides testing helpers shared by cpandas packages.
package testutil

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a logger that writes to the test output and installs
// it as the global logger until the test completes.
func TestLogger(t testing.TB) *zap.Logger {
	l := zaptest.NewLogger(t)
	restore := logger.Replace(l)
	t.Cleanup(restore)
	return l
}

// TempPath returns a path named name inside a per-test temporary directory.
func TempPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// MustColumn builds a column from Go values, nil meaning null.
func MustColumn(t testing.TB, name string, dtype columnar.DType, values ...interface{}) *columnar.Column {
	t.Helper()
	c, err := columnar.FromValues(name, dtype, values)
	require.NoError(t, err)
	return c
}

// MustTable assembles columns into a table.
func MustTable(t testing.TB, cols ...*columnar.Column) *columnar.Table {
	t.Helper()
	tbl, err := columnar.NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

// SampleTable returns n rows with one column per dtype. When nulls is set
// every seventh row is null in each column; the float column also carries
// NaN on every eleventh row.
func SampleTable(t testing.TB, n int, nulls bool) *columnar.Table {
	t.Helper()
	ids := make([]interface{}, n)
	scores := make([]interface{}, n)
	names := make([]interface{}, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(i*3 - 50)
		switch {
		case i%11 == 5:
			scores[i] = math.NaN()
		default:
			scores[i] = float64(i) / 4
		}
		names[i] = fmt.Sprintf("name-%d", i%13)
		if i%13 == 0 {
			names[i] = ""
		}
		if nulls && i%7 == 3 {
			ids[i], scores[i], names[i] = nil, nil, nil
		}
	}
	return MustTable(t,
		MustColumn(t, "id", columnar.Int64, ids...),
		MustColumn(t, "score", columnar.Float64, scores...),
		MustColumn(t, "name", columnar.String, names...),
	)
}

// RequireTablesEqual fails the test when the tables differ in shape, names,
// dtypes, row label or any cell, reporting the first difference.
func RequireTablesEqual(t testing.TB, want, got *columnar.Table) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.ColumnNames(), got.ColumnNames(), "column names")
	require.Equal(t, want.NumRows(), got.NumRows(), "row count")
	require.Equal(t, want.Index(), got.Index(), "row label")
	for j, wc := range want.Columns() {
		gc := got.ColumnAt(j)
		require.Equal(t, wc.DType(), gc.DType(), "dtype of %s", wc.Name())
		for i := 0; i < wc.Len(); i++ {
			w, g := wc.At(i), gc.At(i)
			if !w.Equal(g) {
				t.Fatalf("column %s row %d: want %s, got %s", wc.Name(), i, w, g)
			}
		}
	}
	require.True(t, want.Equal(got))
}
