package csv

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"unsafe"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInfersTypes(t *testing.T) {
	testutil.TestLogger(t)

	in := "id,score,name,mixed\n1,0.5,a,1\n2,,b,x\nNA,NaN,,2\n"
	got, err := Read(strings.NewReader(in), nil)
	require.NoError(t, err)

	want := testutil.MustTable(t,
		testutil.MustColumn(t, "id", columnar.Int64, int64(1), int64(2), nil),
		testutil.MustColumn(t, "score", columnar.Float64, 0.5, nil, math.NaN()),
		testutil.MustColumn(t, "name", columnar.String, "a", "b", nil),
		testutil.MustColumn(t, "mixed", columnar.String, "1", "x", "2"),
	)
	testutil.RequireTablesEqual(t, want, got)
}

func TestReadWithSchema(t *testing.T) {
	schema := &columnar.Schema{Fields: []columnar.Field{
		{Name: "a", Type: columnar.Float64},
		{Name: "b", Type: columnar.String},
	}}
	opts := TSVOptions()
	opts.Header = false
	opts.Schema = schema

	got, err := Read(strings.NewReader("1\tx\n2\t\n"), opts)
	require.NoError(t, err)
	want := testutil.MustTable(t,
		testutil.MustColumn(t, "a", columnar.Float64, 1.0, 2.0),
		testutil.MustColumn(t, "b", columnar.String, "x", nil),
	)
	testutil.RequireTablesEqual(t, want, got)
}

func TestReadErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.Schema = &columnar.Schema{Fields: []columnar.Field{{Name: "n", Type: columnar.Int64}}}

	_, err := Read(strings.NewReader("n\n1\nabc\n"), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
	row, col := errors.Location(err)
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)

	_, err = Read(strings.NewReader("a,b\n1\n"), nil)
	assert.True(t, errors.IsCode(err, errors.CodeParse))

	_, err = Read(strings.NewReader("a,a\n1,2\n"), nil)
	assert.True(t, errors.IsCode(err, errors.CodeParse))

	_, err = Read(strings.NewReader("\"unterminated\n"), nil)
	assert.True(t, errors.IsCode(err, errors.CodeParse))

	_, err = Read(strings.NewReader(""), nil)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}

func TestHeaderlessNames(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	got, err := Read(strings.NewReader("1,a\n2,b\n"), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"col0", "col1"}, got.ColumnNames())
}

func TestWriteRead(t *testing.T) {
	tbl := testutil.MustTable(t,
		testutil.MustColumn(t, "id", columnar.Int64, int64(-3), nil, int64(9)),
		testutil.MustColumn(t, "v", columnar.Float64, 0.1, math.Inf(1), nil),
		testutil.MustColumn(t, "s", columnar.String, "a,b", "q\"uote", nil),
	)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, nil))
	assert.Equal(t, "id,v,s\n-3,0.1,\"a,b\"\n,+Inf,\"q\"\"uote\"\n9,,\n", buf.String())

	got, err := Read(&buf, nil)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, tbl, got)
}

func TestReadSharesRepeatedStrings(t *testing.T) {
	tbl, err := Read(strings.NewReader("region\nEU\nUS\nEU\n"), nil)
	require.NoError(t, err)
	c := tbl.ColumnAt(0)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, unsafe.StringData(c.Str(0)), unsafe.StringData(c.Str(2)))
}
