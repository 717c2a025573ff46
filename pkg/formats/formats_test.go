package formats

import (
	"os"
	"testing"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/compression"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats/parquet"
	"github.com/ajitpratap0/cpandas/pkg/metrics"
	"github.com/ajitpratap0/cpandas/pkg/testutil"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		path string
		f    Format
		alg  compression.Algorithm
	}{
		{"a.parquet", Parquet, compression.None},
		{"dir/b.CSV", CSV, compression.None},
		{"c.csv.gz", CSV, compression.Gzip},
		{"d.ndjson.zst", NDJSON, compression.Zstd},
		{"e.jsonl", NDJSON, compression.None},
		{"f.cpd.lz4", CPD, compression.LZ4},
		{"g.feather", Arrow, compression.None},
		{"h.tsv.s2", TSV, compression.S2},
		{"i.avro.deflate", Avro, compression.Deflate},
		{"j.json.snappy", JSON, compression.Snappy},
	}
	for _, tc := range cases {
		f, alg, err := Detect(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.f, f, tc.path)
		assert.Equal(t, tc.alg, alg, tc.path)
	}

	for _, bad := range []string{"noext", "x.gz", "x.xlsx"} {
		_, _, err := Detect(bad)
		assert.True(t, errors.IsCode(err, errors.CodeInvalid), bad)
	}
}

func TestFormatInfo(t *testing.T) {
	for _, f := range Formats() {
		info := GetFormatInfo(f)
		require.NotNil(t, info)
		got, err := ParseFormat(info.Extensions[0])
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	assert.Nil(t, GetFormatInfo("xlsx"))
}

func TestFileRoundTrips(t *testing.T) {
	testutil.TestLogger(t)

	withNulls := testutil.SampleTable(t, 400, true)
	// Text formats cannot tell NaN, null and "" apart in every column.
	plain := testutil.MustTable(t,
		testutil.MustColumn(t, "id", columnar.Int64, int64(1), nil, int64(3)),
		testutil.MustColumn(t, "x", columnar.Float64, 0.5, 1.25, nil),
		testutil.MustColumn(t, "s", columnar.String, "a", "b,c", nil),
	)

	cases := []struct {
		name string
		tbl  *columnar.Table
	}{
		{"t.parquet", withNulls},
		{"t.parquet.gz", withNulls},
		{"t.cpd", withNulls},
		{"t.cpd.zst", withNulls},
		{"t.arrow.lz4", withNulls},
		{"t.avro", withNulls},
		{"t.csv", plain},
		{"t.tsv.snappy", plain},
		{"t.json", plain},
		{"t.ndjson.s2", plain},
		{"t.jsonl.deflate", plain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := testutil.TempPath(t, tc.name)
			require.NoError(t, WriteFile(path, tc.tbl, nil))
			got, err := ReadFile(path, nil)
			require.NoError(t, err)
			testutil.RequireTablesEqual(t, tc.tbl, got)
		})
	}
}

func TestOptionsOverride(t *testing.T) {
	tbl := testutil.SampleTable(t, 50, false)
	path := testutil.TempPath(t, "data.bin")
	opts := &Options{
		Format:      Parquet,
		Compression: compression.Gzip,
		Parquet:     &parquet.WriterConfig{Codec: parquet.Uncompressed, RowGroupSize: 10},
	}
	require.NoError(t, WriteFile(path, tbl, opts))

	got, err := ReadFile(path, opts)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, tbl, got)

	_, err = ReadFile(path, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
}

func TestMetricsRecorded(t *testing.T) {
	before := prom.ToFloat64(metrics.RowsWritten.WithLabelValues("cpd"))
	readBefore := prom.ToFloat64(metrics.RowsRead.WithLabelValues("cpd"))

	path := testutil.TempPath(t, "m.cpd")
	require.NoError(t, WriteFile(path, testutil.SampleTable(t, 25, false), nil))
	_, err := ReadFile(path, nil)
	require.NoError(t, err)

	assert.Equal(t, before+25, prom.ToFloat64(metrics.RowsWritten.WithLabelValues("cpd")))
	assert.Equal(t, readBefore+25, prom.ToFloat64(metrics.RowsRead.WithLabelValues("cpd")))
}

func TestFailedWriteRemovesFile(t *testing.T) {
	tbl := testutil.MustTable(t, testutil.MustColumn(t, "bad name", columnar.Int64, int64(1)))
	path := testutil.TempPath(t, "x.avro")
	err := WriteFile(path, tbl, nil)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(testutil.TempPath(t, "missing.csv"), nil)
	assert.True(t, errors.IsCode(err, errors.CodeIO))

	path := testutil.TempPath(t, "junk.parquet")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))
	_, err = ReadFile(path, nil)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}
