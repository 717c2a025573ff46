package parquet

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"testing"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, tbl *columnar.Table, cfg *WriterConfig) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, cfg))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	testutil.TestLogger(t)

	for _, codec := range []Codec{Uncompressed, Snappy, Gzip, Zstd} {
		for _, nulls := range []bool{false, true} {
			name := codec.String()
			if nulls {
				name += "/nulls"
			}
			t.Run(name, func(t *testing.T) {
				want := testutil.SampleTable(t, 500, nulls)
				data := encode(t, want, &WriterConfig{Codec: codec})

				got, err := Decode(data)
				require.NoError(t, err)
				testutil.RequireTablesEqual(t, want, got)
			})
		}
	}
}

func TestRoundTripSingleDType(t *testing.T) {
	tests := []struct {
		name string
		col  *columnar.Column
	}{
		{"int", testutil.MustColumn(t, "v", columnar.Int64, int64(math.MinInt64), int64(0), nil, int64(math.MaxInt64))},
		{"float", testutil.MustColumn(t, "v", columnar.Float64, math.Inf(-1), math.Copysign(0, -1), nil, math.NaN(), 1e300)},
		{"string", testutil.MustColumn(t, "v", columnar.String, "", nil, "héllo", "a\x00b")},
		{"all null", testutil.MustColumn(t, "v", columnar.String, nil, nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := testutil.MustTable(t, tt.col)
			got, err := Decode(encode(t, want, nil))
			require.NoError(t, err)
			testutil.RequireTablesEqual(t, want, got)
		})
	}
}

func TestNegativeZeroSurvivesDictionary(t *testing.T) {
	negZero := math.Copysign(0, -1)
	vals := make([]interface{}, 100)
	for i := range vals {
		if i%2 == 0 {
			vals[i] = negZero
		} else {
			vals[i] = 0.0
		}
	}
	want := testutil.MustTable(t, testutil.MustColumn(t, "z", columnar.Float64, vals...))
	got, err := Decode(encode(t, want, nil))
	require.NoError(t, err)

	c := got.ColumnAt(0)
	assert.True(t, math.Signbit(c.Float(0)))
	assert.False(t, math.Signbit(c.Float(1)))
}

func TestRowGroupBoundary(t *testing.T) {
	want := testutil.SampleTable(t, DefaultRowGroupSize+10, true)
	data := encode(t, want, nil)

	meta, _, err := DecodeMetadata(data)
	require.NoError(t, err)
	require.Len(t, meta.RowGroups, 2)
	assert.Equal(t, int64(DefaultRowGroupSize), meta.RowGroups[0].NumRows)
	assert.Equal(t, int64(10), meta.RowGroups[1].NumRows)

	got, err := Decode(data)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, want, got)
}

func TestConfiguredRowGroupSize(t *testing.T) {
	want := testutil.SampleTable(t, 1050, true)
	data := encode(t, want, &WriterConfig{Codec: Snappy, RowGroupSize: 100})

	meta, _, err := DecodeMetadata(data)
	require.NoError(t, err)
	require.Len(t, meta.RowGroups, 11)
	for i, rg := range meta.RowGroups {
		require.NotNil(t, rg.Ordinal)
		assert.Equal(t, int16(i), *rg.Ordinal)
		assert.Len(t, rg.Columns, 3)
	}

	got, err := Decode(data)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, want, got)
}

func TestRepetition(t *testing.T) {
	tbl := testutil.MustTable(t,
		testutil.MustColumn(t, "dense", columnar.Int64, int64(1), int64(2)),
		testutil.MustColumn(t, "sparse", columnar.String, "a", nil),
	)
	meta, _, err := DecodeMetadata(encode(t, tbl, nil))
	require.NoError(t, err)

	require.Len(t, meta.Schema, 3)
	assert.Equal(t, int32(2), *meta.Schema[0].NumChildren)
	assert.Equal(t, Required, *meta.Schema[1].Repetition)
	assert.Equal(t, Int64, *meta.Schema[1].Type)
	assert.Equal(t, Optional, *meta.Schema[2].Repetition)
	assert.Equal(t, ByteArray, *meta.Schema[2].Type)
	assert.True(t, meta.Schema[2].String)
	assert.Equal(t, "cpandas", meta.CreatedBy)
}

func TestDictionaryHeuristic(t *testing.T) {
	n := 1000
	lowCard := make([]interface{}, n)
	unique := make([]interface{}, n)
	for i := 0; i < n; i++ {
		lowCard[i] = []string{"red", "green", "blue"}[i%3]
		unique[i] = int64(i) * 7919
	}
	tbl := testutil.MustTable(t,
		testutil.MustColumn(t, "color", columnar.String, lowCard...),
		testutil.MustColumn(t, "key", columnar.Int64, unique...),
	)

	meta, _, err := DecodeMetadata(encode(t, tbl, nil))
	require.NoError(t, err)
	color := meta.RowGroups[0].Columns[0].MetaData
	key := meta.RowGroups[0].Columns[1].MetaData

	assert.NotNil(t, color.DictionaryPageOffset)
	assert.Contains(t, color.Encodings, EncodingRLEDictionary)
	assert.Less(t, *color.DictionaryPageOffset, color.DataPageOffset)

	assert.Nil(t, key.DictionaryPageOffset)
	assert.NotContains(t, key.Encodings, EncodingRLEDictionary)

	noDict := encode(t, tbl, &WriterConfig{Codec: Snappy, DisableDictionary: true})
	meta, _, err = DecodeMetadata(noDict)
	require.NoError(t, err)
	assert.Nil(t, meta.RowGroups[0].Columns[0].MetaData.DictionaryPageOffset)

	got, err := Decode(noDict)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, tbl, got)
}

func TestStatistics(t *testing.T) {
	tbl := testutil.MustTable(t,
		testutil.MustColumn(t, "i", columnar.Int64, int64(5), nil, int64(-2), int64(9)),
		testutil.MustColumn(t, "f", columnar.Float64, math.NaN(), 2.5, nil, -1.0),
		testutil.MustColumn(t, "s", columnar.String, "pear", "apple", nil, "zoo"),
		testutil.MustColumn(t, "n", columnar.Float64, math.NaN(), nil, math.NaN(), nil),
	)
	data := encode(t, tbl, nil)
	meta, _, err := DecodeMetadata(data)
	require.NoError(t, err)
	cols := meta.RowGroups[0].Columns

	st := cols[0].MetaData.Statistics
	require.NotNil(t, st)
	assert.Equal(t, int64(1), *st.NullCount)
	assert.Equal(t, int64(-2), int64(binary.LittleEndian.Uint64(st.MinValue)))
	assert.Equal(t, int64(9), int64(binary.LittleEndian.Uint64(st.MaxValue)))

	st = cols[1].MetaData.Statistics
	assert.Equal(t, -1.0, math.Float64frombits(binary.LittleEndian.Uint64(st.MinValue)))
	assert.Equal(t, 2.5, math.Float64frombits(binary.LittleEndian.Uint64(st.MaxValue)))

	st = cols[2].MetaData.Statistics
	assert.Equal(t, "apple", string(st.MinValue))
	assert.Equal(t, "zoo", string(st.MaxValue))

	// min/max outlive the buffer they were decoded from
	clear(data)
	assert.Equal(t, "apple", string(st.MinValue))
	assert.Equal(t, "zoo", string(st.MaxValue))

	st = cols[3].MetaData.Statistics
	assert.Equal(t, int64(2), *st.NullCount)
	assert.Nil(t, st.MinValue)
	assert.Nil(t, st.MaxValue)
}

func TestRowLabelRoundTrip(t *testing.T) {
	tbl := testutil.SampleTable(t, 20, false)
	require.NoError(t, tbl.SetIndex("name"))

	got, err := Decode(encode(t, tbl, nil))
	require.NoError(t, err)
	assert.Equal(t, "name", got.Index())
	testutil.RequireTablesEqual(t, tbl, got)
}

func TestEmptyTable(t *testing.T) {
	tbl := testutil.MustTable(t,
		testutil.MustColumn(t, "a", columnar.Int64),
		testutil.MustColumn(t, "b", columnar.String),
	)
	data := encode(t, tbl, nil)

	meta, _, err := DecodeMetadata(data)
	require.NoError(t, err)
	assert.Empty(t, meta.RowGroups)

	got, err := Decode(data)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, tbl, got)
}

func TestWriteFileReadFile(t *testing.T) {
	path := testutil.TempPath(t, "out.parquet")
	want := testutil.SampleTable(t, 300, true)
	require.NoError(t, WriteFile(path, want, nil))

	got, err := ReadFile(path)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, want, got)

	meta, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, int64(300), meta.NumRows)

	_, err = ReadFile(testutil.TempPath(t, "missing.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIO))
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in   string
		want Codec
		ok   bool
	}{
		{"", Snappy, true},
		{"snappy", Snappy, true},
		{"NONE", Uncompressed, true},
		{"uncompressed", Uncompressed, true},
		{"gzip", Gzip, true},
		{"zstd", Zstd, true},
		{"brotli", Uncompressed, false},
		{"lz4", Uncompressed, false},
	}
	for _, tt := range tests {
		got, err := ParseCodec(tt.in)
		if !tt.ok {
			require.Error(t, err, tt.in)
			assert.True(t, errors.IsCode(err, errors.CodeInvalid))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestWriteRejectsUnknownCodec(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, testutil.SampleTable(t, 3, false), &WriterConfig{Codec: Codec(5)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
}

type fullDisk struct{ f *os.File }

func (d fullDisk) Write([]byte) (int, error) { return 0, io.ErrShortWrite }
func (d fullDisk) Close() error              { return d.f.Close() }

func TestWriteFileRemovesPartialFile(t *testing.T) {
	tbl := testutil.SampleTable(t, 3, false)

	t.Run("encode error", func(t *testing.T) {
		path := testutil.TempPath(t, "bad.parquet")
		err := WriteFile(path, tbl, &WriterConfig{Codec: Codec(5)})
		require.Error(t, err)
		assert.NoFileExists(t, path)
	})

	t.Run("flush error", func(t *testing.T) {
		prev := createFile
		t.Cleanup(func() { createFile = prev })
		createFile = func(path string) (io.WriteCloser, error) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			return fullDisk{f}, nil
		}

		path := testutil.TempPath(t, "full.parquet")
		err := WriteFile(path, tbl, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeIO))
		assert.NoFileExists(t, path)
	})
}
