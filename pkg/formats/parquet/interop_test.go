package parquet

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/testutil"
)

// arrowCells flattens a chunked arrow column into Go values, nil for null.
func arrowCells(t *testing.T, col *arrow.Column) []interface{} {
	t.Helper()
	var out []interface{}
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			if chunk.IsNull(i) {
				out = append(out, nil)
				continue
			}
			switch a := chunk.(type) {
			case *array.Int64:
				out = append(out, a.Value(i))
			case *array.Float64:
				out = append(out, a.Value(i))
			case *array.String:
				out = append(out, a.Value(i))
			default:
				t.Fatalf("unexpected arrow array %T", chunk)
			}
		}
	}
	return out
}

func tableCells(c *columnar.Column) []interface{} {
	out := make([]interface{}, c.Len())
	for i := range out {
		out[i] = c.At(i).Interface()
	}
	return out
}

func TestArrowReadsWrittenFile(t *testing.T) {
	for _, codec := range []Codec{Uncompressed, Snappy, Gzip, Zstd} {
		t.Run(codec.String(), func(t *testing.T) {
			// NaN does not compare equal through interface values
			want, err := testutil.SampleTable(t, 2000, true).Transform("score", func(r columnar.Row) (columnar.Value, error) {
				v, err := r.Get("score")
				if err == nil && v.IsNaN() {
					return columnar.FloatValue(-1), nil
				}
				return v, err
			})
			require.NoError(t, err)

			data := encode(t, want, &WriterConfig{Codec: codec, RowGroupSize: 700})

			fr, err := file.NewParquetReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer fr.Close()
			assert.Equal(t, int64(2000), fr.NumRows())
			assert.Equal(t, 3, fr.NumRowGroups())

			ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
			require.NoError(t, err)
			tbl, err := ar.ReadTable(context.Background())
			require.NoError(t, err)
			defer tbl.Release()

			require.Equal(t, int64(3), tbl.NumCols())
			for j, c := range want.Columns() {
				assert.Equal(t, c.Name(), tbl.Column(j).Name())
				assert.Equal(t, tableCells(c), arrowCells(t, tbl.Column(j)), c.Name())
			}
		})
	}
}

func TestReadArrowWrittenFile(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "city", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "small", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "ratio", Type: arrow.PrimitiveTypes.Float32, Nullable: false},
	}, nil)

	const n = 5000
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Field(0).(*array.Int64Builder).Append(int64(i) * 1_000_003)
		if i%9 == 0 {
			b.Field(1).(*array.Float64Builder).AppendNull()
		} else {
			b.Field(1).(*array.Float64Builder).Append(float64(i) / 8)
		}
		if i%5 == 0 {
			b.Field(2).(*array.StringBuilder).AppendNull()
		} else {
			b.Field(2).(*array.StringBuilder).Append(fmt.Sprintf("city-%d", i%17))
		}
		if i%4 == 1 {
			b.Field(3).(*array.Int32Builder).AppendNull()
		} else {
			b.Field(3).(*array.Int32Builder).Append(int32(i%300) - 150)
		}
		b.Field(4).(*array.Float32Builder).Append(float32(i%64) / 4)
	}
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	props := pq.NewWriterProperties(
		pq.WithCompression(compress.Codecs.Snappy),
		pq.WithDictionaryDefault(true),
		pq.WithDataPageSize(1024),
		pq.WithDataPageVersion(pq.DataPageV1),
		pq.WithMaxRowGroupLength(2048),
	)
	fw, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	require.NoError(t, err)
	require.NoError(t, fw.Write(rec))
	require.NoError(t, fw.Close())

	got, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, n, got.NumRows())
	assert.Equal(t, []string{"id", "score", "city", "small", "ratio"}, got.ColumnNames())

	small, err := got.Column("small")
	require.NoError(t, err)
	assert.Equal(t, columnar.Int64, small.DType())
	ratio, err := got.Column("ratio")
	require.NoError(t, err)
	assert.Equal(t, columnar.Float64, ratio.DType())

	for i := 0; i < n; i++ {
		row, err := got.Row(i)
		require.NoError(t, err)
		vals := row.Values()

		assert.Equal(t, int64(i)*1_000_003, vals[0].Int)
		if i%9 == 0 {
			assert.True(t, vals[1].Null)
		} else {
			assert.Equal(t, float64(i)/8, vals[1].Float)
		}
		if i%5 == 0 {
			assert.True(t, vals[2].Null)
		} else {
			assert.Equal(t, fmt.Sprintf("city-%d", i%17), vals[2].Str)
		}
		if i%4 == 1 {
			assert.True(t, vals[3].Null)
		} else {
			assert.Equal(t, int64(i%300)-150, vals[3].Int)
		}
		assert.False(t, math.IsNaN(vals[4].Float))
		assert.Equal(t, float64(float32(i%64)/4), vals[4].Float)
	}
}
