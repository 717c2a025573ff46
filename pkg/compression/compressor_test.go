package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() []byte {
	return []byte(strings.Repeat("id,name,score\n1,alice,3.5\n2,bob,NaN\n", 200))
}

func TestCompressorRoundTrip(t *testing.T) {
	data := samplePayload()

	for _, alg := range Algorithms {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				comp, err := NewCompressor(&Config{Algorithm: alg, Level: level})
				require.NoError(t, err)
				assert.Equal(t, alg, comp.Algorithm())
				assert.Equal(t, level, comp.Level())

				compressed, err := comp.Compress(data)
				require.NoError(t, err)
				if alg != None {
					assert.Less(t, len(compressed), len(data))
				}

				out, err := comp.Decompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, data, out)

				var cbuf, dbuf bytes.Buffer
				require.NoError(t, comp.CompressStream(&cbuf, bytes.NewReader(data)))
				require.NoError(t, comp.DecompressStream(&dbuf, &cbuf))
				assert.Equal(t, data, dbuf.Bytes())
			})
		}
	}
}

func TestNewCompressorUnknown(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "brotli"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
}

func TestCompressorPool(t *testing.T) {
	pool := NewCompressorPool(&Config{Algorithm: Zstd, Level: Default})
	data := samplePayload()

	compressed, err := pool.Compress(data)
	require.NoError(t, err)
	out, err := pool.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	bad := NewCompressorPool(&Config{Algorithm: "brotli"})
	_, err = bad.Compress(data)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
}

func TestReaderWriter(t *testing.T) {
	data := samplePayload()
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(alg, Default, &buf)
			require.NoError(t, err)
			_, err = w.Write(data[:100])
			require.NoError(t, err)
			_, err = w.Write(data[100:])
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(alg, &buf)
			require.NoError(t, err)
			var out bytes.Buffer
			_, err = out.ReadFrom(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, data, out.Bytes())
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
		ok   bool
	}{
		{"", None, true},
		{"uncompressed", None, true},
		{"SNAPPY", Snappy, true},
		{"gz", Gzip, true},
		{"zst", Zstd, true},
		{"lz4", LZ4, true},
		{"brotli", None, false},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFromPath(t *testing.T) {
	alg, base := FromPath("data/users.csv.gz")
	assert.Equal(t, Gzip, alg)
	assert.Equal(t, "data/users.csv", base)

	alg, base = FromPath("out.parquet")
	assert.Equal(t, None, alg)
	assert.Equal(t, "out.parquet", base)

	alg, base = FromPath("x.json.ZST")
	assert.Equal(t, Zstd, alg)
	assert.Equal(t, "x.json", base)
}

func TestExtensionInvertsFromPath(t *testing.T) {
	assert.Equal(t, "", Extension(None))
	for _, alg := range Algorithms[1:] {
		got, base := FromPath("t.csv" + Extension(alg))
		assert.Equal(t, alg, got, alg)
		assert.Equal(t, "t.csv", base)
	}
}
