package parquet

import (
	"testing"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packBits writes values as a single bit-packed run, padding the last group.
func packBits(dst []byte, values []uint32, width int) []byte {
	groups := (len(values) + 7) / 8
	dst = append(dst, byte(groups<<1|1))
	var acc uint64
	nbits := 0
	for i := 0; i < groups*8; i++ {
		var v uint32
		if i < len(values) {
			v = values[i]
		}
		acc |= uint64(v) << uint(nbits)
		nbits += width
		for nbits >= 8 {
			dst = append(dst, byte(acc))
			acc >>= 8
			nbits -= 8
		}
	}
	return dst
}

func TestRLERoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []uint32
		width  int
	}{
		{"levels", []uint32{1, 1, 1, 0, 0, 1, 0, 1, 1}, 1},
		{"single run", []uint32{3, 3, 3, 3}, 2},
		{"wide", []uint32{70000, 1, 70000, 70000}, 17},
		{"byte", []uint32{255, 0, 128}, 8},
		{"empty", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := appendRLE(nil, tt.values, tt.width)
			got, n, err := decodeHybrid(enc, tt.width, len(tt.values))
			require.NoError(t, err)
			assert.Equal(t, len(enc), n)
			assert.Equal(t, len(tt.values), len(got))
			for i := range tt.values {
				assert.Equal(t, tt.values[i], got[i])
			}
		})
	}
}

func TestRLEEncodingShape(t *testing.T) {
	// 300 ones: header uvarint(600) then one value byte
	enc := appendRLE(nil, repeat(1, 300), 1)
	assert.Equal(t, []byte{0xd8, 0x04, 0x01}, enc)

	lv := appendLevels(nil, []uint32{1, 0})
	assert.Equal(t, []byte{4, 0, 0, 0, 0x02, 0x01, 0x02, 0x00}, lv)
}

func TestDecodeBitPacked(t *testing.T) {
	values := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 1, 2, 3}
	enc := packBits(nil, values, 3)
	got, n, err := decodeHybrid(enc, 3, len(values))
	require.NoError(t, err)
	assert.Equal(t, values, got)
	assert.Equal(t, len(enc), n)

	// mixed runs
	enc = appendRLE(nil, []uint32{5, 5, 5}, 3)
	enc = packBits(enc, []uint32{1, 2, 3, 4, 5, 6, 7, 0}, 3)
	got, _, err = decodeHybrid(enc, 3, 11)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 5, 5, 1, 2, 3, 4, 5, 6, 7, 0}, got)
}

func TestDecodeHybridErrors(t *testing.T) {
	tests := map[string]struct {
		data  []byte
		width int
		n     int
	}{
		"empty":            {nil, 1, 1},
		"run too long":     {[]byte{0x08, 0x01}, 1, 2},
		"zero run":         {[]byte{0x00, 0x01}, 1, 1},
		"truncated value":  {[]byte{0x04}, 8, 2},
		"value too wide":   {[]byte{0x04, 0x02}, 1, 2},
		"truncated packed": {[]byte{0x03, 0x01}, 3, 8},
		"bad width":        {[]byte{0x02, 0x00}, 33, 1},
		"short input":      {[]byte{0x02, 0x01}, 1, 3},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeHybrid(tt.data, tt.width, tt.n)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeParse))
		})
	}
}

func TestBitWidth(t *testing.T) {
	assert.Equal(t, 0, bitWidth(0))
	assert.Equal(t, 1, bitWidth(1))
	assert.Equal(t, 2, bitWidth(3))
	assert.Equal(t, 3, bitWidth(4))
	assert.Equal(t, 16, bitWidth(65535))
}

func repeat(v uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
