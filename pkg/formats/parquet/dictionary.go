package parquet

import (
	"math"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
)

// dictionary is a candidate dictionary encoding of one chunk: the PLAIN
// encoded distinct values in first-seen order and one index per non-null
// row.
type dictionary struct {
	plain   []byte
	size    int
	indices []uint32
}

// buildDictionary deduplicates the non-null values of c in [lo, hi).
// Floats are keyed by bit pattern so NaN payloads and signed zeros survive.
func buildDictionary(c *columnar.Column, lo, hi int) *dictionary {
	d := &dictionary{indices: make([]uint32, 0, hi-lo)}
	var (
		ints   map[int64]uint32
		floats map[uint64]uint32
		strs   map[string]uint32
	)
	switch c.DType() {
	case columnar.Int64:
		ints = make(map[int64]uint32)
	case columnar.Float64:
		floats = make(map[uint64]uint32)
	default:
		strs = make(map[string]uint32)
	}

	for i := lo; i < hi; i++ {
		if c.IsNull(i) {
			continue
		}
		var (
			k    uint32
			seen bool
		)
		next := uint32(d.size)
		switch c.DType() {
		case columnar.Int64:
			if k, seen = ints[c.Int(i)]; !seen {
				ints[c.Int(i)] = next
			}
		case columnar.Float64:
			bits := math.Float64bits(c.Float(i))
			if k, seen = floats[bits]; !seen {
				floats[bits] = next
			}
		default:
			if k, seen = strs[c.Str(i)]; !seen {
				strs[c.Str(i)] = next
			}
		}
		if !seen {
			k = next
			d.size++
			d.plain = appendPlainCell(d.plain, c, i)
		}
		d.indices = append(d.indices, k)
	}
	return d
}

// encodeIndices returns the data page value section: a one-byte bit width
// followed by RLE runs.
func (d *dictionary) encodeIndices() []byte {
	width := 1
	if d.size > 2 {
		width = bitWidth(uint64(d.size - 1))
	}
	return appendRLE([]byte{byte(width)}, d.indices, width)
}
