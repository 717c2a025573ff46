package columnar

import (
	"encoding/binary"
	"math"
)

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// rowKey is the list of key columns of one table
type rowKey []*Column

func (k rowKey) hasNull(r int) bool {
	for _, c := range k {
		if c.nulls[r] {
			return true
		}
	}
	return false
}

// hash combines every key cell of row r with FNV-1a
func (k rowKey) hash(r int) uint64 {
	h := uint64(fnvOffset64)
	var buf [8]byte
	mix := func(b []byte) {
		for _, x := range b {
			h ^= uint64(x)
			h *= fnvPrime64
		}
	}
	for _, c := range k {
		if c.nulls[r] {
			mix([]byte{0xfe})
			continue
		}
		switch c.dtype {
		case Int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(c.ints[r]))
			mix(buf[:])
		case Float64:
			f := c.floats[r]
			bits := math.Float64bits(f)
			if math.IsNaN(f) {
				bits = 0x7ff8000000000001
			} else if f == 0 {
				bits = 0
			}
			binary.LittleEndian.PutUint64(buf[:], bits)
			mix(buf[:])
		case String:
			mix([]byte(c.strs[r]))
			mix([]byte{0xff})
		}
	}
	return h
}

// keysEqual compares row i of a with row j of b cell by cell
func keysEqual(a rowKey, i int, b rowKey, j int) bool {
	for k := range a {
		if !cellEqual(a[k], i, b[k], j) {
			return false
		}
	}
	return true
}

// hashIndex is an open-addressing table with linear probing over a
// power-of-two slot array. Slots hold row+1; zero marks an empty slot.
type hashIndex struct {
	keys   rowKey
	slots  []int
	hashes []uint64
	mask   uint64
}

func newHashIndex(keys rowKey, expected int) *hashIndex {
	size := 16
	for size < expected*2 {
		size <<= 1
	}
	return &hashIndex{
		keys:   keys,
		slots:  make([]int, size),
		hashes: make([]uint64, size),
		mask:   uint64(size - 1),
	}
}

func (h *hashIndex) insert(r int) {
	hv := h.keys.hash(r)
	for i := hv & h.mask; ; i = (i + 1) & h.mask {
		if h.slots[i] == 0 {
			h.slots[i] = r + 1
			h.hashes[i] = hv
			return
		}
	}
}

// probe calls fn for every indexed row whose key equals row r of probe,
// in insertion order.
func (h *hashIndex) probe(probe rowKey, r int, fn func(row int)) {
	hv := probe.hash(r)
	for i := hv & h.mask; h.slots[i] != 0; i = (i + 1) & h.mask {
		row := h.slots[i] - 1
		if h.hashes[i] == hv && keysEqual(probe, r, h.keys, row) {
			fn(row)
		}
	}
}

// first returns the first indexed row whose key equals row r of probe, or -1
func (h *hashIndex) first(probe rowKey, r int) int {
	hv := probe.hash(r)
	for i := hv & h.mask; h.slots[i] != 0; i = (i + 1) & h.mask {
		row := h.slots[i] - 1
		if h.hashes[i] == hv && keysEqual(probe, r, h.keys, row) {
			return row
		}
	}
	return -1
}
