package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type scratch struct {
	data []int
}

func TestPoolResetsOnPut(t *testing.T) {
	p := New(
		func() *scratch { return &scratch{data: make([]int, 0, 4)} },
		func(s *scratch) { s.data = s.data[:0] },
	)
	s := p.Get()
	s.data = append(s.data, 1, 2, 3)
	p.Put(s)

	again := p.Get()
	assert.Empty(t, again.data)
	p.Put(again)

	allocated, inUse, hits, misses := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, allocated, misses)
	assert.Equal(t, int64(2), hits+misses)
}

func TestPutBufferDropsLarge(t *testing.T) {
	_, before, _, _ := BufferStats()

	b := GetBuffer()
	b.Write(bytes.Repeat([]byte{'x'}, MaxPooledBuffer+1))
	PutBuffer(b)

	small := GetBuffer()
	assert.Zero(t, small.Len())
	PutBuffer(small)
	PutBuffer(nil)

	_, after, _, _ := BufferStats()
	assert.Equal(t, before, after)
}
