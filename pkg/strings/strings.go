// Package strings provides pooled byte builders and string interning for
// codecs that assemble or decode large amounts of text.
package strings

import (
	"github.com/ajitpratap0/cpandas/pkg/pool"
)

// Builder accumulates bytes for one output chunk.
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns a copy of the accumulated bytes.
func (b *Builder) String() string { return string(b.buf) }

// Bytes returns the underlying slice; it is reused after Reset.
func (b *Builder) Bytes() []byte { return b.buf }

// Len returns the number of accumulated bytes
func (b *Builder) Len() int { return len(b.buf) }

// Reset resets the builder for reuse
func (b *Builder) Reset() { b.buf = b.buf[:0] }

// BuilderSize selects a pool by expected output size.
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

// maxPooled keeps one oversized output from pinning memory in a pool.
const maxPooled = 4 << 20

func builderPool(capacity int) *pool.Pool[*Builder] {
	return pool.New(
		func() *Builder { return NewBuilder(capacity) },
		func(b *Builder) { b.Reset() },
	)
}

var pools = [...]*pool.Pool[*Builder]{
	Small:  builderPool(1024),
	Medium: builderPool(16 * 1024),
	Large:  builderPool(64 * 1024),
}

func poolFor(size BuilderSize) *pool.Pool[*Builder] {
	if size < Small || size > Large {
		size = Small
	}
	return pools[size]
}

// GetBuilder retrieves an empty pooled builder of the specified size
func GetBuilder(size BuilderSize) *Builder {
	b := poolFor(size).Get()
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool. The builder and any slice from
// Bytes must not be used afterwards.
func PutBuilder(b *Builder, size BuilderSize) {
	if b == nil {
		return
	}
	if cap(b.buf) > maxPooled {
		poolFor(size).Discard(b)
		return
	}
	poolFor(size).Put(b)
}

// Intern deduplicates repeated strings so equal cells share one backing
// array. Once limit distinct values are held, further new values are
// returned unchanged. An Intern is not safe for concurrent use.
type Intern struct {
	strings map[string]string
	limit   int
}

// NewIntern creates an interner holding at most limit distinct values;
// limit <= 0 means unbounded.
func NewIntern(limit int) *Intern {
	return &Intern{strings: make(map[string]string), limit: limit}
}

// Get returns the canonical copy of s.
func (in *Intern) Get(s string) string {
	if v, ok := in.strings[s]; ok {
		return v
	}
	if in.limit > 0 && len(in.strings) >= in.limit {
		return s
	}
	// Own the memory so s may be a slice of a larger buffer.
	owned := string([]byte(s))
	in.strings[owned] = owned
	return owned
}

// Size returns the number of interned strings
func (in *Intern) Size() int { return len(in.strings) }

// Full reports whether the limit has been reached.
func (in *Intern) Full() bool { return in.limit > 0 && len(in.strings) >= in.limit }
