package columnar

import (
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// DefaultSeed replaces a zero seed, which would lock xorshift32 at zero.
const DefaultSeed uint32 = 2463534242

// xorshift32 is a small deterministic PRNG; not suitable for cryptography
type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &xorshift32{state: seed}
}

func (x *xorshift32) next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// intn returns a value in [0, n)
func (x *xorshift32) intn(n int) int {
	return int(uint64(x.next()) % uint64(n))
}

// Sample draws n rows using a PRNG seeded by seed. Without replacement n
// may not exceed the row count.
func (t *Table) Sample(n int, replace bool, seed uint32) (*Table, error) {
	if n < 0 {
		return nil, errors.Newf(errors.CodeInvalid, "negative sample size %d", n)
	}
	rng := newXorshift32(seed)
	if replace {
		if n > 0 && t.rows == 0 {
			return nil, errors.New(errors.CodeInvalid, "cannot sample from an empty table")
		}
		if err := checkCapacity(n, "sample"); err != nil {
			return nil, err
		}
	}
	rows := make([]int, n)
	if replace {
		for i := range rows {
			rows[i] = rng.intn(t.rows)
		}
		return t.take(rows), nil
	}
	if n > t.rows {
		return nil, errors.Newf(errors.CodeInvalid, "sample size %d exceeds row count %d without replacement", n, t.rows)
	}
	perm := allRows(t.rows)
	for i := 0; i < n; i++ {
		j := i + rng.intn(t.rows-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	copy(rows, perm[:n])
	return t.take(rows), nil
}
