package parquet

import (
	"encoding/binary"
	"math/bits"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Levels and dictionary indices use the RLE/bit-packing hybrid encoding:
// a sequence of runs, each introduced by a uvarint header whose low bit
// selects an RLE run (count<<1) or a bit-packed run (groups<<1 | 1).

// bitWidth returns the number of bits needed to represent max.
func bitWidth(max uint64) int {
	return bits.Len64(max)
}

// appendRLE encodes values as RLE runs only.
func appendRLE(dst []byte, values []uint32, width int) []byte {
	byteWidth := (width + 7) / 8
	for i := 0; i < len(values); {
		j := i + 1
		for j < len(values) && values[j] == values[i] {
			j++
		}
		dst = binary.AppendUvarint(dst, uint64(j-i)<<1)
		v := values[i]
		for b := 0; b < byteWidth; b++ {
			dst = append(dst, byte(v>>(8*b)))
		}
		i = j
	}
	return dst
}

// appendLevels writes definition levels with their 4-byte length prefix.
func appendLevels(dst []byte, levels []uint32) []byte {
	at := len(dst)
	dst = append(dst, 0, 0, 0, 0)
	dst = appendRLE(dst, levels, 1)
	binary.LittleEndian.PutUint32(dst[at:], uint32(len(dst)-at-4))
	return dst
}

// decodeHybrid decodes exactly n values of the given bit width and returns
// them with the number of input bytes consumed. Bit-packed padding past n
// is discarded.
func decodeHybrid(data []byte, width, n int) ([]uint32, int, error) {
	if width < 0 || width > 32 {
		return nil, 0, errors.Newf(errors.CodeParse, "rle: invalid bit width %d", width)
	}
	byteWidth := (width + 7) / 8
	out := make([]uint32, 0, n)
	pos := 0
	for len(out) < n {
		header, k := binary.Uvarint(data[pos:])
		if k <= 0 {
			return nil, 0, rleError(pos, "malformed run header")
		}
		pos += k

		if header&1 == 0 {
			count := header >> 1
			if count == 0 || count > uint64(n-len(out)) {
				return nil, 0, rleError(pos, "run of %d values, %d remaining", count, n-len(out))
			}
			if byteWidth > len(data)-pos {
				return nil, 0, rleError(pos, "truncated run value")
			}
			var v uint32
			for b := 0; b < byteWidth; b++ {
				v |= uint32(data[pos+b]) << (8 * b)
			}
			pos += byteWidth
			if width < 32 && v>>width != 0 {
				return nil, 0, rleError(pos, "run value %d exceeds bit width %d", v, width)
			}
			for i := uint64(0); i < count; i++ {
				out = append(out, v)
			}
			continue
		}

		groups := header >> 1
		if groups == 0 || groups > uint64(len(data)) {
			return nil, 0, rleError(pos, "bit-packed run of %d groups", groups)
		}
		size := int(groups) * width
		if size > len(data)-pos {
			return nil, 0, rleError(pos, "truncated bit-packed run")
		}
		count := int(groups) * 8
		if rem := n - len(out); count > rem {
			count = rem
		}
		out = unpackBits(out, data[pos:pos+size], width, count)
		pos += size
	}
	return out, pos, nil
}

// unpackBits appends count values stored LSB-first at the given width.
func unpackBits(out []uint32, src []byte, width, count int) []uint32 {
	mask := uint64(1)<<uint(width) - 1
	var acc uint64
	var nbits, p int
	for i := 0; i < count; i++ {
		for nbits < width {
			acc |= uint64(src[p]) << uint(nbits)
			p++
			nbits += 8
		}
		out = append(out, uint32(acc&mask))
		acc >>= uint(width)
		nbits -= width
	}
	return out
}

func rleError(pos int, format string, args ...interface{}) error {
	return errors.Newf(errors.CodeParse, "rle: "+format, args...).WithDetail("offset", pos)
}
