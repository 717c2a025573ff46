package compression

import (
	"encoding/binary"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Snappy block format: a uvarint holding the decoded length followed by a
// sequence of elements. The low two bits of each element's tag byte select
// a literal run or a back-reference copy with a 1, 2 or 4 byte offset.
const (
	tagLiteral = 0x00
	tagCopy1   = 0x01
	tagCopy2   = 0x02
	tagCopy4   = 0x03

	// Offsets never exceed the block size, so copies fit tagCopy2.
	maxBlockSize = 65536

	minMatch  = 4
	tableBits = 14
	tableSize = 1 << tableBits

	// A copy element expands at most 64 bytes out of 3 input bytes.
	maxExpansion = 32
)

// MaxEncodedLen returns an upper bound on the encoded size of n bytes.
func MaxEncodedLen(n int) int {
	return 32 + n + n/6
}

// DecodedLen returns the decoded length recorded in a snappy block.
func DecodedLen(src []byte) (int, error) {
	n, _, err := decodedLen(src)
	return n, err
}

func decodedLen(src []byte) (int, int, error) {
	v, n := binary.Uvarint(src)
	if n <= 0 || v > 0xffffffff {
		return 0, 0, errors.New(errors.CodeParse, "snappy: corrupt length header")
	}
	if v > uint64(maxExpansion*(len(src)-n)) {
		return 0, 0, errors.Newf(errors.CodeParse, "snappy: declared length %d exceeds what %d bytes can encode", v, len(src)-n)
	}
	return int(v), n, nil
}

// Encode returns the snappy block encoding of src, reusing dst when it is
// large enough.
func Encode(dst, src []byte) []byte {
	if n := MaxEncodedLen(len(src)); cap(dst) < n {
		dst = make([]byte, n)
	} else {
		dst = dst[:n]
	}

	d := binary.PutUvarint(dst, uint64(len(src)))
	for len(src) > 0 {
		block := src
		if len(block) > maxBlockSize {
			block = block[:maxBlockSize]
		}
		src = src[len(block):]
		d += encodeBlock(dst[d:], block)
	}
	return dst[:d]
}

// encodeBlock greedily matches 4-byte sequences through a hash table of
// the most recent position per hash bucket.
func encodeBlock(dst, src []byte) int {
	if len(src) <= minMatch {
		return emitLiteral(dst, src)
	}

	table := make([]int32, tableSize)
	d, lit, s := 0, 0, 0
	for limit := len(src) - minMatch; s <= limit; {
		cur := load32(src, s)
		h := hash32(cur)
		cand := int(table[h]) - 1
		table[h] = int32(s + 1)
		if cand < 0 || load32(src, cand) != cur {
			s++
			continue
		}

		n := minMatch
		for s+n < len(src) && src[cand+n] == src[s+n] {
			n++
		}
		d += emitLiteral(dst[d:], src[lit:s])
		d += emitCopy(dst[d:], s-cand, n)
		s += n
		lit = s
	}
	return d + emitLiteral(dst[d:], src[lit:])
}

func load32(b []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(b[i : i+4])
}

func hash32(u uint32) uint32 {
	return (u * 0x1e35a7bd) >> (32 - tableBits)
}

func emitLiteral(dst, lit []byte) int {
	if len(lit) == 0 {
		return 0
	}
	n := uint32(len(lit) - 1)
	var i int
	switch {
	case n < 60:
		dst[0] = byte(n)<<2 | tagLiteral
		i = 1
	case n < 1<<8:
		dst[0] = 60<<2 | tagLiteral
		dst[1] = byte(n)
		i = 2
	case n < 1<<16:
		dst[0] = 61<<2 | tagLiteral
		dst[1] = byte(n)
		dst[2] = byte(n >> 8)
		i = 3
	case n < 1<<24:
		dst[0] = 62<<2 | tagLiteral
		dst[1] = byte(n)
		dst[2] = byte(n >> 8)
		dst[3] = byte(n >> 16)
		i = 4
	default:
		dst[0] = 63<<2 | tagLiteral
		binary.LittleEndian.PutUint32(dst[1:], n)
		i = 5
	}
	return i + copy(dst[i:], lit)
}

// emitCopy writes a back-reference; length >= 4 and offset < maxBlockSize.
func emitCopy(dst []byte, offset, length int) int {
	i := 0
	for length >= 68 {
		dst[i] = 63<<2 | tagCopy2
		binary.LittleEndian.PutUint16(dst[i+1:], uint16(offset))
		i += 3
		length -= 64
	}
	if length > 64 {
		dst[i] = 59<<2 | tagCopy2
		binary.LittleEndian.PutUint16(dst[i+1:], uint16(offset))
		i += 3
		length -= 60
	}
	if length >= 12 || offset >= 2048 {
		dst[i] = byte(length-1)<<2 | tagCopy2
		binary.LittleEndian.PutUint16(dst[i+1:], uint16(offset))
		return i + 3
	}
	dst[i] = byte(offset>>8)<<5 | byte(length-4)<<2 | tagCopy1
	dst[i+1] = byte(offset)
	return i + 2
}

// Decode returns the decoded form of a snappy block, reusing dst when it is
// large enough. Any framing inconsistency is a parse error.
func Decode(dst, src []byte) ([]byte, error) {
	n, hdr, err := decodedLen(src)
	if err != nil {
		return nil, err
	}
	if cap(dst) < n {
		dst = make([]byte, n)
	} else {
		dst = dst[:n]
	}
	if err := decodeBlock(dst, src[hdr:]); err != nil {
		return nil, err
	}
	return dst, nil
}

func decodeBlock(dst, src []byte) error {
	d, s := 0, 0
	for s < len(src) {
		tag := src[s]
		var length, offset int

		switch tag & 0x03 {
		case tagLiteral:
			x := uint32(tag >> 2)
			switch {
			case x < 60:
				s++
			case x == 60:
				s += 2
				if s > len(src) {
					return corrupt(s)
				}
				x = uint32(src[s-1])
			case x == 61:
				s += 3
				if s > len(src) {
					return corrupt(s)
				}
				x = uint32(src[s-2]) | uint32(src[s-1])<<8
			case x == 62:
				s += 4
				if s > len(src) {
					return corrupt(s)
				}
				x = uint32(src[s-3]) | uint32(src[s-2])<<8 | uint32(src[s-1])<<16
			default:
				s += 5
				if s > len(src) {
					return corrupt(s)
				}
				x = binary.LittleEndian.Uint32(src[s-4:])
			}
			length = int(x) + 1
			if length > len(dst)-d || length > len(src)-s {
				return corrupt(s)
			}
			copy(dst[d:], src[s:s+length])
			d += length
			s += length
			continue

		case tagCopy1:
			s += 2
			if s > len(src) {
				return corrupt(s)
			}
			length = 4 + (int(tag>>2) & 0x07)
			offset = int(tag&0xe0)<<3 | int(src[s-1])

		case tagCopy2:
			s += 3
			if s > len(src) {
				return corrupt(s)
			}
			length = 1 + int(tag>>2)
			offset = int(binary.LittleEndian.Uint16(src[s-2:]))

		case tagCopy4:
			s += 5
			if s > len(src) {
				return corrupt(s)
			}
			length = 1 + int(tag>>2)
			offset = int(binary.LittleEndian.Uint32(src[s-4:]))
		}

		if offset <= 0 || offset > d || length > len(dst)-d {
			return corrupt(s)
		}
		// Byte-wise so overlapping copies repeat the pattern.
		for end := d + length; d < end; d++ {
			dst[d] = dst[d-offset]
		}
	}
	if d != len(dst) {
		return errors.Newf(errors.CodeParse, "snappy: decoded %d bytes, header declared %d", d, len(dst))
	}
	return nil
}

func corrupt(at int) error {
	return errors.New(errors.CodeParse, "snappy: corrupt input").WithDetail("offset", at)
}
