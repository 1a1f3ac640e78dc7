package kilat

import (
	"encoding/binary"
	"math/bits"
)

// Word-at-a-time scanning for the parser's URI hot path, adapted from
// the SWAR fallback in seanmonstar/httparse. Eight bytes are examined
// per iteration with two bitwise predicates; the first non-zero lane
// locates the byte that stopped the scan.

const swarBlockSize = 8

// uniformBlock returns a word whose every byte equals b.
func uniformBlock(b byte) uint64 {
	return 0x0101010101010101 * uint64(b)
}

// byteEqualMask sets 0x80 in every lane of x that equals c:
// hit(c) = ((x ^ c) - 0x01) & ^(x ^ c) & 0x80 per byte.
func byteEqualMask(x uint64, c byte) uint64 {
	y := x ^ uniformBlock(c)
	return (y - uniformBlock(0x01)) &^ y & uniformBlock(0x80)
}

// firstLane returns the byte offset of the lowest set lane in hit.
func firstLane(hit uint64) int {
	return bits.TrailingZeros64(hit) >> 3
}

// matchPathVectored returns the index of the first byte equal to '?'
// or ' ', or len(buf) when neither occurs.
func matchPathVectored(buf []byte) int {
	i, n := 0, len(buf)
	for ; i+swarBlockSize <= n; i += swarBlockSize {
		x := binary.LittleEndian.Uint64(buf[i:])
		if hit := byteEqualMask(x, '?') | byteEqualMask(x, ' '); hit != 0 {
			return i + firstLane(hit)
		}
	}
	for ; i < n; i++ {
		if buf[i] == '?' || buf[i] == ' ' {
			break
		}
	}
	return i
}

// matchURIVectored returns the index of the first byte outside the
// printable range 0x21..0xFF minus DEL, or len(buf). This is a coarse
// prefilter; exact membership in the URI byte set is re-checked with
// the table mask.
func matchURIVectored(buf []byte) int {
	i, n := 0, len(buf)
	for ; i+swarBlockSize <= n; i += swarBlockSize {
		x := binary.LittleEndian.Uint64(buf[i:])
		lt := (x - uniformBlock(0x21)) &^ x
		y := x ^ uniformBlock(0x7f)
		eq := (y - uniformBlock(0x01)) &^ y
		if hit := (lt | eq) & uniformBlock(0x80); hit != 0 {
			return i + firstLane(hit)
		}
	}
	for ; i < n; i++ {
		if b := buf[i]; b < 0x21 || b == 0x7f {
			break
		}
	}
	return i
}
