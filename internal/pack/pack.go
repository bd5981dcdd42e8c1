// Package pack implements the LSB-first, arbitrary-bit-width index
// packing IndexedBitmap blocks use: pixel i occupies
// bits [i*b, i*b+b) of the packed byte stream, least-significant bit
// first within each byte. It is built on top of a plain bit-addressable
// bitmap rather than hand-rolled shifting, since that is exactly what a
// 1-bit-per-position bitmap gives you once you address it at bit
// granularity.
package pack

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// ByteLen returns ceil(count*bits/8), the number of packed bytes needed
// to hold count indices of the given bit width.
func ByteLen(count int, bits uint8) int {
	totalBits := count * int(bits)
	return (totalBits + 7) / 8
}

// Pack writes indices as bits-wide LSB-first fields into a freshly
// allocated byte slice sized by ByteLen. Unused high bits of the final
// byte are left zero.
func Pack(indices []int, bits uint8) []byte {
	if bits == 0 {
		return nil
	}
	bm := bitmap.New(len(indices) * int(bits))
	for i, idx := range indices {
		base := i * int(bits)
		for k := 0; k < int(bits); k++ {
			bm.Set(base+k, idx&(1<<uint(k)) != 0)
		}
	}
	return []byte(bm)
}

// Unpack reads count indices of the given bit width back out of data,
// which must hold at least ByteLen(count, bits) bytes.
func Unpack(data []byte, count int, bits uint8) ([]int, error) {
	if bits == 0 {
		out := make([]int, count)
		return out, nil
	}
	need := ByteLen(count, bits)
	if len(data) < need {
		return nil, fmt.Errorf("pack: need %d bytes for %d indices at %d bits, have %d", need, count, bits, len(data))
	}
	bm := bitmap.Bitmap(data)
	out := make([]int, count)
	for i := range out {
		base := i * int(bits)
		var v int
		for k := 0; k < int(bits); k++ {
			if bm.Get(base + k) {
				v |= 1 << uint(k)
			}
		}
		out[i] = v
	}
	return out, nil
}
