package codec

import (
	"math/bits"

	"golang.org/x/text/encoding/charmap"
)

// MaxLen is the largest number of bytes a single character may occupy.
const MaxLen = 4

// Decode decodes the first character of p.
// It returns the character and the number of bytes consumed.
// The size is zero only when p is empty.
func Decode(p []byte) (rune, int) {
	if len(p) == 0 {
		return 0, 0
	}

	b := p[0]
	if b < 0x80 {
		return rune(b), 1
	}

	n := bits.LeadingZeros8(^b)
	if n < 2 || n > MaxLen || n > len(p) {
		return fallback(b), 1
	}

	r := rune(b & (0xFF >> n))
	for i := 1; i < n; i++ {
		c := p[i]
		if c&0xC0 != 0x80 {
			return fallback(b), 1
		}
		r = r<<6 | rune(c&0x3F)
	}
	return r, n
}

// DecodeString is like Decode but reads from a string.
func DecodeString(s string) (rune, int) {
	if len(s) == 0 {
		return 0, 0
	}
	var buf [MaxLen]byte
	n := copy(buf[:], s)
	return Decode(buf[:n])
}

// fallback maps a byte that does not start a valid sequence.
func fallback(b byte) rune {
	return charmap.Windows1252.DecodeByte(b)
}

// Len returns the number of bytes in the shortest encoding of r.
func Len(r rune) int {
	switch {
	case r < 0:
		return 1
	case r <= 0x7F:
		return 1
	case r <= 0x7FF:
		return 2
	case r <= 0xFFFF:
		return 3
	default:
		return 4
	}
}

// Encode writes the shortest encoding of r into dst and returns the byte count.
// A nil dst only measures. dst must otherwise hold at least Len(r) bytes.
func Encode(dst []byte, r rune) int {
	return EncodeN(dst, r, Len(r))
}

// EncodeN writes r into dst using exactly n bytes, producing an over-long
// sequence when n exceeds Len(r). It panics if n is not in [Len(r), MaxLen].
func EncodeN(dst []byte, r rune, n int) int {
	if n < Len(r) || n > MaxLen {
		panic("codec: invalid encoding length")
	}
	if dst == nil {
		return n
	}
	if n == 1 {
		dst[0] = byte(r)
		return 1
	}

	u := uint32(r)
	dst[0] = byte(uint32(0xFF00)>>n) | byte(u>>(6*(n-1)))&(0xFF>>(n+1))
	for i := 1; i < n; i++ {
		dst[i] = 0x80 | byte(u>>(6*(n-i-1)))&0x3F
	}
	return n
}

// Count returns the number of characters Decode finds in p.
func Count(p []byte) int {
	n := 0
	for len(p) > 0 {
		_, size := Decode(p)
		p = p[size:]
		n++
	}
	return n
}
