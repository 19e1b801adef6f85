package bacapp

import "strings"

// MaxBitStringBytes bounds the size of a decoded bit string.
const MaxBitStringBytes = 15

// BitString is a fixed-length sequence of bits. Bit 0 is the most
// significant bit of the first octet.
type BitString struct {
	n    int
	data []byte
}

// NewBitString returns a bit string of n cleared bits.
func NewBitString(n int) BitString {
	return BitString{n: n, data: make([]byte, (n+7)/8)}
}

// Len returns the number of bits.
func (b BitString) Len() int { return b.n }

// Bit returns bit i. Bits outside the string read as false.
func (b BitString) Bit(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.data[i/8]&(0x80>>(i%8)) != 0
}

// Set sets bit i. Bits outside the string are ignored.
func (b BitString) Set(i int, v bool) {
	if i < 0 || i >= b.n {
		return
	}
	mask := byte(0x80 >> (i % 8))
	if v {
		b.data[i/8] |= mask
	} else {
		b.data[i/8] &^= mask
	}
}

// unused returns the number of padding bits in the last octet.
func (b BitString) unused() int {
	return len(b.data)*8 - b.n
}

// Equal reports whether both strings hold the same bits.
func (b BitString) Equal(o BitString) bool {
	if b.n != o.n {
		return false
	}
	for i := 0; i < b.n; i++ {
		if b.Bit(i) != o.Bit(i) {
			return false
		}
	}
	return true
}

// String renders the bits as a string of 0 and 1, bit 0 first.
func (b BitString) String() string {
	var sb strings.Builder
	for i := 0; i < b.n; i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
