package encoding

import (
	"encoding/binary"
)

func Uint16ToBytes(in uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, in)
	return out
}

func BytesToUint16(in []byte) uint16 {
	return binary.BigEndian.Uint16(in)
}

// EncodeBools converts a boolean slice into a byte slice where each byte
// contains up to 8 boolean values packed as bits. The encoding uses LSB-first
// bit ordering, where the first boolean maps to bit 0 (least significant bit)
// of the first byte. This is the layout of a read-coils response.
//
// Example: []bool{true, false, true} -> []byte{0x05} (binary: 00000101)
func EncodeBools(in []bool) []byte {
	var i uint

	out := make([]byte, ByteCount(len(in)))
	for i = range uint(len(in)) {
		if in[i] {
			out[i/8] |= (0x01 << (i % 8))
		}
	}

	return out
}

// DecodeBools is the inverse of EncodeBools. It unpacks count bits from in,
// LSB-first. Bits beyond the end of in are reported as false.
func DecodeBools(in []byte, count int) []bool {
	out := make([]bool, count)
	for i := range count {
		if i/8 >= len(in) {
			break
		}
		out[i] = in[i/8]&(0x01<<(i%8)) != 0
	}
	return out
}

// ByteCount returns the number of bytes needed to carry n packed bits.
func ByteCount(n int) int {
	c := n / 8
	if n%8 != 0 {
		c++
	}
	return c
}
