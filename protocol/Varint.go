/*
File Name:  Varint.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Base-128 variable-length integers and the zig-zag signed mapping that sits on top of them. Every multi-byte
numeric field on the wire (lengths, identifiers, signed integers) is ultimately expressed as a varint.
*/

package protocol

import "errors"

// MaxVarintLen32 is the maximum encoded length of a 32-bit varint.
const MaxVarintLen32 = 5

// MaxVarintLen64 is the maximum encoded length of a 64-bit varint.
const MaxVarintLen64 = 10

// ErrVarintOverflow is returned when a varint would require more than the maximum allowed number of bytes.
var ErrVarintOverflow = errors.New("protocol: varint overflow")

// ErrShortRead is returned when a varint (or any length-prefixed value) runs out of buffer before completion.
var ErrShortRead = errors.New("protocol: short read")

// PutUvarint encodes v as a base-128 varint (continuation bit set in the high bit of every byte but the last)
// and appends it to buf, returning the extended slice.
func PutUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// Uvarint decodes a base-128 varint from the head of buf. n is the number of bytes consumed.
// On failure n is 0 and err tells the cases apart: ErrShortRead if buf ended before a complete varint,
// ErrVarintOverflow if the varint exceeded maxLen bytes.
func Uvarint(buf []byte, maxLen int) (v uint64, n int, err error) {
	for i := 0; i < maxLen && i < len(buf); i++ {
		b := buf[i]
		if b < 0x80 {
			v |= uint64(b) << uint(7*i)
			return v, i + 1, nil
		}
		v |= uint64(b&0x7F) << uint(7*i)
	}

	if len(buf) < maxLen {
		return 0, 0, ErrShortRead
	}
	return 0, 0, ErrVarintOverflow
}

// ZigZagEncode32 maps a signed 32-bit integer to an unsigned one so that small-magnitude values (positive
// or negative) encode to small varints.
func ZigZagEncode32(n int32) uint32 {
	return uint32((n << 1) ^ (n >> 31))
}

// ZigZagDecode32 inverts ZigZagEncode32.
func ZigZagDecode32(n uint32) int32 {
	return int32(n>>1) ^ -int32(n&1)
}

// ZigZagEncode64 maps a signed 64-bit integer to an unsigned one so that small-magnitude values (positive
// or negative) encode to small varints.
func ZigZagEncode64(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

// ZigZagDecode64 inverts ZigZagEncode64.
func ZigZagDecode64(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}

// PeekVarintLen reports whether a complete varint (of at most maxLen bytes) is available at the head of
// buf, without consuming anything. It returns the byte length of that varint, or 0 if incomplete.
// This is the framing oracle: the frame codec uses it to decide whether a length prefix has fully arrived.
func PeekVarintLen(buf []byte, maxLen int) (length int) {
	for i := 0; i < maxLen && i < len(buf); i++ {
		if buf[i] < 0x80 {
			return i + 1
		}
	}
	return 0
}
