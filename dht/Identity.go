/*
File Name:  Identity.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

NodeId is the 128-bit identifier space the routing table is organized around, and Distance is the XOR
metric used to bucket and order peers. Both ID derivation (hashing a public key) and the distance
calculation below are adapted from the byte-oriented bucket indexing in the original hash table
implementation.
*/

package dht

import (
	"github.com/google/uuid"
)

// NodeId is a 128-bit node identifier, the same width as a UUID.
type NodeId [16]byte

// NodeIdFromUUID converts a UUID (as produced by protocol.DeriveNodeID) into a NodeId.
func NodeIdFromUUID(id uuid.UUID) NodeId {
	var n NodeId
	copy(n[:], id[:])
	return n
}

// String renders the id in its canonical UUID form, useful for logging.
func (id NodeId) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the all-zero identifier, used as a sentinel for "no id".
func (id NodeId) IsZero() bool {
	return id == NodeId{}
}

// hasBit reports whether bit pos (0 = most significant) is set in b.
func hasBit(b byte, pos uint) bool {
	return b&(1<<(7-pos)) != 0
}

// Distance returns bit_length(a XOR b): the index (1-based, counting from the least significant bit) of
// the highest differing bit between a and b, in the range [0, 128]. It is zero iff a == b.
func Distance(a, b NodeId) int {
	for byteIndex := 0; byteIndex < len(a); byteIndex++ {
		xor := a[byteIndex] ^ b[byteIndex]
		if xor == 0 {
			continue
		}
		for bitIndex := uint(0); bitIndex < 8; bitIndex++ {
			if hasBit(xor, bitIndex) {
				return 128 - (byteIndex*8 + int(bitIndex))
			}
		}
	}
	return 0
}

// bucketIndex maps a distance in [1, 128] to the zero-based slot in RoutingTable.buckets.
func bucketIndex(distance int) int {
	return distance - 1
}
