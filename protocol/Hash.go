/*
File Name:  Hash.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package protocol

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashData abstracts the hash function used throughout the protocol.
func HashData(data []byte) (hash []byte) {
	hash32 := blake3.Sum256(data)
	return hash32[:]
}

// HashSize is the blake3 hash digest size in bytes (256 bits).
const HashSize = 32

// FingerprintSize is the number of leading hash bytes used for a public key fingerprint.
const FingerprintSize = 8

// Fingerprint returns a compact textual digest of an X.509-encoded public key, suitable for display
// and early mismatch detection during a handshake. It is not a substitute for the full node identifier.
func Fingerprint(publicKeyX509 []byte) string {
	return hex.EncodeToString(HashData(publicKeyX509)[:FingerprintSize])
}
