// Package sethash provides deterministic hashing over sorted integer
// id sets, used by the simple VectorMaton build variant to detect
// states with identical id-sets so they can share a single graph,
// grounded on original_source/source/set_hash.cpp.
package sethash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// SHA256 hashes a sorted, duplicate-free id set by rendering it as
// comma-separated decimal and hashing the result, collision-resistant
// enough for dedup. IDs are already sorted by the GSA invariant, so no
// sort is performed here (mirrors the commented-out std::sort in the
// original).
func SHA256(ids []uint32) string {
	buf := make([]byte, 0, len(ids)*8)
	for _, id := range ids {
		buf = strconv.AppendUint(buf, uint64(id), 10)
		buf = append(buf, ',')
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// poly is a faster, non-cryptographic alternative: a polynomial (Horner)
// hash modulo the Mersenne prime 2^61-1, sensitive to id order.
const (
	polyMod = (uint64(1) << 61) - 1
	polyP   = 1000003
)

// Poly64 computes a 64-bit polynomial hash of the id set. It is an
// acceptable non-cryptographic variant of SHA256 for dedup purposes when
// collision resistance against adversarial input is not required.
func Poly64(ids []uint32) uint64 {
	h := uint64(1)
	for _, id := range ids {
		// 128-bit intermediate via math/bits-free widening: both
		// operands fit in 63 bits after the mod reduction, so the
		// product fits in a Go uint64 only when reduced incrementally.
		h = (mulMod(h, polyP) + uint64(id)) % polyMod
	}
	return h
}

// mulMod computes (a*b) mod polyMod without overflowing 64 bits, using
// the standard Russian-peasant modular multiplication.
func mulMod(a, b uint64) uint64 {
	a %= polyMod
	b %= polyMod
	var result uint64
	for b > 0 {
		if b&1 == 1 {
			result = (result + a) % polyMod
		}
		a = (a * 2) % polyMod
		b >>= 1
	}
	return result
}
