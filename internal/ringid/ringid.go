// Package ringid implements identifier arithmetic on the Chord ring:
// hashing endpoints/keys into the m-bit identifier space and the
// modular interval predicates that every routing decision reduces to.
package ringid

import (
	"crypto/sha1"
	"math/big"
)

// Hash maps key to an identifier in [0, 2^m) by interpreting the SHA-1
// digest of key as a big-endian integer and reducing it modulo 2^m.
func Hash(key string, m int) int {
	h := sha1.New()
	h.Write([]byte(key))
	digest := h.Sum(nil)

	hashInt := new(big.Int).SetBytes(digest)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(m))

	return int(new(big.Int).Mod(hashInt, mod).Int64())
}

// InOpenClosed reports whether x lies on the clockwise arc (a, b],
// strictly after a and at or before b. When a == b the arc is the
// whole ring minus a itself: true for every x != a.
func InOpenClosed(x, a, b int) bool {
	if a == b {
		return x != a
	}
	if a < b {
		return x > a && x <= b
	}
	return x > a || x <= b
}

// InOpenOpen reports whether x lies strictly between a and b on the
// clockwise arc (a, b). Used by closest_preceding_node to guarantee
// monotone progress toward key_id (spec fixes both endpoints strict,
// see DESIGN.md open-question 1).
func InOpenOpen(x, a, b int) bool {
	if a == b {
		return x != a
	}
	if a < b {
		return x > a && x < b
	}
	return x > a || x < b
}
