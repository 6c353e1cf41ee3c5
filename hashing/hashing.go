// Package hashing implements the two bucketing hash algorithms a flag may
// select between, and the bucket-selection function built on top of them.
//
// Both Hash and Bucket are pure and bit-stable: identical inputs always
// produce identical outputs, independent of platform or Go version.
package hashing

// Algo selects which hash function Bucket uses.
type Algo int

const (
	// Legacy is the original multiplicative string hash.
	Legacy Algo = iota
	// Murmur3 is 32-bit MurmurHash3 (x86, 32-bit variant).
	Murmur3
)

// Hash returns the 32-bit signed hash of key under the given seed and
// algorithm.
func Hash(algo Algo, key string, seed int32) int32 {
	if algo == Murmur3 {
		return murmur3_32(key, uint32(seed))
	}
	return legacyHash(key, seed)
}

// Bucket maps key into a bucket in [1, 100], deterministic for a given
// seed and algorithm.
func Bucket(algo Algo, key string, seed int32) int {
	h := Hash(algo, key, seed)
	v := int(h)
	if v < 0 {
		v = -v
	}
	return (v % 100) + 1
}

// legacyHash is the original (pre-Murmur3) multiplicative hash used by
// the first generation of the control plane. It walks the code points of
// key, matching the other SDKs in the family for the ASCII range keys
// are restricted to.
func legacyHash(key string, seed int32) int32 {
	if len(key) == 0 {
		return seed
	}
	var h int32 = seed
	for _, r := range key {
		h = 31*h + int32(r)
	}
	return h
}
