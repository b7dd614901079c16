// Package simhash fingerprints page layouts so a source whose markup was
// redesigned can be noticed before its extractor silently returns nothing.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint computes a 64-bit SimHash of the whitespace-separated words in text.
func Fingerprint(text string) uint64 {
	return FingerprintTokens(strings.Fields(text))
}

// FingerprintTokens computes a 64-bit SimHash over tokens, hashing each with
// FNV-64a and accumulating a signed bit vector.
func FingerprintTokens(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := range 64 {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := range 64 {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
