// Package simhash fingerprints extracted table pages. The run loop compares
// consecutive pages to notice a next-page click that changed nothing
// (Digest) or a page that mostly repeats the previous one (Rows).
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// cellSep and rowSep join cells and rows. Neither occurs in cell text
// after whitespace collapsing.
const (
	cellSep = "\x1f"
	rowSep  = "\x1e"
)

// Digest is an exact FNV-64a hash of a page's rows in order. Pages with
// different rows or a different row order get different digests, barring
// a 64-bit hash collision.
func Digest(rows [][]string) uint64 {
	h := fnv.New64a()
	for _, cells := range rows {
		h.Write([]byte(strings.Join(cells, cellSep)))
		h.Write([]byte(rowSep))
	}
	return h.Sum64()
}

// Rows computes a 64-bit SimHash of a page's rows, one token per row. It
// ignores row order, and pages sharing most rows land a few bits apart.
// Use Digest to test for equality.
func Rows(rows [][]string) uint64 {
	tokens := make([]string, 0, len(rows))
	for _, cells := range rows {
		tokens = append(tokens, strings.Join(cells, cellSep))
	}
	return fingerprint(tokens)
}

// fingerprint uses FNV-64a per token with bit vector accumulation.
func fingerprint(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int

	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}

	return fp
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
