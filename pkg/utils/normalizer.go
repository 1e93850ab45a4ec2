package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeContent folds case and collapses whitespace so that messages which
// only differ in casing or spacing normalize to the same string.
func NormalizeContent(s string) string {
	s = CompressAllWhitespace(s)
	if s == "" {
		return ""
	}

	// A fresh chain per call since cases.Caser keeps internal state
	result, _, err := transform.String(transform.Chain(norm.NFKC, cases.Fold()), s)
	if err != nil {
		return s
	}

	return result
}

// ContentHash returns the hex encoded sha256 of the normalized content.
// It is the key used for duplicate and cross-channel comparisons.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(s)))
	return hex.EncodeToString(sum[:])
}
