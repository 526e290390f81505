package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD normalization so visually identical input
// produces identical bytes on the wire regardless of how the platform
// composed it.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// NormalizeEmail normalizes and lowercases an email address for use as
// an account identifier.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(Normalize(s)))
}
