package util

import "testing"

func TestNormalize(t *testing.T) {
	// U+212B ANGSTROM SIGN and U+00C5 both decompose to A + combining
	// ring above under NFKD.
	a := Normalize("Å")
	b := Normalize("Å")
	if a != b {
		t.Errorf("expected identical normalization, got %q and %q", a, b)
	}

	if got := Normalize("plain ascii"); got != "plain ascii" {
		t.Errorf("ascii should pass through unchanged, got %q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  User@Example.COM ": "user@example.com",
		"user@example.com":    "user@example.com",
		"Åsa@nordic.se":  "åsa@nordic.se",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
