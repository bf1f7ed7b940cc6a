// Package text normalizes extracted document text into safe, indexable strings.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize applies NFKC normalization, drops invalid UTF-8 sequences (including
// encoded surrogate halves), NUL and non-printable runes except newline, tab and space,
// then trims surrounding whitespace.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func keepRune(r rune) bool {
	switch r {
	case '\n', '\t', ' ':
		return true
	case 0, unicode.ReplacementChar:
		return false
	}
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	return unicode.IsPrint(r)
}
