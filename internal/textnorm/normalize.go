// Package textnorm provides Turkish text normalization, suffix stemming and
// slang expansion for the candidate retriever. Everything here is a pure
// function over strings; no I/O, no state.
package textnorm

import (
	"strings"
	"unicode"
)

// turkishFold maps Turkish-specific letters onto their ASCII base forms.
// Generic unicode folding mishandles dotless ı / dotted İ, so the mapping
// stays explicit.
var turkishFold = map[rune]rune{
	'ç': 'c', 'Ç': 'c',
	'ğ': 'g', 'Ğ': 'g',
	'ı': 'i', 'I': 'i',
	'İ': 'i',
	'ö': 'o', 'Ö': 'o',
	'ş': 's', 'Ş': 's',
	'ü': 'u', 'Ü': 'u',
	'â': 'a', 'Â': 'a',
	'î': 'i', 'Î': 'i',
	'û': 'u', 'Û': 'u',
}

// Normalize lowercases, strips diacritics and collapses every run of
// non-alphanumeric characters into a single space. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range text {
		if folded, ok := turkishFold[r]; ok {
			r = folded
		} else {
			r = unicode.ToLower(r)
		}

		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}

		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Words splits normalized text into its word list.
func Words(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
