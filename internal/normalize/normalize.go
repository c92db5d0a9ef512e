// Package normalize cleans raw extracted document text before it is chunked
// and embedded.
package normalize

import "strings"

// allowedPunct is the punctuation kept by Normalize in addition to letters,
// digits and spaces.
const allowedPunct = ".,;¿?¡!"

// Normalize collapses whitespace, lowercases and strips every rune outside the
// allow-set (a-z, 0-9, á é í ó ú ñ ü, ".,;¿?¡!" and space). It is idempotent.
func Normalize(raw string) string {
	lowered := strings.ToLower(collapse(raw))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if Allowed(r) {
			b.WriteRune(r)
		}
	}

	// Dropping runes can leave adjacent spaces behind.
	return collapse(b.String())
}

// Allowed reports whether r survives normalization.
func Allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
		return true
	case r == 'á', r == 'é', r == 'í', r == 'ó', r == 'ú', r == 'ñ', r == 'ü':
		return true
	}
	return strings.ContainsRune(allowedPunct, r)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
