// Package content holds small helpers for derived post fields: URL
// slugs and estimated read times.
package content

import (
	"strings"
	"unicode"
)

// Slugify converts a string to a URL-friendly slug: lowercase, special
// characters removed, runs of spaces/underscores/hyphens collapsed to a
// single hyphen, leading and trailing hyphens stripped.
func Slugify(text string) string {
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-' || unicode.IsSpace(r):
			// Separators collapse below; everything else is dropped.
			b.WriteRune(' ')
		}
	}

	parts := strings.Fields(b.String())
	return strings.Trim(strings.Join(parts, "-"), "-")
}
