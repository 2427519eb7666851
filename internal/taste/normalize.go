package taste

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle folds diacritics, lowercases and drops every rune outside
// [a-z0-9], so "Amélie" and "amelie!" share one key.
func NormalizeTitle(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key identifies a rated movie. Year is zero when unknown.
type Key struct {
	Title string
	Year  int
}

// KeyOf builds the lookup key of a title and optional year.
func KeyOf(title string, year *int) Key {
	k := Key{Title: NormalizeTitle(title)}
	if year != nil {
		k.Year = *year
	}
	return k
}
