package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldForSearch lowercases the input and strips combining marks so that
// queries like "creme brulee" match titles like "Crème Brûlée".
func foldForSearch(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// searchMatches reports whether the folded query occurs in any of the given
// fields.
func searchMatches(query string, fields ...string) bool {
	needle := foldForSearch(query)
	if needle == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(foldForSearch(field), needle) {
			return true
		}
	}
	return false
}
