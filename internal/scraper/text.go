package scraper

import "strings"

// Normalize turns a raw text fragment into its canonical form: non-breaking
// spaces become spaces, surrounding whitespace is dropped and every inner
// whitespace run collapses to a single space.
func Normalize(value string) string {
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\u00a0", " ")
	return strings.Join(strings.Fields(value), " ")
}
