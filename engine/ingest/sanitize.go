package ingest

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeID makes a record id safe for the index: accents are folded by
// NFKD decomposition, combining marks and any remaining non-ASCII runes are
// dropped, and spaces become underscores.
func SanitizeID(raw string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == ' ' {
				return '_'
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return r > unicode.MaxASCII || unicode.IsControl(r)
		})),
	)
	out, _, err := transform.String(t, raw)
	if err != nil {
		return raw
	}
	return out
}
