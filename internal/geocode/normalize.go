package geocode

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeAddress derives the cache key for an address: NFC form, lowercase,
// runs of whitespace collapsed to a single space, leading and trailing
// whitespace removed. It is pure and never fails; "" maps to "".
func NormalizeAddress(address string) string {
	s := norm.NFC.String(address)
	// Casers carry state, so each call gets its own.
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}
