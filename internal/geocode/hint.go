package geocode

import "strings"

// DefaultRegionHint is appended to provider queries that do not already name it.
const DefaultRegionHint = "France"

// ApplyRegionHint returns the provider query for address: the trimmed address
// with ", <hint>" appended unless the address already contains the hint,
// compared case-insensitively. An empty hint leaves the address unchanged.
func ApplyRegionHint(address, hint string) string {
	address = strings.TrimSpace(address)
	hint = strings.TrimSpace(hint)
	if hint == "" || address == "" {
		return address
	}
	if strings.Contains(strings.ToLower(address), strings.ToLower(hint)) {
		return address
	}
	return address + ", " + hint
}
