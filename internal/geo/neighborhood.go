package geo

import "strings"

// Neighborhood extracts the district from an address string.
//
// The "Street, 123 - District, City" form yields the text between the first
// " - " and the next comma. Otherwise the second comma-separated field is used.
func Neighborhood(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	if _, after, ok := strings.Cut(address, " - "); ok {
		district, _, _ := strings.Cut(after, ",")
		district, _, _ = strings.Cut(district, " - ")
		return normalizeName(district)
	}

	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return normalizeName(parts[1])
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
