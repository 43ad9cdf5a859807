package normalize

import "strings"

// Gender reduces a recognized gender token to "M" or "F". Anything else
// normalizes to empty.
func Gender(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	first := strings.ToUpper(trimmed[:1])
	if first != "M" && first != "F" {
		return ""
	}
	return first
}
