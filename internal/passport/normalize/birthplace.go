package normalize

import "strings"

// Label prefixes the recognition engine sometimes echoes back along with the
// actual birthplace. Longer variants first so the shorter ones don't eat a
// partial match.
var birthPlaceLabels = []string{
	"PLACE OF BIRTH:", "PLACE OF BIRTH", "BIRTH PLACE:", "BIRTH PLACE",
	"BORN IN:", "BORN IN", "出生地:", "出生地", "LIEU DE NAISSANCE:",
	"LUGAR DE NACIMIENTO:", "POB:", "BIRTHPLACE:",
}

var birthPlaceCountrySuffixes = []string{
	"CHINA", "NEW ZEALAND", "AUSTRALIA", "USA", "UK", "CANADA",
	"JAPAN", "FRANCE", "GERMANY", "ITALY", "SPAIN", "NETHERLANDS",
}

// BirthPlace reduces a recognized birthplace to a bare uppercase city name:
// label prefixes stripped, trailing comma-separated country tokens dropped,
// known country suffixes removed, stray punctuation cleaned up.
func BirthPlace(raw string) string {
	if raw == "" {
		return ""
	}

	normalized := strings.ToUpper(strings.TrimSpace(raw))

	for _, label := range birthPlaceLabels {
		if strings.HasPrefix(normalized, label) {
			normalized = strings.TrimSpace(strings.TrimPrefix(normalized, label))
			break
		}
	}

	if idx := strings.Index(normalized, ","); idx != -1 {
		normalized = strings.TrimSpace(normalized[:idx])
	}

	for _, country := range birthPlaceCountrySuffixes {
		if strings.HasSuffix(normalized, country) {
			normalized = strings.TrimSpace(strings.TrimSuffix(normalized, country))
			normalized = strings.TrimRight(normalized, ",- \t")
			break
		}
	}

	normalized = strings.NewReplacer(".", "", ":", "", ";", "").Replace(normalized)

	return strings.TrimSpace(normalized)
}
