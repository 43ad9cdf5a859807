package normalize

import (
	"regexp"
	"strings"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

var namePartPattern = regexp.MustCompile(`^[A-Za-z\s]+$`)

const maxNamePartLen = 50

// Name validates and canonicalizes a passport name. The required shape is
// SURNAME/GIVENNAME with letters and spaces only, at most 50 characters per
// part. Hyphens are folded to spaces before validation because machine
// readable zones print them that way. The result is uppercased and
// slash-joined. A violation returns a ValidationError, never a silently
// corrected value.
func Name(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.NewValidationError("full_name", "name is required")
	}

	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "-", " ")

	if !strings.Contains(trimmed, "/") {
		return "", domain.NewValidationError("full_name", `name must use the SURNAME/GIVENNAME format, e.g. ZHANG/SAN`)
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return "", domain.NewValidationError("full_name", "name must contain exactly one slash separating surname and given name")
	}

	surname := strings.TrimSpace(parts[0])
	given := strings.TrimSpace(parts[1])

	if surname == "" {
		return "", domain.NewValidationError("full_name", "surname must not be empty")
	}
	if given == "" {
		return "", domain.NewValidationError("full_name", "given name must not be empty")
	}

	if !namePartPattern.MatchString(surname) {
		return "", domain.NewValidationError("full_name", "surname may only contain letters and spaces")
	}
	if !namePartPattern.MatchString(given) {
		return "", domain.NewValidationError("full_name", "given name may only contain letters and spaces")
	}

	if len(surname) > maxNamePartLen {
		return "", domain.NewValidationError("full_name", "surname must not exceed 50 characters")
	}
	if len(given) > maxNamePartLen {
		return "", domain.NewValidationError("full_name", "given name must not exceed 50 characters")
	}

	return strings.ToUpper(surname) + "/" + strings.ToUpper(given), nil
}

// FoldName reduces a name to its comparison form: hyphens to spaces,
// whitespace collapsed, uppercased. Used for identity consistency checks,
// not for storage.
func FoldName(name string) string {
	folded := strings.ReplaceAll(name, "-", " ")
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}

// FoldPassportNumber strips all whitespace and uppercases for comparison.
func FoldPassportNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r == ' ' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
