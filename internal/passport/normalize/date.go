package normalize

import (
	"fmt"
	"regexp"
	"time"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
	regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`),
	regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`),
	regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})`),
}

// Date canonicalizes a recognized date string to DD/MM/YYYY. Accepted inputs
// are YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY and DD.MM.YYYY. Anything else
// passes through unchanged; the storage layer treats an unparseable date as
// absent rather than failing the whole submission.
func Date(raw string) string {
	if raw == "" {
		return ""
	}

	for _, pattern := range datePatterns {
		match := pattern.FindStringSubmatch(raw)
		if match == nil {
			continue
		}

		var day, month, year string
		if len(match[1]) == 4 {
			year, month, day = match[1], match[2], match[3]
		} else {
			day, month, year = match[1], match[2], match[3]
		}

		return fmt.Sprintf("%s/%s/%s", day, month, year)
	}

	return raw
}

// DateTime parses a canonical DD/MM/YYYY string into a calendar date.
// Returns nil for empty or unparseable input.
func DateTime(canonical string) *time.Time {
	if canonical == "" {
		return nil
	}

	t, err := time.Parse("02/01/2006", canonical)
	if err != nil {
		return nil
	}
	return &t
}
