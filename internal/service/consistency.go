package service

import (
	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/passport/normalize"
)

// CheckIdentity compares a record's stored passport identity against a newly
// recognized one. An upload link is bound to one traveler; a photo of a
// different person's passport must never slip through a re-upload. Names are
// compared with hyphens folded and whitespace collapsed, numbers with
// whitespace stripped, both case-insensitive. Fields absent on either side
// are not compared.
func CheckIdentity(stored *domain.Tourist, recognized *domain.RecognizedPassport) error {
	if recognized == nil {
		return nil
	}

	if stored.PassportName != "" && recognized.FullName != "" {
		if normalize.FoldName(stored.PassportName) != normalize.FoldName(recognized.FullName) {
			return &domain.ConsistencyError{
				Field:      "name",
				Stored:     stored.PassportName,
				Recognized: recognized.FullName,
			}
		}
	}

	if stored.PassportNumber != "" && recognized.PassportNumber != "" {
		if normalize.FoldPassportNumber(stored.PassportNumber) != normalize.FoldPassportNumber(recognized.PassportNumber) {
			return &domain.ConsistencyError{
				Field:      "number",
				Stored:     stored.PassportNumber,
				Recognized: recognized.PassportNumber,
			}
		}
	}

	return nil
}
