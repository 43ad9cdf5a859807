package service

import (
	"errors"
	"testing"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

func TestCheckIdentity(t *testing.T) {
	stored := &domain.Tourist{
		PassportName:   "ZHANG WEI/SAN",
		PassportNumber: "E12345678",
	}

	cases := []struct {
		name       string
		recognized *domain.RecognizedPassport
		wantField  string
	}{
		{"nil recognized passes", nil, ""},
		{"exact match", &domain.RecognizedPassport{FullName: "ZHANG WEI/SAN", PassportNumber: "E12345678"}, ""},
		{"spacing and case folded", &domain.RecognizedPassport{FullName: "zhang  wei/san", PassportNumber: "e 1234 5678"}, ""},
		{"hyphen folded", &domain.RecognizedPassport{FullName: "ZHANG-WEI/SAN", PassportNumber: "E12345678"}, ""},
		{"empty fields skipped", &domain.RecognizedPassport{BirthPlace: "BEIJING"}, ""},
		{"different number", &domain.RecognizedPassport{FullName: "ZHANG WEI/SAN", PassportNumber: "E12345679"}, "number"},
		{"different name", &domain.RecognizedPassport{FullName: "LI/MING", PassportNumber: "E12345678"}, "name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckIdentity(stored, tc.recognized)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("CheckIdentity = %v, want nil", err)
				}
				return
			}
			var ce *domain.ConsistencyError
			if !errors.As(err, &ce) {
				t.Fatalf("CheckIdentity = %v, want consistency error", err)
			}
			if ce.Field != tc.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tc.wantField)
			}
		})
	}
}

func TestCheckIdentityFreshRecord(t *testing.T) {
	fresh := &domain.Tourist{}
	recognized := &domain.RecognizedPassport{FullName: "LI/MING", PassportNumber: "G00000001"}
	if err := CheckIdentity(fresh, recognized); err != nil {
		t.Fatalf("fresh record must accept any passport: %v", err)
	}
}
