package recognition

import "strings"

// DocumentType selects a prompt variant tuned for how a country lays out
// its passport information page. Unknown values fall back to the generic
// instructions.
type DocumentType string

const (
	DocGeneric    DocumentType = ""
	DocChina      DocumentType = "CN"
	DocNewZealand DocumentType = "NZ"
	DocAustralia  DocumentType = "AU"
)

const basePrompt = `You are a passport information extraction assistant. Read the passport image carefully and return the data as JSON.

Return JSON in exactly this shape:
{
  "fullName": "name in Latin letters, SURNAME/GIVENNAME",
  "chineseName": "Chinese name if present",
  "passportNumber": "passport number",
  "gender": "M or F",
  "nationality": "nationality",
  "birthDate": "date of birth, DD/MM/YYYY",
  "issueDate": "date of issue, DD/MM/YYYY",
  "expiryDate": "date of expiry, DD/MM/YYYY",
  "birthPlace": "place of birth in Latin letters"
}

Rules:
1. Return null for any field you cannot read.
2. Convert all dates to DD/MM/YYYY.
3. Gender is only M or F.
4. The passport number must be complete and exact.
5. The name must use the SURNAME/GIVENNAME shape, e.g. ZHANG/SAN.
6. Replace hyphens in names with spaces.
7. For the place of birth, scan the whole page and prefer these labels:
   "Place of Birth", "Birth Place", "Born in", "Chu Sheng Di",
   "Lieu de naissance", "Lugar de nacimiento". The value after the label
   is the birthplace. Return the city name only, e.g. BEIJING or NEW YORK,
   never the country.
8. Always try to read the date of birth.`

// Variant addenda, keyed by document type. Each one tells the model where
// that country's layout puts the birthplace and what values to expect.
var promptVariants = map[DocumentType]string{
	DocChina: `
9. This is a Chinese passport:
   - Read the Chinese name.
   - The page carries a birthplace field in Chinese and often an English
     "Place of Birth". The value is a Chinese city; return the pinyin or
     English city name only, e.g. BEIJING or SHANGHAI.`,
	DocNewZealand: `
9. This is a New Zealand passport:
   - The standard layout has a "Place of Birth" field near the bottom of
     the information page.
   - The birthplace may be a New Zealand city or a foreign one; return the
     city name only, e.g. AUCKLAND or LONDON.`,
	DocAustralia: `
9. This is an Australian passport:
   - The standard layout has a "Place of Birth" field on the information
     page.
   - The birthplace may be an Australian city or a foreign one; return the
     city name only, e.g. SYDNEY or MELBOURNE.`,
}

const userPrompt = "Read the information in this passport and return the JSON described above."

func systemPrompt(docType DocumentType) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if addendum, ok := promptVariants[docType]; ok {
		b.WriteString(addendum)
	}
	return b.String()
}
