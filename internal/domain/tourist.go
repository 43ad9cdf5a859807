package domain

import "time"

type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadUploaded UploadStatus = "uploaded"
	UploadVerified UploadStatus = "verified"
	UploadRejected UploadStatus = "rejected"
)

type TouristType string

const (
	TouristAdult TouristType = "ADT"
	TouristChild TouristType = "CHD"
)

// Tourist is one traveler attached to one tour product. The upload link is
// the only identity unauthenticated callers ever see.
type Tourist struct {
	ID            int64        `json:"id"`
	TourID        int64        `json:"tour_id"`
	TouristName   string       `json:"tourist_name"`
	SalesName     string       `json:"sales_name"`
	SalespersonID *int64       `json:"salesperson_id,omitempty"`
	GroupTag      string       `json:"group_tag,omitempty"`
	ContactPhone  string       `json:"contact_phone,omitempty"`
	ContactEmail  string       `json:"contact_email,omitempty"`
	Remarks       string       `json:"remarks,omitempty"`
	TouristType   TouristType  `json:"tourist_type"`

	PassportPhoto      string     `json:"passport_photo,omitempty"`
	PassportName       string     `json:"passport_name,omitempty"`
	PassportNumber     string     `json:"passport_number,omitempty"`
	Nationality        string     `json:"nationality,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	BirthPlace         string     `json:"birth_place,omitempty"`
	PassportIssueDate  *time.Time `json:"passport_issue_date,omitempty"`
	PassportExpiryDate *time.Time `json:"passport_expiry_date,omitempty"`
	PassportBirthDate  *time.Time `json:"passport_birth_date,omitempty"`

	UploadLink      string              `json:"upload_link"`
	UploadStatus    UploadStatus        `json:"upload_status"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	RecognizedData  *RecognizedPassport `json:"recognized_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPassportIdentity reports whether the record already carries identity
// fields that a later upload must not contradict.
func (t *Tourist) HasPassportIdentity() bool {
	return t.PassportName != "" || t.PassportNumber != ""
}

type Tour struct {
	ID            int64     `json:"id"`
	ProductName   string    `json:"product_name"`
	DepartureDate time.Time `json:"departure_date"`
}

// TypeAtDeparture classifies a traveler as adult or child at the tour's
// departure date. Twelve and under counts as a child.
func TypeAtDeparture(birthDate *time.Time, departure time.Time) TouristType {
	if birthDate == nil {
		return TouristAdult
	}
	age := departure.Year() - birthDate.Year()
	if departure.Month() < birthDate.Month() ||
		(departure.Month() == birthDate.Month() && departure.Day() < birthDate.Day()) {
		age--
	}
	if age > 12 {
		return TouristAdult
	}
	return TouristChild
}

// PassportUpdate is the full field set written to a traveler record when a
// submission is confirmed or an operator replaces the photo.
type PassportUpdate struct {
	PassportName   string
	PassportNumber string
	Nationality    string
	Gender         string
	BirthPlace     string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	BirthDate      *time.Time
	PassportPhoto  string
	ContactPhone   string
	ContactEmail   string
	TouristType    TouristType
	RecognizedData *RecognizedPassport
}

// RecognizedPassport is the raw, unverified field set returned by the
// recognition engine. Dates stay in DD/MM/YYYY text form until the user
// confirms them.
type RecognizedPassport struct {
	FullName       string `json:"full_name,omitempty"`
	ChineseName    string `json:"chinese_name,omitempty"`
	PassportNumber string `json:"passport_number,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	IssueDate      string `json:"issue_date,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	BirthPlace     string `json:"birth_place,omitempty"`
}

// ConfirmedPassport is what the traveler submits after editing the
// recognized fields.
type ConfirmedPassport struct {
	FullName       string `json:"full_name"`
	PassportNumber string `json:"passport_number"`
	Gender         string `json:"gender,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	BirthDate      string `json:"birth_date"`
	IssueDate      string `json:"issue_date,omitempty"`
	ExpiryDate     string `json:"expiry_date"`
	BirthPlace     string `json:"birth_place"`
	ContactPhone   string `json:"contact_phone"`
	ContactEmail   string `json:"contact_email"`
}
