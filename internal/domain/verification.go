package domain

import "time"

// EmailVerification is keyed by (email, upload link). A new code request
// overwrites the prior record; expired rows are inert and swept by TTL
// cleanup.
type EmailVerification struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	UploadLink string    `json:"upload_link"`
	CodeHash   string    `json:"-"`
	Verified   bool      `json:"verified"`
	Attempts   int       `json:"attempts"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (v *EmailVerification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
