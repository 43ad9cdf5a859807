package mailer

// Service sends the email verification code a traveler needs before the
// upload endpoints will accept their passport photo.
type Service interface {
	SendVerificationCode(toEmail, code string) error
}
