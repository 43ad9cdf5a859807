package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/pkg/config"
)

type fakeVerifyRepo struct {
	record      *domain.EmailVerification
	upsertErr   error
	upsertCalls int
}

func (r *fakeVerifyRepo) Upsert(_ context.Context, email, link, codeHash string, expiresAt time.Time) error {
	r.upsertCalls++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.record = &domain.EmailVerification{
		ID: 1, Email: email, UploadLink: link,
		CodeHash: codeHash, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeVerifyRepo) Get(_ context.Context, email, link string) (*domain.EmailVerification, error) {
	if r.record == nil || r.record.Email != email || r.record.UploadLink != link {
		return nil, nil
	}
	snapshot := *r.record
	return &snapshot, nil
}

func (r *fakeVerifyRepo) IncrementAttempts(_ context.Context, id int64) (int, error) {
	r.record.Attempts++
	return r.record.Attempts, nil
}

func (r *fakeVerifyRepo) MarkVerified(_ context.Context, id int64) error {
	r.record.Verified = true
	return nil
}

func (r *fakeVerifyRepo) IsVerified(_ context.Context, email, link string) (bool, error) {
	return r.record != nil && r.record.Verified && time.Now().Before(r.record.ExpiresAt), nil
}

func (r *fakeVerifyRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type fakeLimiter struct {
	allowed  bool
	allowErr error
	resets   int
}

func (l *fakeLimiter) Allow(_ context.Context, _, _ string) (bool, error) {
	return l.allowed, l.allowErr
}

func (l *fakeLimiter) Reset(_ context.Context, _, _ string) error {
	l.resets++
	return nil
}

type fakeMailer struct {
	sentTo   string
	sentCode string
	err      error
}

func (m *fakeMailer) SendVerificationCode(toEmail, code string) error {
	if m.err != nil {
		return m.err
	}
	m.sentTo = toEmail
	m.sentCode = code
	return nil
}

func verificationFixture(t *testing.T) (*verificationService, *fakeVerifyRepo, *fakeLimiter, *fakeMailer, *fakeTouristRepo) {
	t.Helper()
	verifyRepo := &fakeVerifyRepo{}
	limiter := &fakeLimiter{allowed: true}
	mail := &fakeMailer{}
	tourists := newFakeTouristRepo()
	tourists.add(&domain.Tourist{ID: 7, TourID: 1, UploadLink: "link-1", UploadStatus: domain.UploadPending})

	svc := NewVerificationService(verifyRepo, tourists, limiter, mail, nil, config.VerificationConfig{
		CodeTTL:        10 * time.Minute,
		ResendInterval: time.Minute,
		MaxAttempts:    3,
	}).(*verificationService)
	return svc, verifyRepo, limiter, mail, tourists
}

func TestRequestCodeSendsHashedCode(t *testing.T) {
	svc, verifyRepo, _, mail, _ := verificationFixture(t)

	if err := svc.RequestCode(context.Background(), "  Traveler@Example.COM ", "link-1"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if mail.sentTo != "traveler@example.com" {
		t.Errorf("sent to %q, want normalized address", mail.sentTo)
	}
	if len(mail.sentCode) != 6 {
		t.Errorf("code %q, want 6 digits", mail.sentCode)
	}
	if verifyRepo.record == nil {
		t.Fatal("no verification record stored")
	}
	if verifyRepo.record.CodeHash == mail.sentCode {
		t.Error("code stored in clear text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(verifyRepo.record.CodeHash), []byte(mail.sentCode)); err != nil {
		t.Errorf("stored hash does not match sent code: %v", err)
	}
}

func TestRequestCodeRateLimited(t *testing.T) {
	svc, _, limiter, mail, _ := verificationFixture(t)
	limiter.allowed = false

	err := svc.RequestCode(context.Background(), "traveler@example.com", "link-1")
	var ve *domain.VerificationError
	if !errors.As(err, &ve) || ve.Reason != domain.VerifyReasonRateLimited {
		t.Fatalf("err = %v, want rate limited verification error", err)
	}
	if mail.sentCode != "" {
		t.Error("email sent despite rate limit")
	}
}

func TestRequestCodeLimiterFailureAllowsSend(t *testing.T) {
	svc, _, limiter, mail, _ := verificationFixture(t)
	limiter.allowed = false
	limiter.allowErr = errors.New("redis down")

	if err := svc.RequestCode(context.Background(), "traveler@example.com", "link-1"); err != nil {
		t.Fatalf("RequestCode with broken limiter: %v", err)
	}
	if mail.sentCode == "" {
		t.Error("no email sent, limiter failure should not block travelers")
	}
}

func TestRequestCodeSendFailureReleasesSlot(t *testing.T) {
	svc, _, limiter, mail, _ := verificationFixture(t)
	mail.err = errors.New("smtp refused")

	if err := svc.RequestCode(context.Background(), "traveler@example.com", "link-1"); err == nil {
		t.Fatal("expected error when email cannot be sent")
	}
	if limiter.resets != 1 {
		t.Errorf("resets = %d, want slot released after send failure", limiter.resets)
	}
}

func TestRequestCodeUnknownLink(t *testing.T) {
	svc, _, _, _, _ := verificationFixture(t)

	err := svc.RequestCode(context.Background(), "traveler@example.com", "no-such-link")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyCodeLifecycle(t *testing.T) {
	svc, verifyRepo, _, mail, _ := verificationFixture(t)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "traveler@example.com", "link-1"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	// A wrong guess counts as an attempt.
	err := svc.VerifyCode(ctx, "traveler@example.com", "link-1", "000000")
	var ve *domain.VerificationError
	if !errors.As(err, &ve) || ve.Reason != domain.VerifyReasonMismatch {
		t.Fatalf("wrong code err = %v, want mismatch", err)
	}
	if verifyRepo.record.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", verifyRepo.record.Attempts)
	}

	if err := svc.VerifyCode(ctx, "traveler@example.com", "link-1", mail.sentCode); err != nil {
		t.Fatalf("correct code rejected: %v", err)
	}
	if !verifyRepo.record.Verified {
		t.Error("record not marked verified")
	}

	ok, err := svc.IsVerified(ctx, "Traveler@Example.com", "link-1")
	if err != nil || !ok {
		t.Errorf("IsVerified = %v, %v, want true", ok, err)
	}

	// The code is single use.
	err = svc.VerifyCode(ctx, "traveler@example.com", "link-1", mail.sentCode)
	if !errors.As(err, &ve) || ve.Reason != domain.VerifyReasonUsed {
		t.Errorf("reused code err = %v, want already used", err)
	}
}

func TestVerifyCodeAttemptCap(t *testing.T) {
	svc, verifyRepo, _, _, _ := verificationFixture(t)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "traveler@example.com", "link-1"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	for i := 0; i < 3; i++ {
		svc.VerifyCode(ctx, "traveler@example.com", "link-1", "000000")
	}
	if verifyRepo.record.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", verifyRepo.record.Attempts)
	}

	err := svc.VerifyCode(ctx, "traveler@example.com", "link-1", "000000")
	var ve *domain.VerificationError
	if !errors.As(err, &ve) || ve.Reason != domain.VerifyReasonAttempts {
		t.Fatalf("err after cap = %v, want too many attempts", err)
	}
	if verifyRepo.record.Attempts != 3 {
		t.Errorf("attempts grew past the cap: %d", verifyRepo.record.Attempts)
	}
}

func TestVerifyCodeExpired(t *testing.T) {
	svc, verifyRepo, _, _, _ := verificationFixture(t)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "traveler@example.com", "link-1"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	verifyRepo.record.ExpiresAt = time.Now().Add(-time.Minute)

	err := svc.VerifyCode(ctx, "traveler@example.com", "link-1", "123456")
	var ve *domain.VerificationError
	if !errors.As(err, &ve) || ve.Reason != domain.VerifyReasonNotFound {
		t.Fatalf("expired code err = %v, want not found or expired", err)
	}
}

func TestRequestCodeInvalidEmail(t *testing.T) {
	svc, _, _, _, _ := verificationFixture(t)

	err := svc.RequestCode(context.Background(), "not-an-email", "link-1")
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
