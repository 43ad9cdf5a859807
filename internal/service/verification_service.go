package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/mailer"
	"github.com/oceaniatours/passport-intake/internal/repo/postgres"
	"github.com/oceaniatours/passport-intake/internal/utils"
	"github.com/oceaniatours/passport-intake/pkg/config"
	"github.com/oceaniatours/passport-intake/pkg/events"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

// ResendLimiter gates how often a verification email may be sent to the
// same (email, upload link) pair.
type ResendLimiter interface {
	Allow(ctx context.Context, email, uploadLink string) (bool, error)
	Reset(ctx context.Context, email, uploadLink string) error
}

type VerificationService interface {
	// RequestCode generates a fresh code for the pair and emails it.
	RequestCode(ctx context.Context, email, uploadLink string) error
	// VerifyCode checks a submitted code. Every check against an active code
	// counts toward the attempt cap, matching or not.
	VerifyCode(ctx context.Context, email, uploadLink, code string) error
	// IsVerified reports whether the pair has completed verification.
	IsVerified(ctx context.Context, email, uploadLink string) (bool, error)
}

type verificationService struct {
	verifyRepo postgres.VerifyRepo
	tourists   postgres.TouristRepo
	limiter    ResendLimiter
	mail       mailer.Service
	eventBus   events.EventBus
	cfg        config.VerificationConfig
}

func NewVerificationService(
	verifyRepo postgres.VerifyRepo,
	tourists postgres.TouristRepo,
	limiter ResendLimiter,
	mail mailer.Service,
	eventBus events.EventBus,
	cfg config.VerificationConfig,
) VerificationService {
	return &verificationService{
		verifyRepo: verifyRepo,
		tourists:   tourists,
		limiter:    limiter,
		mail:       mail,
		eventBus:   eventBus,
		cfg:        cfg,
	}
}

func (s *verificationService) RequestCode(ctx context.Context, email, uploadLink string) error {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return domain.NewValidationError("email", "a valid email address is required")
	}
	if uploadLink == "" {
		return domain.NewValidationError("upload_link", "upload link is required")
	}

	tourist, err := s.tourists.GetByUploadLink(ctx, uploadLink)
	if err != nil {
		return fmt.Errorf("look up upload link: %w", err)
	}
	if tourist == nil {
		return domain.ErrNotFound
	}

	allowed, err := s.limiter.Allow(ctx, email, uploadLink)
	if err != nil {
		// A broken limiter must not block travelers from getting codes.
		logger.WarnContext(ctx, "resend limiter unavailable, allowing send", "error", err)
		allowed = true
	}
	if !allowed {
		return domain.NewVerificationError(domain.VerifyReasonRateLimited,
			"a code was sent recently, please wait a minute before requesting another")
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash verification code: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.CodeTTL)
	if err := s.verifyRepo.Upsert(ctx, email, uploadLink, string(codeHash), expiresAt); err != nil {
		s.releaseSlot(ctx, email, uploadLink)
		return fmt.Errorf("store verification code: %w", err)
	}

	if err := s.mail.SendVerificationCode(email, code); err != nil {
		logger.ErrorContext(ctx, "failed to send verification email", "error", err, "email", email)
		s.releaseSlot(ctx, email, uploadLink)
		return fmt.Errorf("send verification email: %w", err)
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.CodeSent, events.CodeSentEvent{
			Email:      email,
			UploadLink: uploadLink,
			SentAt:     time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "failed to publish code sent event", "error", err)
		}
	}

	logger.InfoContext(ctx, "verification code sent", "email", email)
	return nil
}

func (s *verificationService) VerifyCode(ctx context.Context, email, uploadLink, code string) error {
	email = utils.NormalizeEmail(email)
	if email == "" || uploadLink == "" || code == "" {
		return domain.NewValidationError("", "email, upload link and code are all required")
	}

	v, err := s.verifyRepo.Get(ctx, email, uploadLink)
	if err != nil {
		return fmt.Errorf("load verification record: %w", err)
	}
	if v == nil || v.Expired(time.Now()) {
		return domain.NewVerificationError(domain.VerifyReasonNotFound,
			"verification code not found or expired, please request a new one")
	}
	if v.Verified {
		return domain.NewVerificationError(domain.VerifyReasonUsed,
			"this verification code was already used")
	}
	if v.Attempts >= s.cfg.MaxAttempts {
		return domain.NewVerificationError(domain.VerifyReasonAttempts,
			"too many attempts, please request a new code")
	}

	if _, err := s.verifyRepo.IncrementAttempts(ctx, v.ID); err != nil {
		return fmt.Errorf("record verification attempt: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)) != nil {
		return domain.NewVerificationError(domain.VerifyReasonMismatch,
			"incorrect verification code")
	}

	if err := s.verifyRepo.MarkVerified(ctx, v.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	logger.InfoContext(ctx, "email verified", "email", email)
	return nil
}

func (s *verificationService) IsVerified(ctx context.Context, email, uploadLink string) (bool, error) {
	return s.verifyRepo.IsVerified(ctx, utils.NormalizeEmail(email), uploadLink)
}

func (s *verificationService) releaseSlot(ctx context.Context, email, uploadLink string) {
	if err := s.limiter.Reset(ctx, email, uploadLink); err != nil {
		logger.WarnContext(ctx, "failed to release resend slot", "error", err)
	}
}

// generateCode returns a 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
