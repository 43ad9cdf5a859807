package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed caller input. It is surfaced verbatim
// and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConsistencyError rejects a re-upload whose identity fields differ from
// what is already on file. Both values are named so the operator can see
// exactly what clashed.
type ConsistencyError struct {
	Field      string
	Stored     string
	Recognized string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("passport %s mismatch: stored %q, newly recognized %q; a booking slot cannot be reassigned to a different traveler through its upload link",
		e.Field, e.Stored, e.Recognized)
}

// RecognitionError is a soft failure of the external recognition engine:
// timeout, transport error, or a response without a parseable field set.
type RecognitionError struct {
	Cause error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("passport recognition failed: %v", e.Cause)
}

func (e *RecognitionError) Unwrap() error { return e.Cause }

// VerificationError carries the specific reason an email code check failed.
type VerificationError struct {
	Reason  string
	Message string
}

const (
	VerifyReasonNotFound    = "not_found_or_expired"
	VerifyReasonUsed        = "already_used"
	VerifyReasonAttempts    = "too_many_attempts"
	VerifyReasonMismatch    = "code_mismatch"
	VerifyReasonRateLimited = "rate_limited"
	VerifyReasonUnverified  = "email_not_verified"
)

func (e *VerificationError) Error() string { return e.Message }

func NewVerificationError(reason, message string) *VerificationError {
	return &VerificationError{Reason: reason, Message: message}
}

// StorageError wraps a file write or delete failure. Deleting a stale file
// is logged and tolerated; failing to persist a new one is fatal to the
// request.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

var ErrNotFound = errors.New("not found")
var ErrAlreadyVerified = errors.New("passport already uploaded and verified")

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

func IsRecognition(err error) bool {
	var re *RecognitionError
	return errors.As(err, &re)
}

func IsVerification(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}
