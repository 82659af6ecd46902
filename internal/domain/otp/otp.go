package otp

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound       = errors.New("otp: not found")
	ErrInvalidPurpose = errors.New("otp: unknown purpose")
)

const (
	// TTL bounds how long an issued code stays verifiable.
	TTL = 10 * time.Minute
	// MaxAttempts is the per-code verification cap. A code that crosses it is
	// permanently blocked even before expiry.
	MaxAttempts = 5
	// IssueLimit caps codes issued per (identifier, purpose) in IssueWindow.
	IssueLimit  = 3
	IssueWindow = time.Hour
	// CodeLength is the fixed width of the zero-padded numeric code.
	CodeLength = 6
)

type Purpose string

const (
	PurposeRegistration   Purpose = "registration"
	PurposeLogin          Purpose = "login"
	PurposeForgotPassword Purpose = "forgot_password"
)

func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeRegistration, PurposeLogin, PurposeForgotPassword:
		return Purpose(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPurpose, s)
}

// Code is an ephemeral one-time passcode bound to (email, purpose).
type Code struct {
	ID        string
	Email     string
	Code      string
	Purpose   Purpose
	ExpiresAt time.Time
	Used      bool
	Attempts  int
	CreatedAt time.Time
}

func (c *Code) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// VerifyOutcome is the explicit result of a verification call; verification
// failures are defined outcomes, not error paths.
type VerifyOutcome string

const (
	VerifySuccess         VerifyOutcome = "success"
	VerifyInvalid         VerifyOutcome = "invalid"
	VerifyExpired         VerifyOutcome = "expired"
	VerifyTooManyAttempts VerifyOutcome = "too_many_attempts"
)
