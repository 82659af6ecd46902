package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	domain "github.com/skyvolt/storefront/internal/domain/otp"
	domoutbox "github.com/skyvolt/storefront/internal/domain/outbox"
	"github.com/skyvolt/storefront/internal/observability"
	"github.com/skyvolt/storefront/internal/observability/logctx"
)

const (
	otpService    = "otp-service"
	useCaseIssue  = "otp.issue"
	useCaseVerify = "otp.verify"
)

// ErrValidation tags malformed use-case input.
var ErrValidation = errors.New("otp: invalid input")

// Service issues and verifies one-time passcodes. Codes are single-use,
// expire after a fixed TTL and are throttled per (email, purpose) over a
// trailing window.
type Service struct {
	repo      domain.Repository
	limiter   RateLimiter
	idGen     IDGenerator
	publisher domoutbox.Publisher
	now       func() time.Time

	log        observability.Logger
	reqCounter observability.Counter
}

func NewService(repo domain.Repository, limiter RateLimiter, idGen IDGenerator, publisher domoutbox.Publisher, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:       repo,
		limiter:    limiter,
		idGen:      idGen,
		publisher:  publisher,
		now:        time.Now,
		log:        tel.Logger().With(observability.F("service", otpService)),
		reqCounter: tel.Counter(observability.MUsecaseRequests),
	}
}

type IssueInput struct {
	Email   string
	Purpose string
}

type IssueResult struct {
	// Accepted is false when issuance was throttled; throttling is a defined
	// outcome, not an error.
	Accepted  bool
	ExpiresAt time.Time
}

func (s *Service) Issue(ctx context.Context, cmd IssueInput) (_ *IssueResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseIssue),
		observability.F("email", cmd.Email),
	)
	outcome := "success"
	defer func() {
		if s.reqCounter != nil {
			s.reqCounter.Add(1,
				observability.L("use_case", useCaseIssue),
				observability.L("outcome", outcome),
			)
		}
	}()

	if cmd.Email == "" {
		outcome = "error"
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	purpose, err := domain.ParsePurpose(cmd.Purpose)
	if err != nil {
		outcome = "error"
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, limiterKey(cmd.Email, purpose), domain.IssueLimit, domain.IssueWindow)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("otp: rate limiter: %w", err)
	}
	if !allowed {
		outcome = "throttled"
		logger.Warn("otp_issue_throttled")
		return &IssueResult{Accepted: false}, nil
	}

	if err := s.repo.InvalidateActive(ctx, cmd.Email, purpose); err != nil {
		outcome = "error"
		return nil, fmt.Errorf("otp: invalidate previous: %w", err)
	}

	codeValue, err := generateCode(domain.CodeLength)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("otp: generate code: %w", err)
	}

	now := s.now().UTC()
	code := &domain.Code{
		ID:        s.idGen.NewID(),
		Email:     cmd.Email,
		Code:      codeValue,
		Purpose:   purpose,
		ExpiresAt: now.Add(domain.TTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, code); err != nil {
		outcome = "error"
		return nil, fmt.Errorf("otp: persist code: %w", err)
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		if pubErr := s.publisher.Publish(pubCtx, domain.NewIssuedEvent(code)); pubErr != nil {
			logger.Warn("event_publish_failed",
				observability.F("event", "otp.issued"),
				observability.F("error", pubErr.Error()),
			)
		}
		cancel()
	}

	logger.Info("otp_issued", observability.F("purpose", string(purpose)))
	return &IssueResult{Accepted: true, ExpiresAt: code.ExpiresAt}, nil
}

type VerifyInput struct {
	Email   string
	Code    string
	Purpose string
}

// Verify consumes a code. Every call against a matched record counts toward
// the attempt cap, including the successful one.
func (s *Service) Verify(ctx context.Context, cmd VerifyInput) (_ domain.VerifyOutcome, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseVerify),
		observability.F("email", cmd.Email),
	)
	outcome := "success"
	defer func() {
		if s.reqCounter != nil {
			s.reqCounter.Add(1,
				observability.L("use_case", useCaseVerify),
				observability.L("outcome", outcome),
			)
		}
	}()

	if cmd.Email == "" || cmd.Code == "" {
		outcome = "error"
		return "", fmt.Errorf("%w: email and code are required", ErrValidation)
	}
	purpose, err := domain.ParsePurpose(cmd.Purpose)
	if err != nil {
		outcome = "error"
		return "", err
	}

	code, err := s.repo.FindActive(ctx, cmd.Email, cmd.Code, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("otp_verify_rejected", observability.F("reason", string(domain.VerifyInvalid)))
		return domain.VerifyInvalid, nil
	}
	if err != nil {
		outcome = "error"
		return "", fmt.Errorf("otp: lookup: %w", err)
	}

	attempts, err := s.repo.IncrementAttempts(ctx, code.ID)
	if err != nil {
		outcome = "error"
		return "", fmt.Errorf("otp: count attempt: %w", err)
	}
	if attempts > domain.MaxAttempts {
		logger.Warn("otp_verify_rejected", observability.F("reason", string(domain.VerifyTooManyAttempts)))
		return domain.VerifyTooManyAttempts, nil
	}

	if code.Expired(s.now()) {
		logger.Info("otp_verify_rejected", observability.F("reason", string(domain.VerifyExpired)))
		return domain.VerifyExpired, nil
	}

	if err := s.repo.MarkUsed(ctx, code.ID); err != nil {
		outcome = "error"
		return "", fmt.Errorf("otp: consume code: %w", err)
	}

	logger.Info("otp_verified", observability.F("purpose", string(purpose)))
	return domain.VerifySuccess, nil
}

func limiterKey(email string, purpose domain.Purpose) string {
	return "otp:issue:" + email + ":" + string(purpose)
}

func generateCode(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
