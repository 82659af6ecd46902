package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/skyvolt/storefront/internal/domain/order"
	domain "github.com/skyvolt/storefront/internal/domain/payment"
	"github.com/skyvolt/storefront/internal/observability"
	"github.com/skyvolt/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrSignatureInvalid reports a settlement callback whose signature did
	// not verify. The payment record is marked failed before this is returned.
	ErrSignatureInvalid = errors.New("payment: signature verification failed")
	// ErrGatewayUnavailable wraps gateway transport failures so callers can
	// distinguish a retryable upstream fault from a local one.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// ErrValidation tags malformed use-case input.
	ErrValidation = errors.New("payment: invalid input")
)

const (
	paymentService  = "payment-service"
	useCaseIntent   = "payment.create_intent"
	useCaseVerify   = "payment.verify"
	defaultCurrency = "INR"
	gatewayPeer     = "razorpay"
)

type IDGenerator interface {
	NewID() string
}

// Service owns payment settlement: registering a gateway intent for an
// unpaid order and verifying the gateway callback before any order is
// allowed to become paid.
type Service struct {
	payments  domain.Repository
	orderRepo domorder.Repository
	gateway   Gateway
	idGen     IDGenerator
	tel       observability.Telemetry

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(payments domain.Repository, orderRepo domorder.Repository, gateway Gateway, idGen IDGenerator, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		payments:     payments,
		orderRepo:    orderRepo,
		gateway:      gateway,
		idGen:        idGen,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", paymentService)),
		reqCounter:   tel.Counter(observability.MUsecaseRequests),
		durHistogram: tel.Histogram(observability.MUsecaseDuration),
		extCounter:   tel.Counter(observability.MExternalRequests),
		extHistogram: tel.Histogram(observability.MExternalRequestDuration),
	}
}

type IntentResult struct {
	Payment *domain.Payment
	KeyID   string
}

// CreateIntent registers a gateway order for the full order total and upserts
// the local payment record keyed by order. Calling it again for the same
// unpaid order replaces the pending intent.
func (s *Service) CreateIntent(ctx context.Context, userID, orderID string) (_ *IntentResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseIntent),
		observability.F("order_id", orderID),
	)
	outcome := "success"
	start := time.Now()
	defer func() {
		s.record(useCaseIntent, outcome, time.Since(start))
		if err != nil {
			logger.Warn("use_case_failed", observability.F("error", err.Error()))
		}
	}()

	ord, err := s.orderRepo.Get(ctx, userID, orderID)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	if ord.PaymentStatus == domorder.PaymentPaid {
		outcome = "error"
		return nil, domain.ErrAlreadyPaid
	}

	extStart := time.Now()
	intent, err := s.gateway.CreateIntent(ctx, ord.Total, defaultCurrency, ord.Number)
	s.recordExternal("create_order", err == nil, time.Since(extStart))
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	p := domain.NewIntent(s.idGen.NewID(), ord.ID, intent.GatewayOrderID, intent.Amount, intent.Currency)
	if err := s.payments.Upsert(ctx, p); err != nil {
		outcome = "error"
		return nil, fmt.Errorf("payment: persist intent: %w", err)
	}

	logger.Info("payment_intent_created",
		observability.F("gateway_order_id", p.GatewayOrderID),
		observability.F("amount", p.Amount),
	)
	return &IntentResult{Payment: p, KeyID: s.gateway.KeyID()}, nil
}

type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Verify settles a gateway callback. The client-supplied signature is
// recomputed server-side; only a verified match flips the order to paid. A
// mismatch marks the payment failed and is reported as ErrSignatureInvalid.
func (s *Service) Verify(ctx context.Context, cmd VerifyInput) (_ *domain.Payment, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseVerify),
		observability.F("gateway_order_id", cmd.GatewayOrderID),
	)

	ctx, span := s.tel.Tracer().Start(ctx, "UC.VerifyPayment",
		attribute.String("use_case", useCaseVerify),
	)
	outcome, statusText := "success", "OK"
	start := time.Now()
	defer func() {
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}
		s.record(useCaseVerify, outcome, time.Since(start))
		logger.Info("use_case_done",
			observability.F("outcome", outcome),
			observability.F("status", statusText),
		)
	}()

	if cmd.GatewayOrderID == "" || cmd.GatewayPaymentID == "" || cmd.Signature == "" {
		outcome, statusText = "error", "MISSING_FIELDS"
		return nil, fmt.Errorf("%w: incomplete verification payload", ErrValidation)
	}

	p, err := s.payments.GetByGatewayOrderID(ctx, cmd.GatewayOrderID)
	if err != nil {
		outcome, statusText = "error", "PAYMENT_NOT_FOUND"
		return nil, err
	}
	if p.Status == domain.StatusSuccess {
		outcome, statusText = "error", "ALREADY_PAID"
		return nil, domain.ErrAlreadyPaid
	}

	if !s.gateway.VerifySignature(cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature) {
		p.Fail("Signature verification failed")
		if markErr := s.payments.MarkFailed(ctx, p); markErr != nil {
			outcome, statusText = "error", "MARK_FAILED_ERROR"
			return nil, fmt.Errorf("payment: persist failure: %w", markErr)
		}
		outcome, statusText = "error", "SIGNATURE_INVALID"
		return nil, ErrSignatureInvalid
	}

	p.Succeed(cmd.GatewayPaymentID, cmd.Signature)
	if err := s.payments.MarkSucceeded(ctx, p); err != nil {
		outcome, statusText = "error", "MARK_SUCCEEDED_ERROR"
		return nil, fmt.Errorf("payment: persist settlement: %w", err)
	}

	span.SetAttributes(attribute.String("payment.order_id", p.OrderID))
	return p, nil
}

// Status returns the settlement record for an order owned by userID.
func (s *Service) Status(ctx context.Context, userID, orderID string) (*domain.Payment, error) {
	if _, err := s.orderRepo.Get(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.payments.GetByOrder(ctx, orderID)
}

func (s *Service) record(useCase, outcome string, elapsed time.Duration) {
	if s.reqCounter != nil {
		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
	}
	if s.durHistogram != nil {
		s.durHistogram.Observe(elapsed.Seconds(), observability.L("use_case", useCase))
	}
}

func (s *Service) recordExternal(endpoint string, ok bool, elapsed time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	if s.extCounter != nil {
		s.extCounter.Add(1,
			observability.L("peer", gatewayPeer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
	}
	if s.extHistogram != nil {
		s.extHistogram.Observe(elapsed.Seconds(),
			observability.L("peer", gatewayPeer),
			observability.L("endpoint", endpoint),
		)
	}
}
