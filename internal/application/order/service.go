package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skyvolt/storefront/internal/domain/cart"
	domaininventory "github.com/skyvolt/storefront/internal/domain/inventory"
	domain "github.com/skyvolt/storefront/internal/domain/order"
	domoutbox "github.com/skyvolt/storefront/internal/domain/outbox"
	"github.com/skyvolt/storefront/internal/observability"
	"github.com/skyvolt/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService   = "order-service"
	useCasePlace   = "order.place"
	useCaseCancel  = "order.cancel"
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Service drives the order transaction engine: converting a mutable cart
// into an immutable priced order while reserving stock, and the owner-side
// lifecycle (cancellation with compensating inventory release).
type Service struct {
	orderRepo domain.Repository
	invRepo   domaininventory.Repository
	cartRepo  cart.Repository
	addresses AddressBook
	checkout  CheckoutStore
	idGen     IDGenerator
	publisher domoutbox.Publisher
	tel       observability.Telemetry

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(
	orderRepo domain.Repository,
	invRepo domaininventory.Repository,
	cartRepo cart.Repository,
	addresses AddressBook,
	checkout CheckoutStore,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		orderRepo:    orderRepo,
		invRepo:      invRepo,
		cartRepo:     cartRepo,
		addresses:    addresses,
		checkout:     checkout,
		idGen:        idGen,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   tel.Counter(observability.MUsecaseRequests),
		durHistogram: tel.Histogram(observability.MUsecaseDuration),
		extCounter:   tel.Counter(observability.MExternalRequests),
		extHistogram: tel.Histogram(observability.MExternalRequestDuration),
	}
}

type PlaceOrderInput struct {
	UserID    string
	Email     string
	AddressID string
	Notes     string
}

type PlaceOrderResult struct {
	Order   *domain.Order
	Address *Address
}

// ErrValidation tags malformed use-case input so the transport layer can map
// it to a client error.
var ErrValidation = errors.New("order: invalid input")

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// PlaceOrder validates the cart against current product and stock state,
// freezes pricing, and commits the order atomically. Everything up to the
// checkout store call is side-effect free.
func (s *Service) PlaceOrder(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCasePlace))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlace),
		attribute.String("order.user_id", cmd.UserID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var orderNumber string
	var publishErr error

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		if s.reqCounter != nil {
			s.reqCounter.Add(1,
				observability.L("use_case", useCasePlace),
				observability.L("outcome", outcome),
			)
		}
		if s.durHistogram != nil {
			s.durHistogram.Observe(lat, observability.L("use_case", useCasePlace))
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if orderNumber != "" {
			fields = append(fields, observability.F("order_number", orderNumber))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.UserID == "" {
		outcome, statusText = "error", "USER_ID_REQUIRED"
		return nil, newValidation("user id is required")
	}
	if cmd.AddressID == "" {
		outcome, statusText = "error", "ADDRESS_ID_REQUIRED"
		return nil, newValidation("address id is required")
	}

	address, err := s.addresses.Get(ctx, cmd.UserID, cmd.AddressID)
	if err != nil {
		outcome, statusText = "error", "ADDRESS_NOT_FOUND"
		return nil, err
	}

	snapshot, err := s.cartRepo.Snapshot(ctx, cmd.UserID)
	if errors.Is(err, cart.ErrEmpty) {
		outcome, statusText = "error", "CART_EMPTY"
		return nil, domain.ErrEmptyCart
	}
	if err != nil {
		outcome, statusText = "error", "CART_LOAD_FAILED"
		return nil, fmt.Errorf("order: load cart: %w", err)
	}

	// Early rejection on the snapshot; the checkout store repeats both checks
	// under row locks so the decision that counts is made inside the tx.
	for _, line := range snapshot {
		if !line.ProductActive {
			outcome, statusText = "error", "PRODUCT_UNAVAILABLE"
			return nil, &domain.ProductUnavailableError{ProductName: line.ProductName}
		}
	}

	items := make([]domain.Item, 0, len(snapshot))
	for _, line := range snapshot {
		items = append(items, domain.Item{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Total:       line.Total(),
			ImagePath:   line.ImagePath,
		})
	}

	pricing := domain.ComputePricing(snapshot.Subtotal())
	entity, err := domain.New(s.idGen.NewID(), s.idGen.OrderNumber(), cmd.UserID, address.ID, cmd.Notes, pricing, items)
	if err != nil {
		outcome, statusText = "error", "DOMAIN_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("order: construct: %w", err)
	}
	orderNumber = entity.Number

	if err := s.checkout.PlaceOrder(ctx, entity); err != nil {
		var unavailable *domain.ProductUnavailableError
		var insufficient *domain.InsufficientStockError
		switch {
		case errors.As(err, &unavailable):
			outcome, statusText = "error", "PRODUCT_UNAVAILABLE"
		case errors.As(err, &insufficient):
			outcome, statusText = "error", "INSUFFICIENT_STOCK"
		default:
			outcome, statusText = "error", "CHECKOUT_FAILED"
		}
		return nil, err
	}

	// Confirmation is best-effort: the order is committed business fact.
	publishErr = s.publish(ctx, domain.NewPlacedEvent(entity, cmd.Email))
	if publishErr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	span.SetAttributes(
		attribute.String("order.number", entity.Number),
		attribute.Float64("order.total", entity.Total),
	)
	span.AddEvent("order.placed", trace.WithAttributes(attribute.String("order.id", entity.ID)))

	return &PlaceOrderResult{Order: entity, Address: address}, nil
}

// Cancel performs owner-initiated cancellation. Reserved inventory is
// released per item as a compensating action: a failed release is logged and
// the remaining items are still released.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseCancel),
		observability.F("order_id", orderID),
	)
	start := time.Now()
	outcome := "success"
	defer func() {
		if s.reqCounter != nil {
			s.reqCounter.Add(1,
				observability.L("use_case", useCaseCancel),
				observability.L("outcome", outcome),
			)
		}
		if s.durHistogram != nil {
			s.durHistogram.Observe(time.Since(start).Seconds(), observability.L("use_case", useCaseCancel))
		}
	}()

	entity, err := s.orderRepo.Get(ctx, userID, orderID)
	if err != nil {
		outcome = "error"
		return nil, err
	}

	if err := entity.Cancel(); err != nil {
		outcome = "error"
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, entity); err != nil {
		outcome = "error"
		return nil, fmt.Errorf("order: persist cancellation: %w", err)
	}

	for _, item := range entity.Items {
		if relErr := s.invRepo.Release(ctx, item.ProductID, item.Quantity); relErr != nil {
			logger.Error("reservation_release_failed",
				observability.F("product_id", item.ProductID),
				observability.F("quantity", item.Quantity),
				observability.F("error", relErr.Error()),
			)
		}
	}

	if pubErr := s.publish(ctx, domain.NewCancelledEvent(entity)); pubErr != nil {
		logger.Warn("event_publish_failed",
			observability.F("event", "order.cancelled"),
			observability.F("error", pubErr.Error()),
		)
	}

	logger.Info("order_cancelled", observability.F("order_number", entity.Number))
	return entity, nil
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, newValidation("order id is required")
	}
	return s.orderRepo.Get(ctx, userID, orderID)
}

func (s *Service) List(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, newValidation("user id is required")
	}
	return s.orderRepo.List(ctx, userID)
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) error {
	if s.publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	pubStart := time.Now()
	pubOutcome := "success"
	err := s.publisher.Publish(pubCtx, e)
	if err != nil {
		pubOutcome = "error"
	}

	if s.extCounter != nil {
		s.extCounter.Add(1,
			observability.L("peer", publishPeer),
			observability.L("endpoint", e.EventName()),
			observability.L("outcome", pubOutcome),
		)
	}
	if s.extHistogram != nil {
		s.extHistogram.Observe(time.Since(pubStart).Seconds(),
			observability.L("peer", publishPeer),
			observability.L("endpoint", e.EventName()),
		)
	}
	return err
}
