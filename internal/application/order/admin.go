package order

import (
	"context"
	"time"

	domain "github.com/skyvolt/storefront/internal/domain/order"
	"github.com/skyvolt/storefront/internal/observability"
	"github.com/skyvolt/storefront/internal/observability/logctx"
)

const useCaseAdminStatus = "order.admin_set_status"

// AdminService is the back-office side of the order lifecycle. Unlike owner
// cancellation it may move an order between any two statuses and never
// touches inventory reservations.
type AdminService struct {
	orderRepo domain.Repository
	now       func() time.Time

	log        observability.Logger
	reqCounter observability.Counter
}

func NewAdminService(orderRepo domain.Repository, tel observability.Telemetry) *AdminService {
	if tel == nil {
		tel = observability.Nop()
	}
	return &AdminService{
		orderRepo:  orderRepo,
		now:        time.Now,
		log:        tel.Logger().With(observability.F("service", orderService)),
		reqCounter: tel.Counter(observability.MUsecaseRequests),
	}
}

type SetStatusInput struct {
	OrderID        string
	Status         string
	TrackingNumber *string
}

// SetStatus applies an operator-chosen status. Shipment and delivery
// timestamps are stamped on first entry into those statuses.
func (s *AdminService) SetStatus(ctx context.Context, cmd SetStatusInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseAdminStatus),
		observability.F("order_id", cmd.OrderID),
	)
	outcome := "success"
	defer func() {
		if s.reqCounter != nil {
			s.reqCounter.Add(1,
				observability.L("use_case", useCaseAdminStatus),
				observability.L("outcome", outcome),
			)
		}
	}()

	if cmd.OrderID == "" {
		outcome = "error"
		return nil, newValidation("order id is required")
	}
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		outcome = "error"
		return nil, err
	}

	entity, err := s.orderRepo.GetAny(ctx, cmd.OrderID)
	if err != nil {
		outcome = "error"
		return nil, err
	}

	previous := entity.Status
	if err := entity.ApplyStatus(domain.StatusUpdate{Status: status, TrackingNumber: cmd.TrackingNumber}, s.now()); err != nil {
		outcome = "error"
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, entity); err != nil {
		outcome = "error"
		return nil, err
	}

	logger.Info("order_status_updated",
		observability.F("order_number", entity.Number),
		observability.F("from", string(previous)),
		observability.F("to", string(status)),
	)
	return entity, nil
}
