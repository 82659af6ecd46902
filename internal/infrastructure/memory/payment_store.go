package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/skyvolt/storefront/internal/domain/payment"
)

// PaymentStore keeps one payment per order. MarkSucceeded flips the owning
// order to paid/confirmed through the order store, mirroring the single unit
// of work the SQL store provides with a transaction.
type PaymentStore struct {
	mu        sync.RWMutex
	byOrder   map[string]*domain.Payment
	byGateway map[string]string
	orders    *OrderStore
}

func NewPaymentStore(orders *OrderStore) *PaymentStore {
	return &PaymentStore{
		byOrder:   make(map[string]*domain.Payment),
		byGateway: make(map[string]string),
		orders:    orders,
	}
}

func (s *PaymentStore) Upsert(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.OrderID == "" {
		return fmt.Errorf("payment store: order id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byOrder[p.OrderID]; ok {
		delete(s.byGateway, prev.GatewayOrderID)
	}
	s.byOrder[p.OrderID] = clonePayment(p)
	s.byGateway[p.GatewayOrderID] = p.OrderID
	return nil
}

func (s *PaymentStore) GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *PaymentStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	orderID, ok := s.byGateway[gatewayOrderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(s.byOrder[orderID]), nil
}

func (s *PaymentStore) MarkSucceeded(ctx context.Context, p *domain.Payment) error {
	s.mu.Lock()
	if _, ok := s.byOrder[p.OrderID]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.byOrder[p.OrderID] = clonePayment(p)
	s.mu.Unlock()

	ord, err := s.orders.GetAny(ctx, p.OrderID)
	if err != nil {
		return err
	}
	ord.MarkPaid()
	return s.orders.Update(ctx, ord)
}

func (s *PaymentStore) MarkFailed(ctx context.Context, p *domain.Payment) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrder[p.OrderID]; !ok {
		return domain.ErrNotFound
	}
	s.byOrder[p.OrderID] = clonePayment(p)
	return nil
}

func clonePayment(p *domain.Payment) *domain.Payment {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
