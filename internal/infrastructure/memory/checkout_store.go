package memory

import (
	"context"
	"errors"
	"sync"

	domaininventory "github.com/skyvolt/storefront/internal/domain/inventory"
	domain "github.com/skyvolt/storefront/internal/domain/order"
)

// CheckoutStore composes the in-memory stores into the atomic placement
// unit. It mimics transaction rollback by releasing every reservation it made
// when a later step fails, so a failed placement leaves no residue.
type CheckoutStore struct {
	mu        sync.Mutex
	orders    *OrderStore
	inventory *InventoryStore
	carts     *CartStore
	inactive  map[string]bool

	// CommitHook, when set, runs after reservations and before the order is
	// inserted. Returning an error simulates a commit failure.
	CommitHook func() error
}

func NewCheckoutStore(orders *OrderStore, inventory *InventoryStore, carts *CartStore) *CheckoutStore {
	return &CheckoutStore{
		orders:    orders,
		inventory: inventory,
		carts:     carts,
		inactive:  make(map[string]bool),
	}
}

// Deactivate marks a product inactive for subsequent placements.
func (s *CheckoutStore) Deactivate(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactive[productID] = true
}

func (s *CheckoutStore) PlaceOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range o.Items {
		if s.inactive[item.ProductID] {
			return &domain.ProductUnavailableError{ProductName: item.ProductName}
		}
	}

	reserved := make([]domain.Item, 0, len(o.Items))
	rollback := func() {
		for _, item := range reserved {
			_ = s.inventory.Release(ctx, item.ProductID, item.Quantity)
		}
	}

	for _, item := range o.Items {
		if err := s.inventory.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			rollback()
			if errors.Is(err, domaininventory.ErrInsufficientStock) || errors.Is(err, domaininventory.ErrNotFound) {
				return &domain.InsufficientStockError{ProductName: item.ProductName}
			}
			return err
		}
		reserved = append(reserved, item)
	}

	if s.CommitHook != nil {
		if err := s.CommitHook(); err != nil {
			rollback()
			return err
		}
	}

	if err := s.orders.Insert(ctx, o); err != nil {
		rollback()
		return err
	}
	s.carts.Clear(o.UserID)
	return nil
}
