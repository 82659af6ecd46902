package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/skyvolt/storefront/internal/domain/order"
)

// OrderStore is the in-memory order repository used by tests and local runs.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*domain.Order)}
}

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("order store: duplicate id %q", o.ID)
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

// Get enforces ownership: an order belonging to another user reads as absent.
func (s *OrderStore) Get(ctx context.Context, userID, id string) (*domain.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok || o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *OrderStore) GetAny(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *OrderStore) List(ctx context.Context, userID string) ([]*domain.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *OrderStore) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; !exists {
		return domain.ErrNotFound
	}
	s.orders[o.ID] = o.Clone()
	return nil
}
