package memory

import (
	"context"
	"sync"

	domain "github.com/skyvolt/storefront/internal/domain/inventory"
)

type InventoryStore struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{items: make(map[string]*domain.Item)}
}

func (s *InventoryStore) Seed(item *domain.Item) {
	if item == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ProductID] = cloneItem(item)
}

func (s *InventoryStore) Get(ctx context.Context, productID string) (*domain.Item, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (s *InventoryStore) Reserve(ctx context.Context, productID string, quantity int) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return item.Reserve(quantity)
}

func (s *InventoryStore) Release(ctx context.Context, productID string, quantity int) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return item.Release(quantity)
}

func cloneItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}
