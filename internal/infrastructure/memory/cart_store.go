package memory

import (
	"context"
	"sync"

	domain "github.com/skyvolt/storefront/internal/domain/cart"
)

type CartStore struct {
	mu    sync.RWMutex
	carts map[string]domain.Snapshot
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]domain.Snapshot)}
}

func (s *CartStore) SetLines(userID string, lines []domain.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append(domain.Snapshot(nil), lines...)
}

func (s *CartStore) Snapshot(ctx context.Context, userID string) (domain.Snapshot, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	lines, ok := s.carts[userID]
	if !ok || len(lines) == 0 {
		return nil, domain.ErrEmpty
	}
	return append(domain.Snapshot(nil), lines...), nil
}

func (s *CartStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

func (s *CartStore) Len(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts[userID])
}
