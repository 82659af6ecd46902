package memory

import (
	"context"
	"sync"

	apporder "github.com/skyvolt/storefront/internal/application/order"
)

type AddressStore struct {
	mu        sync.RWMutex
	addresses map[string]*apporder.Address
}

func NewAddressStore() *AddressStore {
	return &AddressStore{addresses: make(map[string]*apporder.Address)}
}

func (s *AddressStore) Seed(a *apporder.Address) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *a
	s.addresses[a.ID] = &clone
}

func (s *AddressStore) Get(ctx context.Context, userID, addressID string) (*apporder.Address, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, apporder.ErrAddressNotFound
	}
	clone := *a
	return &clone, nil
}
