package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/skyvolt/storefront/internal/domain/otp"
)

type OtpStore struct {
	mu    sync.Mutex
	codes map[string]*domain.Code
}

func NewOtpStore() *OtpStore {
	return &OtpStore{codes: make(map[string]*domain.Code)}
}

func (s *OtpStore) Create(ctx context.Context, c *domain.Code) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return fmt.Errorf("otp store: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.ID] = cloneCode(c)
	return nil
}

func (s *OtpStore) InvalidateActive(ctx context.Context, email string, purpose domain.Purpose) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.codes {
		if c.Email == email && c.Purpose == purpose && !c.Used {
			c.Used = true
		}
	}
	return nil
}

func (s *OtpStore) FindActive(ctx context.Context, email, code string, purpose domain.Purpose) (*domain.Code, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.Code
	for _, c := range s.codes {
		if c.Email != email || c.Code != code || c.Purpose != purpose || c.Used {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return cloneCode(latest), nil
}

func (s *OtpStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	c.Attempts++
	return c.Attempts, nil
}

func (s *OtpStore) MarkUsed(ctx context.Context, id string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Used = true
	return nil
}

func cloneCode(c *domain.Code) *domain.Code {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
