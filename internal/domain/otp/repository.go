package otp

import "context"

type Repository interface {
	Create(ctx context.Context, c *Code) error
	// InvalidateActive marks every unconsumed code for (email, purpose) as
	// used so that only one code is ever live.
	InvalidateActive(ctx context.Context, email string, purpose Purpose) error
	// FindActive returns the most recent unconsumed code matching
	// (email, code, purpose), or ErrNotFound.
	FindActive(ctx context.Context, email, code string, purpose Purpose) (*Code, error)
	// IncrementAttempts bumps the attempt counter and returns the new value.
	// It is called on every verification against a matched record.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkUsed(ctx context.Context, id string) error
}
