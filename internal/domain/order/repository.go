package order

import "context"

type Repository interface {
	// Get returns an order owned by userID, with its items.
	Get(ctx context.Context, userID, id string) (*Order, error)
	// GetAny is the unscoped lookup used by the admin surface and settlement.
	GetAny(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, userID string) ([]*Order, error)
	// Update persists status, payment status, timestamps and tracking number.
	// The priced header and the line snapshots are never rewritten.
	Update(ctx context.Context, o *Order) error
}
