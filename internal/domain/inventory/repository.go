package inventory

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Item, error)
	// Reserve atomically checks available stock and increments the reserved
	// quantity. The check and the increment must be serialized per product;
	// concurrent checkouts must not oversell.
	Reserve(ctx context.Context, productID string, quantity int) error
	// Release decrements the reserved quantity. Driving it below zero is a
	// consistency fault reported as ErrReservationUnderflow.
	Release(ctx context.Context, productID string, quantity int) error
}
