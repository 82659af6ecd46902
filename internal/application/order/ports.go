package order

import (
	"context"
	"errors"

	"github.com/skyvolt/storefront/internal/domain/order"
)

var ErrAddressNotFound = errors.New("order: address not found")

type IDGenerator interface {
	NewID() string
	OrderNumber() string
}

// CheckoutStore executes steps 1-9 of order placement as one atomic unit:
// validation re-checks, order header, line snapshots, reservation increments
// and cart deletion all commit together or roll back together.
type CheckoutStore interface {
	PlaceOrder(ctx context.Context, o *order.Order) error
}

// Address is the read-only shape served by the external address book.
type Address struct {
	ID         string
	UserID     string
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Phone      string
}

type AddressBook interface {
	// Get returns the address only when it belongs to userID.
	Get(ctx context.Context, userID, addressID string) (*Address, error)
}
