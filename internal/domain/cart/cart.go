package cart

import (
	"context"
	"errors"
)

var ErrEmpty = errors.New("cart: empty")

const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Line is one (user, product) selection. UnitPrice is frozen at add time and
// is not the product's live price.
type Line struct {
	ProductID     string
	ProductName   string
	ProductActive bool
	ImagePath     string
	Quantity      int
	UnitPrice     float64
}

func (l Line) Total() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Snapshot is the read-only view of a user's current selections consumed by
// order placement.
type Snapshot []Line

func (s Snapshot) Subtotal() float64 {
	var sum float64
	for _, l := range s {
		sum += l.Total()
	}
	return sum
}

type Repository interface {
	// Snapshot returns the user's cart lines joined with current product
	// name, active flag and primary image. Returns ErrEmpty when no lines
	// exist.
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
}
