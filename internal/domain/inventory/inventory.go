package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrReservationUnderflow signals a consistency fault: a release was
	// attempted for more units than are currently reserved. Never clamped.
	ErrReservationUnderflow = errors.New("inventory: reserved quantity would drop below zero")
)

// Item tracks physical stock and the share earmarked for unsettled orders.
// Available stock is always quantity minus reserved.
type Item struct {
	ProductID         string
	Quantity          int
	Reserved          int
	LowStockThreshold int
	UpdatedAt         time.Time
}

func NewItem(productID string, quantity, lowStockThreshold int) (*Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: lowStockThreshold,
		UpdatedAt:         time.Now().UTC(),
	}, nil
}

func (i *Item) Available() int {
	return i.Quantity - i.Reserved
}

// IsLowStock is advisory only, not an invariant.
func (i *Item) IsLowStock() bool {
	return i.Available() <= i.LowStockThreshold
}

// Reserve earmarks stock for an unsettled order without reducing physical
// quantity.
func (i *Item) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.Available() {
		return ErrInsufficientStock
	}
	i.Reserved += quantity
	i.touch()
	return nil
}

// Release returns earmarked stock after a cancellation.
func (i *Item) Release(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.Reserved {
		return ErrReservationUnderflow
	}
	i.Reserved -= quantity
	i.touch()
	return nil
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
