package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound       = errors.New("order: not found")
	ErrEmptyCart      = errors.New("order: cart is empty")
	ErrNotCancellable = errors.New("order: cannot be cancelled at this stage")
	ErrInvalidStatus  = errors.New("order: unknown status")
)

// ProductUnavailableError aborts order placement when a cart line references a
// product that is no longer active.
type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("order: product %q is no longer available", e.ProductName)
}

// InsufficientStockError aborts order placement when available stock cannot
// cover the requested quantity.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("order: insufficient stock for %q", e.ProductName)
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Statuses enumerates every status the administrative surface may assign.
var Statuses = []Status{
	StatusPending, StatusConfirmed, StatusProcessing,
	StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Item is a line snapshot: product attributes copied at order time so later
// catalog edits cannot change historical orders.
type Item struct {
	ID          int64
	ProductID   string
	ProductName string
	UnitPrice   float64
	Quantity    int
	Total       float64
	ImagePath   string
}

// Order is immutable as a business record once placed; only status
// transitions, payment settlement, and cancellation mutate it.
type Order struct {
	ID             string
	Number         string
	UserID         string
	AddressID      string
	Subtotal       float64
	Tax            float64
	Shipping       float64
	Total          float64
	Status         Status
	PaymentStatus  PaymentStatus
	Notes          string
	TrackingNumber string
	Items          []Item
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(id, number, userID, addressID, notes string, pricing Pricing, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	now := time.Now().UTC()
	return &Order{
		ID:            id,
		Number:        number,
		UserID:        userID,
		AddressID:     addressID,
		Subtotal:      pricing.Subtotal,
		Tax:           pricing.Tax,
		Shipping:      pricing.Shipping,
		Total:         pricing.Total,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Notes:         notes,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Cancellable reports whether the owner may still cancel the order.
func (o *Order) Cancellable() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

func (o *Order) Cancel() error {
	if !o.Cancellable() {
		return ErrNotCancellable
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}

// MarkPaid records successful payment settlement.
func (o *Order) MarkPaid() {
	o.PaymentStatus = PaymentPaid
	o.Status = StatusConfirmed
	o.touch()
}

// StatusUpdate enumerates the fields the administrative surface may change.
type StatusUpdate struct {
	Status         Status
	TrackingNumber *string
}

// ApplyStatus performs an administrative status change. The admin surface is
// intentionally permissive: any enumerated status is accepted.
func (o *Order) ApplyStatus(u StatusUpdate, now time.Time) error {
	if _, err := ParseStatus(string(u.Status)); err != nil {
		return err
	}
	o.Status = u.Status
	if u.TrackingNumber != nil {
		o.TrackingNumber = *u.TrackingNumber
	}
	switch u.Status {
	case StatusShipped:
		t := now.UTC()
		o.ShippedAt = &t
	case StatusDelivered:
		t := now.UTC()
		o.DeliveredAt = &t
	}
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	if o.ShippedAt != nil {
		t := *o.ShippedAt
		clone.ShippedAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		clone.DeliveredAt = &t
	}
	return &clone
}
