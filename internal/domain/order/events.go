package order

import "time"

// PlacedEvent is emitted after an order has been committed. Consumers send the
// confirmation notification; the order itself is already durable business fact.
type PlacedEvent struct {
	OrderID     string
	OrderNumber string
	UserID      string
	Email       string
	Total       float64
	ItemCount   int
	OccurredAt  time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order, email string) PlacedEvent {
	return PlacedEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Email:       email,
		Total:       o.Total,
		ItemCount:   len(o.Items),
		OccurredAt:  time.Now().UTC(),
	}
}

// CancelledEvent is emitted after an owner-initiated cancellation.
type CancelledEvent struct {
	OrderID     string
	OrderNumber string
	UserID      string
	OccurredAt  time.Time
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(o *Order) CancelledEvent {
	return CancelledEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		OccurredAt:  time.Now().UTC(),
	}
}
