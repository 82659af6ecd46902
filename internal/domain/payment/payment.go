package payment

import (
	"errors"
	"time"
)

var (
	// ErrNotFound during verification is an integrity fault, never a silent
	// negative outcome.
	ErrNotFound    = errors.New("payment: record not found")
	ErrAlreadyPaid = errors.New("payment: order already paid")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// Payment is one-to-one with an order and records the gateway-side
// identifiers of the settlement attempt.
type Payment struct {
	ID               string
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Amount           float64
	Currency         string
	Status           Status
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewIntent(id, orderID, gatewayOrderID string, amount float64, currency string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:             id,
		OrderID:        orderID,
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Succeed records a verified settlement.
func (p *Payment) Succeed(gatewayPaymentID, signature string) {
	p.GatewayPaymentID = gatewayPaymentID
	p.Signature = signature
	p.Status = StatusSuccess
	p.FailureReason = ""
	p.touch()
}

// Fail is terminal for this attempt; a new intent must be created to retry.
func (p *Payment) Fail(reason string) {
	p.Status = StatusFailed
	p.FailureReason = reason
	p.touch()
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now().UTC()
}
