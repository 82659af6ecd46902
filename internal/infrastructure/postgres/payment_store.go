package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/domain/order"
	"github.com/skyvolt/storefront/internal/domain/payment"
)

type PaymentStore struct {
	db *sqlx.DB
}

func NewPaymentStore(db *sqlx.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

type paymentRow struct {
	ID               string         `db:"id"`
	OrderID          string         `db:"order_id"`
	GatewayOrderID   string         `db:"gateway_order_id"`
	GatewayPaymentID sql.NullString `db:"gateway_payment_id"`
	Signature        sql.NullString `db:"signature"`
	Amount           float64        `db:"amount"`
	Currency         string         `db:"currency"`
	Status           string         `db:"status"`
	FailureReason    sql.NullString `db:"failure_reason"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// Upsert is keyed by order_id: requesting a new intent for an unpaid order
// replaces the pending record instead of creating a second one.
func (s *PaymentStore) Upsert(ctx context.Context, p *payment.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, gateway_order_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO UPDATE
		SET gateway_order_id = EXCLUDED.gateway_order_id,
		    amount = EXCLUDED.amount,
		    currency = EXCLUDED.currency,
		    status = EXCLUDED.status,
		    gateway_payment_id = NULL,
		    signature = NULL,
		    failure_reason = NULL,
		    updated_at = EXCLUDED.updated_at`,
		p.ID, p.OrderID, p.GatewayOrderID, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("payment store: upsert: %w", err)
	}
	return nil
}

func (s *PaymentStore) GetByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	return s.get(ctx, `WHERE order_id = $1`, orderID)
}

func (s *PaymentStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*payment.Payment, error) {
	return s.get(ctx, `WHERE gateway_order_id = $1`, gatewayOrderID)
}

func (s *PaymentStore) get(ctx context.Context, where string, arg any) (*payment.Payment, error) {
	var row paymentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, order_id, gateway_order_id, gateway_payment_id, signature,
		       amount, currency, status, failure_reason, created_at, updated_at
		FROM payments `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payment store: get: %w", err)
	}
	return &payment.Payment{
		ID:               row.ID,
		OrderID:          row.OrderID,
		GatewayOrderID:   row.GatewayOrderID,
		GatewayPaymentID: row.GatewayPaymentID.String,
		Signature:        row.Signature.String,
		Amount:           row.Amount,
		Currency:         row.Currency,
		Status:           payment.Status(row.Status),
		FailureReason:    row.FailureReason.String,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// MarkSucceeded persists the settled payment and flips the owning order to
// paid/confirmed in one transaction.
func (s *PaymentStore) MarkSucceeded(ctx context.Context, p *payment.Payment) error {
	return WithinTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE payments
			SET gateway_payment_id = $1, signature = $2, status = $3, failure_reason = NULL, updated_at = $4
			WHERE id = $5`,
			p.GatewayPaymentID, p.Signature, p.Status, p.UpdatedAt, p.ID); err != nil {
			return fmt.Errorf("payment store: mark succeeded: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET payment_status = $1, status = $2, updated_at = NOW() WHERE id = $3`,
			order.PaymentPaid, order.StatusConfirmed, p.OrderID); err != nil {
			return fmt.Errorf("payment store: confirm order: %w", err)
		}
		return nil
	})
}

func (s *PaymentStore) MarkFailed(ctx context.Context, p *payment.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, failure_reason = $2, updated_at = $3 WHERE id = $4`,
		p.Status, p.FailureReason, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("payment store: mark failed: %w", err)
	}
	return nil
}
