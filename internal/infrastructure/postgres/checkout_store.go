package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/domain/order"
)

// CheckoutStore executes order placement as a single atomic unit of work:
// order header, line snapshots, reservation increments and cart deletion
// become visible together or not at all.
type CheckoutStore struct {
	db *sqlx.DB
}

func NewCheckoutStore(db *sqlx.DB) *CheckoutStore {
	return &CheckoutStore{db: db}
}

type stockRow struct {
	IsActive bool   `db:"is_active"`
	Name     string `db:"name"`
	Quantity int    `db:"quantity"`
	Reserved int    `db:"reserved_quantity"`
}

func (s *CheckoutStore) PlaceOrder(ctx context.Context, o *order.Order) error {
	return WithinTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		// Lock every inventory row up front so the availability check and the
		// reservation increment are serialized per product. Concurrent
		// checkouts of the same product queue behind the row lock instead of
		// both passing a stale read.
		for _, item := range o.Items {
			var row stockRow
			err := tx.GetContext(ctx, &row, `
				SELECT p.is_active, p.name, i.quantity, i.reserved_quantity
				FROM products p
				JOIN inventory i ON i.product_id = p.id
				WHERE p.id = $1
				FOR UPDATE OF i`, item.ProductID)
			if errors.Is(err, sql.ErrNoRows) {
				return &order.ProductUnavailableError{ProductName: item.ProductName}
			}
			if err != nil {
				return fmt.Errorf("checkout: lock stock %s: %w", item.ProductID, err)
			}
			if !row.IsActive {
				return &order.ProductUnavailableError{ProductName: row.Name}
			}
			if row.Quantity-row.Reserved < item.Quantity {
				return &order.InsufficientStockError{ProductName: row.Name}
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, order_number, user_id, address_id, subtotal, tax, shipping, total,
			                    status, payment_status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			o.ID, o.Number, o.UserID, o.AddressID, o.Subtotal, o.Tax, o.Shipping, o.Total,
			o.Status, o.PaymentStatus, o.Notes, o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("checkout: insert order: %w", err)
		}

		for _, item := range o.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, price, quantity, total, product_image)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				o.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.Total, item.ImagePath,
			); err != nil {
				return fmt.Errorf("checkout: insert order item: %w", err)
			}

			// Conditional increment as a second guard behind the row lock.
			res, err := tx.ExecContext(ctx, `
				UPDATE inventory
				SET reserved_quantity = reserved_quantity + $1, updated_at = NOW()
				WHERE product_id = $2 AND quantity - reserved_quantity >= $1`,
				item.Quantity, item.ProductID,
			)
			if err != nil {
				return fmt.Errorf("checkout: reserve stock: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("checkout: reserve stock: %w", err)
			} else if n == 0 {
				return &order.InsufficientStockError{ProductName: item.ProductName}
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID); err != nil {
			return fmt.Errorf("checkout: clear cart: %w", err)
		}
		return nil
	})
}
