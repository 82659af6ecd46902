package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/domain/inventory"
)

type InventoryStore struct {
	db *sqlx.DB
}

func NewInventoryStore(db *sqlx.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

type inventoryRow struct {
	ProductID         string    `db:"product_id"`
	Quantity          int       `db:"quantity"`
	Reserved          int       `db:"reserved_quantity"`
	LowStockThreshold int       `db:"low_stock_threshold"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (s *InventoryStore) Get(ctx context.Context, productID string) (*inventory.Item, error) {
	var row inventoryRow
	err := s.db.GetContext(ctx, &row, `
		SELECT product_id, quantity, reserved_quantity, low_stock_threshold, updated_at
		FROM inventory WHERE product_id = $1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inventory store: get: %w", err)
	}
	return &inventory.Item{
		ProductID:         row.ProductID,
		Quantity:          row.Quantity,
		Reserved:          row.Reserved,
		LowStockThreshold: row.LowStockThreshold,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

// Reserve is an atomic conditional increment: the availability check and the
// update are one statement, so concurrent reservations cannot oversell.
func (s *InventoryStore) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET reserved_quantity = reserved_quantity + $1, updated_at = NOW()
		WHERE product_id = $2 AND quantity - reserved_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("inventory store: reserve: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inventory store: reserve: %w", err)
	}
	if n == 0 {
		if exists, eerr := s.exists(ctx, productID); eerr == nil && !exists {
			return inventory.ErrNotFound
		}
		return inventory.ErrInsufficientStock
	}
	return nil
}

// Release refuses to drive reserved_quantity below zero; that is a
// consistency fault, not something to clamp away.
func (s *InventoryStore) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET reserved_quantity = reserved_quantity - $1, updated_at = NOW()
		WHERE product_id = $2 AND reserved_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("inventory store: release: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inventory store: release: %w", err)
	}
	if n == 0 {
		if exists, eerr := s.exists(ctx, productID); eerr == nil && !exists {
			return inventory.ErrNotFound
		}
		return inventory.ErrReservationUnderflow
	}
	return nil
}

func (s *InventoryStore) exists(ctx context.Context, productID string) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM inventory WHERE product_id = $1)`, productID)
	return ok, err
}
