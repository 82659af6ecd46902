package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/domain/cart"
)

type CartStore struct {
	db *sqlx.DB
}

func NewCartStore(db *sqlx.DB) *CartStore {
	return &CartStore{db: db}
}

type cartRow struct {
	ProductID   string         `db:"product_id"`
	ProductName string         `db:"name"`
	IsActive    bool           `db:"is_active"`
	ImagePath   sql.NullString `db:"image_path"`
	Quantity    int            `db:"quantity"`
	Price       float64        `db:"price"`
}

// Snapshot joins cart lines with current product name, active flag and image.
// The price column is the one frozen at add time, not the live product price.
func (s *CartStore) Snapshot(ctx context.Context, userID string) (cart.Snapshot, error) {
	var rows []cartRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT c.product_id, p.name, p.is_active, p.image_path, c.quantity, c.price
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("cart store: snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, cart.ErrEmpty
	}

	snapshot := make(cart.Snapshot, 0, len(rows))
	for _, r := range rows {
		snapshot = append(snapshot, cart.Line{
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			ProductActive: r.IsActive,
			ImagePath:     r.ImagePath.String,
			Quantity:      r.Quantity,
			UnitPrice:     r.Price,
		})
	}
	return snapshot, nil
}
