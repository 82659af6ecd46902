package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	apporder "github.com/skyvolt/storefront/internal/application/order"
)

// AddressStore is the read-only view of the address book consumed by order
// placement; address CRUD lives outside this core.
type AddressStore struct {
	db *sqlx.DB
}

func NewAddressStore(db *sqlx.DB) *AddressStore {
	return &AddressStore{db: db}
}

type addressRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Name       string         `db:"name"`
	Line1      string         `db:"line1"`
	Line2      sql.NullString `db:"line2"`
	City       string         `db:"city"`
	State      string         `db:"state"`
	PostalCode string         `db:"postal_code"`
	Phone      string         `db:"phone"`
}

func (s *AddressStore) Get(ctx context.Context, userID, addressID string) (*apporder.Address, error) {
	var row addressRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, line1, line2, city, state, postal_code, phone
		FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apporder.ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("address store: get: %w", err)
	}
	return &apporder.Address{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		Line1:      row.Line1,
		Line2:      row.Line2.String,
		City:       row.City,
		State:      row.State,
		PostalCode: row.PostalCode,
		Phone:      row.Phone,
	}, nil
}
