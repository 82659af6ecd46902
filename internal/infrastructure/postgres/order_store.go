package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/domain/order"
)

type OrderStore struct {
	db *sqlx.DB
}

func NewOrderStore(db *sqlx.DB) *OrderStore {
	return &OrderStore{db: db}
}

type orderRow struct {
	ID             string         `db:"id"`
	Number         string         `db:"order_number"`
	UserID         string         `db:"user_id"`
	AddressID      string         `db:"address_id"`
	Subtotal       float64        `db:"subtotal"`
	Tax            float64        `db:"tax"`
	Shipping       float64        `db:"shipping"`
	Total          float64        `db:"total"`
	Status         string         `db:"status"`
	PaymentStatus  string         `db:"payment_status"`
	Notes          sql.NullString `db:"notes"`
	TrackingNumber sql.NullString `db:"tracking_number"`
	ShippedAt      *time.Time     `db:"shipped_at"`
	DeliveredAt    *time.Time     `db:"delivered_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type orderItemRow struct {
	ID          int64          `db:"id"`
	OrderID     string         `db:"order_id"`
	ProductID   string         `db:"product_id"`
	ProductName string         `db:"product_name"`
	Price       float64        `db:"price"`
	Quantity    int            `db:"quantity"`
	Total       float64        `db:"total"`
	Image       sql.NullString `db:"product_image"`
}

const orderColumns = `id, order_number, user_id, address_id, subtotal, tax, shipping, total,
	status, payment_status, notes, tracking_number, shipped_at, delivered_at, created_at, updated_at`

func (s *OrderStore) Get(ctx context.Context, userID, id string) (*order.Order, error) {
	return s.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
}

func (s *OrderStore) GetAny(ctx context.Context, id string) (*order.Order, error) {
	return s.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (s *OrderStore) get(ctx context.Context, query string, args ...any) (*order.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order store: get: %w", err)
	}

	o := fromOrderRow(row)
	items, err := s.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *OrderStore) List(ctx context.Context, userID string) ([]*order.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("order store: list: %w", err)
	}

	orders := make([]*order.Order, 0, len(rows))
	for _, row := range rows {
		o := fromOrderRow(row)
		items, err := s.items(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *OrderStore) Update(ctx context.Context, o *order.Order) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, payment_status = $2, tracking_number = $3,
		    shipped_at = $4, delivered_at = $5, updated_at = $6
		WHERE id = $7`,
		o.Status, o.PaymentStatus, nullable(o.TrackingNumber), o.ShippedAt, o.DeliveredAt, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("order store: update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (s *OrderStore) items(ctx context.Context, orderID string) ([]order.Item, error) {
	var rows []orderItemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, order_id, product_id, product_name, price, quantity, total, product_image
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order store: items: %w", err)
	}

	items := make([]order.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, order.Item{
			ID:          r.ID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			UnitPrice:   r.Price,
			Quantity:    r.Quantity,
			Total:       r.Total,
			ImagePath:   r.Image.String,
		})
	}
	return items, nil
}

func fromOrderRow(r orderRow) *order.Order {
	return &order.Order{
		ID:             r.ID,
		Number:         r.Number,
		UserID:         r.UserID,
		AddressID:      r.AddressID,
		Subtotal:       r.Subtotal,
		Tax:            r.Tax,
		Shipping:       r.Shipping,
		Total:          r.Total,
		Status:         order.Status(r.Status),
		PaymentStatus:  order.PaymentStatus(r.PaymentStatus),
		Notes:          r.Notes.String,
		TrackingNumber: r.TrackingNumber.String,
		ShippedAt:      r.ShippedAt,
		DeliveredAt:    r.DeliveredAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
