package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/domain/otp"
)

type OtpStore struct {
	db *sqlx.DB
}

func NewOtpStore(db *sqlx.DB) *OtpStore {
	return &OtpStore{db: db}
}

type otpRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	Purpose   string    `db:"purpose"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"is_used"`
	Attempts  int       `db:"attempts"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *OtpStore) Create(ctx context.Context, c *otp.Code) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otps (id, email, code, purpose, expires_at, is_used, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Email, c.Code, c.Purpose, c.ExpiresAt, c.Used, c.Attempts, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("otp store: create: %w", err)
	}
	return nil
}

func (s *OtpStore) InvalidateActive(ctx context.Context, email string, purpose otp.Purpose) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE otps SET is_used = TRUE WHERE email = $1 AND purpose = $2 AND is_used = FALSE`,
		email, purpose)
	if err != nil {
		return fmt.Errorf("otp store: invalidate: %w", err)
	}
	return nil
}

func (s *OtpStore) FindActive(ctx context.Context, email, code string, purpose otp.Purpose) (*otp.Code, error) {
	var row otpRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, code, purpose, expires_at, is_used, attempts, created_at
		FROM otps
		WHERE email = $1 AND code = $2 AND purpose = $3 AND is_used = FALSE
		ORDER BY created_at DESC
		LIMIT 1`, email, code, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, otp.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("otp store: find: %w", err)
	}
	return &otp.Code{
		ID:        row.ID,
		Email:     row.Email,
		Code:      row.Code,
		Purpose:   otp.Purpose(row.Purpose),
		ExpiresAt: row.ExpiresAt,
		Used:      row.Used,
		Attempts:  row.Attempts,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *OtpStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := s.db.GetContext(ctx, &attempts,
		`UPDATE otps SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, otp.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("otp store: increment attempts: %w", err)
	}
	return attempts, nil
}

func (s *OtpStore) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE otps SET is_used = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("otp store: mark used: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return otp.ErrNotFound
	}
	return nil
}
