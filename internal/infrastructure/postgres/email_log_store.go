package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/skyvolt/storefront/internal/application/notification"
)

// EmailLogStore records every notification dispatch attempt for
// observability; delivery itself is best-effort.
type EmailLogStore struct {
	db *sqlx.DB
}

func NewEmailLogStore(db *sqlx.DB) *EmailLogStore {
	return &EmailLogStore{db: db}
}

func (s *EmailLogStore) Record(ctx context.Context, e notification.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_logs (to_email, subject, type, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW())`,
		e.To, e.Subject, e.Kind, e.Status, e.Error)
	if err != nil {
		return fmt.Errorf("email log store: record: %w", err)
	}
	return nil
}
