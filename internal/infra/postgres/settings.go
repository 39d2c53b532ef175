package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetSettingsDocument returns the raw settings document for a user. A user
// without a document yet is reported as not-found=false, not an error; the
// settings service lazily treats that as an empty document.
func (s *Store) GetSettingsDocument(ctx context.Context, userID uuid.UUID) ([]byte, bool, error) {
	var (
		doc   []byte
		found bool
	)
	err := s.guard(func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT document FROM user_settings WHERE user_id = $1`, userID)
		if err := row.Scan(&doc); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	return doc, found, err
}

// SaveSettingsDocument replaces the whole document in a single upsert, which
// is what makes settings mutations atomic from the caller's point of view.
func (s *Store) SaveSettingsDocument(ctx context.Context, userID uuid.UUID, doc []byte) error {
	return s.guard(func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO user_settings (user_id, document, updated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
			userID, doc, time.Now().UTC(),
		)
		return err
	})
}
