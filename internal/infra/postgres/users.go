package postgres

import (
	"context"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, deleted_at, created_at, updated_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.guard(func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
		)
		return mapPgError(err, "user", user.Username)
	})
}

// GetUserByID fetches a user by id, soft-deleted ones included (the ledger
// still references them); callers check IsDeleted where it matters.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user *domain.User
	err := s.guard(func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
		u, err := scanUser(row)
		if err != nil {
			return mapPgError(err, "user", id.String())
		}
		user = u
		return nil
	})
	return user, err
}

// GetUserByUsername fetches a live user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := s.guard(func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1 AND deleted_at IS NULL`, username)
		u, err := scanUser(row)
		if err != nil {
			return mapPgError(err, "user", username)
		}
		user = u
		return nil
	})
	return user, err
}

// SoftDeleteUser marks the user deleted. The row is never removed.
func (s *Store) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.guard(func() error {
		tag, err := s.pool.Exec(ctx,
			`UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
			id, at,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "user", ID: id.String()}
		}
		return nil
	})
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		deletedAt *time.Time
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &deletedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if deletedAt != nil {
		u.Deleted = &domain.Deletion{At: *deletedAt}
	}
	return &u, nil
}

// ============================================================
// Refresh tokens
// ============================================================

// StoreRefreshToken persists a hashed refresh token.
func (s *Store) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return s.guard(func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
			uuid.New(), userID, tokenHash, expiresAt,
		)
		return mapPgError(err, "refresh_token", userID.String())
	})
}

// GetRefreshToken looks up an unrevoked refresh token by its hash.
func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var token *domain.RefreshToken
	err := s.guard(func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT id, user_id, token_hash, expires_at, revoked
			 FROM refresh_tokens WHERE token_hash = $1 AND NOT revoked`, tokenHash)
		var t domain.RefreshToken
		if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked); err != nil {
			return mapPgError(err, "refresh_token", "")
		}
		token = &t
		return nil
	})
	return token, err
}

// RevokeRefreshToken revokes a single refresh token (rotation).
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return s.guard(func() error {
		_, err := s.pool.Exec(ctx,
			`UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
		return err
	})
}

// RevokeAllRefreshTokens revokes every token of a user (logout everywhere).
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return s.guard(func() error {
		_, err := s.pool.Exec(ctx,
			`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1`, userID)
		return err
	})
}
