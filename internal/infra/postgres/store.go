// Package postgres provides the pgx-backed persistence layer for the wallet.
// One Store implements every port; files split per concern (users, accounts,
// transactions, settings).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/infra/resilience"
	"github.com/vankuijk/walletapp-go/internal/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Ensure Store satisfies the aggregate port at compile time.
var _ port.WalletStore = (*Store)(nil)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for the wallet.
type Store struct {
	pool    *pgxpool.Pool
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New connects to Postgres, runs the schema bootstrap and returns the store.
// Initial connectivity is retried with backoff; at runtime the circuit
// breaker guards the pool instead.
func New(ctx context.Context, databaseURL string, cfg resilience.Config, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	pgCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	var pool *pgxpool.Pool
	err = resilience.RetryWithBackoff(ctx, cfg, func() error {
		p, err := pgxpool.NewWithConfig(ctx, pgCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool, cb: cb, metrics: metrics, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports database reachability, used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			token_hash TEXT UNIQUE NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			is_main BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS accounts_user_idx ON accounts (user_id);`,
		// Components share the account id as their own key: 1:1 by shared
		// key, presence of a row means the feature is enabled.
		`CREATE TABLE IF NOT EXISTS account_core_details (
			account_id UUID PRIMARY KEY REFERENCES accounts(id),
			name TEXT NOT NULL,
			balance NUMERIC(18,2) NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS account_activations (
			account_id UUID PRIMARY KEY REFERENCES accounts(id),
			iban TEXT NOT NULL,
			activated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS account_spending_limits (
			account_id UUID PRIMARY KEY REFERENCES accounts(id),
			limit_amount NUMERIC(18,2) NOT NULL,
			timeframe TEXT NOT NULL,
			current_spending NUMERIC(18,2) NOT NULL DEFAULT 0,
			period_start TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS account_saving_goals (
			account_id UUID PRIMARY KEY REFERENCES accounts(id),
			name TEXT NOT NULL,
			target NUMERIC(18,2) NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			source_type TEXT NOT NULL,
			source_account_id UUID,
			source_iban TEXT,
			source_name TEXT,
			destination_type TEXT NOT NULL,
			destination_account_id UUID,
			destination_iban TEXT,
			destination_name TEXT,
			amount NUMERIC(18,2) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			ts TIMESTAMPTZ NOT NULL,
			source_balance_before NUMERIC(18,2),
			destination_balance_before NUMERIC(18,2),
			reversal_of UUID,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_source_idx ON transactions (source_account_id);`,
		`CREATE INDEX IF NOT EXISTS transactions_destination_idx ON transactions (destination_account_id);`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id UUID PRIMARY KEY REFERENCES users(id),
			document JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so loaders
// work both standalone and inside a locked transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// guard runs fn behind the circuit breaker. Expected outcomes (no rows,
// domain errors) pass through without counting as breaker failures.
func (s *Store) guard(fn func() error) error {
	var expected error
	_, err := s.cb.Execute(func() (any, error) {
		err := fn()
		if err == nil {
			return nil, nil
		}
		if errors.Is(err, pgx.ErrNoRows) || isDomainError(err) {
			expected = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		s.metrics.IncrStoreError("postgres")
		s.logger.Error("postgres: store operation failed", zap.Error(err))
		return err
	}
	return expected
}

func isDomainError(err error) bool {
	var (
		nf *domain.ErrNotFound
		cf *domain.ErrConflict
		vd *domain.ErrValidation
		in *domain.ErrInsufficientFunds
		le *domain.ErrLimitExceeded
	)
	return errors.As(err, &nf) || errors.As(err, &cf) || errors.As(err, &vd) ||
		errors.As(err, &in) || errors.As(err, &le)
}

// mapPgError translates driver errors into domain errors where a domain
// meaning exists; everything else propagates unchanged.
func mapPgError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &domain.ErrConflict{Message: fmt.Sprintf("%s already exists", resource)}
	}
	return err
}
