// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
)

// Clock supplies the current UTC instant. Injected so period arithmetic and
// audit timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

// Now returns the current instant in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// UserStore persists users and refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error

	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// AccountStore persists accounts together with their optional components.
// Loads return the aggregate with every attached component populated;
// soft-deleted accounts are excluded.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	// UpdateAccount rewrites the aggregate's mutable state: IsMain and the
	// full component set (absent components are detached).
	UpdateAccount(ctx context.Context, account *domain.Account) error
	SoftDeleteAccount(ctx context.Context, userID, accountID uuid.UUID, at time.Time) error
}

// TransactionStore persists ledger entries. CreateTransaction runs mutate
// against the involved internal accounts inside a single database
// transaction, with their rows locked (stable lock order across accounts), so
// the spending-evaluate-then-debit sequence is serialized per account. On
// success the mutated aggregates and the entry are persisted atomically.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, entry *domain.Transaction, mutate func(source, destination *domain.Account) error) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, error)
}

// SettingsStore persists one raw settings document per user. Found is false
// when the user has no document yet; that is not an error.
type SettingsStore interface {
	GetSettingsDocument(ctx context.Context, userID uuid.UUID) (doc []byte, found bool, err error)
	// SaveSettingsDocument atomically replaces the whole document.
	SaveSettingsDocument(ctx context.Context, userID uuid.UUID, doc []byte) error
}

// WalletStore aggregates every persistence concern of the wallet. Implemented
// by the Postgres adapter and the in-memory store used in tests.
type WalletStore interface {
	UserStore
	AccountStore
	TransactionStore
	SettingsStore
}
