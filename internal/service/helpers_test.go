package service

import (
	"context"
	"testing"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/infra/memstore"
	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/infra/resilience"
	"github.com/vankuijk/walletapp-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// stubClock is a Clock pinned to a settable instant.
type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// stubCache satisfies port.Cache without TTL behavior.
type stubCache[T any] struct {
	items map[string]T
}

func newStubCache[T any]() *stubCache[T] {
	return &stubCache[T]{items: make(map[string]T)}
}

func (c *stubCache[T]) Get(key string) (T, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *stubCache[T]) Set(key string, value T) { c.items[key] = value }
func (c *stubCache[T]) Delete(key string)       { delete(c.items, key) }

var _ port.Cache[domain.Settings] = (*stubCache[domain.Settings])(nil)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fixture wires every service against a shared in-memory store.
type fixture struct {
	store        *memstore.Store
	clock        *stubClock
	accounts     *AccountService
	transactions *TransactionService
	settings     *SettingsService
	auth         *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	// Tokens are checked against real time by the jwt library, so the stub
	// starts at the real now and only moves when a test advances it.
	clock := &stubClock{now: time.Now().UTC().Truncate(time.Second)}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	return &fixture{
		store:        store,
		clock:        clock,
		accounts:     NewAccountService(store, clock, nil, logger),
		transactions: NewTransactionService(store, store, clock, resilience.NewBulkhead(4), metrics, logger),
		settings:     NewSettingsService(store, newStubCache[domain.Settings](), metrics, logger),
		auth:         NewAuthService(store, clock, "test-secret", 15*time.Minute, 24*time.Hour, logger),
	}
}

// seedAccount creates an account with core details directly in the store.
func (f *fixture) seedAccount(t *testing.T, userID uuid.UUID, name, balance string) *domain.Account {
	t.Helper()

	account := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
		CoreDetails: &domain.CoreDetails{
			Name:    name,
			Balance: dec(balance),
		},
	}
	if err := f.store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func accountParty(id uuid.UUID) domain.Party {
	return domain.Party{Type: domain.PartyAccount, AccountID: &id}
}

func spendParty(name string) domain.Party {
	return domain.Party{Type: domain.PartySpend, Name: name}
}
