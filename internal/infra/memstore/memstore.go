// Package memstore is an in-memory implementation of the wallet store, used
// when no DATABASE_URL is configured (local development) and by the
// integration tests. Mutations take a single mutex, which gives the same
// serialization guarantee the Postgres store gets from row locks.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/port"

	"github.com/google/uuid"
)

var _ port.WalletStore = (*Store)(nil)

// Store holds everything in maps keyed by id.
type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*domain.User
	refreshTokens map[string]*domain.RefreshToken
	accounts      map[uuid.UUID]*domain.Account
	transactions  map[uuid.UUID]*domain.Transaction
	settings      map[uuid.UUID][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*domain.User),
		refreshTokens: make(map[string]*domain.RefreshToken),
		accounts:      make(map[uuid.UUID]*domain.Account),
		transactions:  make(map[uuid.UUID]*domain.Transaction),
		settings:      make(map[uuid.UUID][]byte),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// ============================================================
// Users
// ============================================================

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if !u.IsDeleted() && (u.Username == user.Username || u.Email == user.Email) {
			return &domain.ErrConflict{Message: "user already exists"}
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id.String()}
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username && !u.IsDeleted() {
			return cloneUser(u), nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: username}
}

func (s *Store) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.IsDeleted() {
		return &domain.ErrNotFound{Resource: "user", ID: id.String()}
	}
	u.Deleted = &domain.Deletion{At: at}
	u.UpdatedAt = at
	return nil
}

// ============================================================
// Refresh tokens
// ============================================================

func (s *Store) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshTokens[tokenHash] = &domain.RefreshToken{
		ID: uuid.New(), UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt,
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refreshTokens[tokenHash]
	if !ok || t.Revoked {
		return nil, &domain.ErrNotFound{Resource: "refresh_token", ID: ""}
	}
	cp := *t
	return &cp, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.refreshTokens[tokenHash]; ok {
		t.Revoked = true
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return &domain.ErrConflict{Message: "account already exists"}
	}
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok || a.IsDeleted() || a.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID.String()}
	}
	return cloneAccount(a), nil
}

func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID && !a.IsDeleted() {
			out = append(out, *cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsMain != out[j].IsMain {
			return out[i].IsMain
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[account.ID]
	if !ok || stored.IsDeleted() {
		return &domain.ErrNotFound{Resource: "account", ID: account.ID.String()}
	}
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (s *Store) SoftDeleteAccount(ctx context.Context, userID, accountID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok || a.IsDeleted() || a.UserID != userID {
		return &domain.ErrNotFound{Resource: "account", ID: accountID.String()}
	}
	a.Deleted = &domain.Deletion{At: at}
	a.UpdatedAt = at
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) CreateTransaction(ctx context.Context, entry *domain.Transaction, mutate func(source, destination *domain.Account) error) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolve := func(id *uuid.UUID) (*domain.Account, error) {
		if id == nil {
			return nil, nil
		}
		a, ok := s.accounts[*id]
		if !ok || a.IsDeleted() {
			return nil, &domain.ErrNotFound{Resource: "account", ID: id.String()}
		}
		return a, nil
	}

	source, err := resolve(entry.Source.AccountID)
	if err != nil {
		return nil, err
	}
	destination, err := resolve(entry.Destination.AccountID)
	if err != nil {
		return nil, err
	}

	// Mutate copies first so a rejected workflow leaves the store untouched.
	var srcCopy, dstCopy *domain.Account
	if source != nil {
		srcCopy = cloneAccount(source)
	}
	if destination != nil {
		if source != nil && destination.ID == source.ID {
			dstCopy = srcCopy
		} else {
			dstCopy = cloneAccount(destination)
		}
	}
	if err := mutate(srcCopy, dstCopy); err != nil {
		return nil, err
	}
	if srcCopy != nil {
		s.accounts[srcCopy.ID] = srcCopy
	}
	if dstCopy != nil {
		s.accounts[dstCopy.ID] = dstCopy
	}

	cp := *entry
	s.transactions[entry.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.Deleted != nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id.String()}
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Transaction, 0)
	for _, t := range s.transactions {
		if t.Deleted != nil {
			continue
		}
		srcMatch := t.Source.AccountID != nil && *t.Source.AccountID == accountID
		dstMatch := t.Destination.AccountID != nil && *t.Destination.AccountID == accountID
		if srcMatch || dstMatch {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	start := (page - 1) * pageSize
	if start >= len(out) {
		return []domain.Transaction{}, nil
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

// ============================================================
// Settings
// ============================================================

func (s *Store) GetSettingsDocument(ctx context.Context, userID uuid.UUID) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.settings[userID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	return cp, true, nil
}

func (s *Store) SaveSettingsDocument(ctx context.Context, userID uuid.UUID, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(doc))
	copy(cp, doc)
	s.settings[userID] = cp
	return nil
}

// SeedSettingsDocument stores a raw (possibly malformed) document, used by
// tests exercising the recovery path.
func (s *Store) SeedSettingsDocument(userID uuid.UUID, doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[userID] = doc
}

// ============================================================
// Copy helpers
// ============================================================

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.Deleted != nil {
		d := *u.Deleted
		cp.Deleted = &d
	}
	return &cp
}

func cloneAccount(a *domain.Account) *domain.Account {
	cp := *a
	if a.Deleted != nil {
		d := *a.Deleted
		cp.Deleted = &d
	}
	if a.CoreDetails != nil {
		c := *a.CoreDetails
		cp.CoreDetails = &c
	}
	if a.ActiveAccount != nil {
		c := *a.ActiveAccount
		cp.ActiveAccount = &c
	}
	if a.SpendingLimit != nil {
		c := *a.SpendingLimit
		cp.SpendingLimit = &c
	}
	if a.SavingGoal != nil {
		c := *a.SavingGoal
		cp.SavingGoal = &c
	}
	return &cp
}
