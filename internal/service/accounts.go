package service

import (
	"context"
	"fmt"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/accounts")

// ActivationPolicy decides whether an account may receive an ActiveAccount
// component. The default policy admits every account; deployments wire in a
// stricter check (KYC, minimum balance) without touching the service.
type ActivationPolicy func(account *domain.Account) bool

// AllowAllActivations is the default ActivationPolicy.
func AllowAllActivations(*domain.Account) bool { return true }

// AccountService manages the account aggregate and its optional components.
type AccountService struct {
	store       port.AccountStore
	clock       port.Clock
	canActivate ActivationPolicy
	logger      *zap.Logger
}

// NewAccountService creates an account service. A nil policy falls back to
// AllowAllActivations.
func NewAccountService(store port.AccountStore, clock port.Clock, policy ActivationPolicy, logger *zap.Logger) *AccountService {
	if policy == nil {
		policy = AllowAllActivations
	}
	return &AccountService{
		store:       store,
		clock:       clock,
		canActivate: policy,
		logger:      logger,
	}
}

// CreateAccountRequest carries the optional initial core details.
type CreateAccountRequest struct {
	Name           string           `json:"name"`
	InitialBalance *decimal.Decimal `json:"initialBalance,omitempty"`
}

// Create opens a new account for the user. The user's first live account
// becomes the main account automatically.
func (s *AccountService) Create(ctx context.Context, userID uuid.UUID, req *CreateAccountRequest) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	existing, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	now := s.clock.Now()
	account := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		IsMain:    len(existing) == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Name != "" || req.InitialBalance != nil {
		balance := decimal.Zero
		if req.InitialBalance != nil {
			balance = *req.InitialBalance
		}
		account.CoreDetails = &domain.CoreDetails{Name: req.Name, Balance: balance}
		if err := account.CoreDetails.Validate(); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Bool("is_main", account.IsMain),
	)
	return account, nil
}

// Get returns one of the user's live accounts.
func (s *AccountService) Get(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Get")
	defer span.End()

	return s.store.GetAccount(ctx, userID, accountID)
}

// List returns the user's live accounts, main account first.
func (s *AccountService) List(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.List")
	defer span.End()

	return s.store.ListAccounts(ctx, userID)
}

// Delete soft-deletes an account. The row and its history stay readable for
// audit but the account disappears from every listing.
func (s *AccountService) Delete(ctx context.Context, userID, accountID uuid.UUID) error {
	ctx, span := accountTracer.Start(ctx, "AccountService.Delete")
	defer span.End()

	if err := s.store.SoftDeleteAccount(ctx, userID, accountID, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Info("account deleted",
		zap.String("account_id", accountID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// ============================================================
// Component attach / detach
// ============================================================

// SetCoreDetails attaches or replaces the account's core details.
func (s *AccountService) SetCoreDetails(ctx context.Context, userID, accountID uuid.UUID, details *domain.CoreDetails) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.SetCoreDetails")
	defer span.End()

	if err := details.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		a.CoreDetails = details
		return nil
	})
}

// Activate attaches an ActiveAccount component, gated by the activation
// policy. Activating an already active account is a conflict.
func (s *AccountService) Activate(ctx context.Context, userID, accountID uuid.UUID, iban string) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Activate")
	defer span.End()

	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		if a.IsActive() {
			return &domain.ErrConflict{Message: "account is already active"}
		}
		if !s.canActivate(a) {
			return &domain.ErrForbidden{Action: "activate account"}
		}
		active := &domain.ActiveAccount{IBAN: iban, ActivatedAt: s.clock.Now()}
		if err := active.Validate(); err != nil {
			return err
		}
		a.ActiveAccount = active
		return nil
	})
}

// Deactivate detaches the ActiveAccount component.
func (s *AccountService) Deactivate(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Deactivate")
	defer span.End()

	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		a.ActiveAccount = nil
		return nil
	})
}

// SetSpendingLimitRequest configures a spending cap for an account.
type SetSpendingLimitRequest struct {
	Limit     decimal.Decimal  `json:"limit"`
	Timeframe domain.Timeframe `json:"timeframe"`
}

// SetSpendingLimit attaches or replaces the spending limit. A replaced limit
// starts a fresh period with a zero accumulator.
func (s *AccountService) SetSpendingLimit(ctx context.Context, userID, accountID uuid.UUID, req *SetSpendingLimitRequest) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.SetSpendingLimit")
	defer span.End()

	limit := &domain.SpendingLimit{
		Limit:           req.Limit,
		Timeframe:       req.Timeframe,
		CurrentSpending: decimal.Zero,
		PeriodStart:     s.clock.Now(),
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		a.SpendingLimit = limit
		return nil
	})
}

// RemoveSpendingLimit detaches the spending limit component.
func (s *AccountService) RemoveSpendingLimit(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.RemoveSpendingLimit")
	defer span.End()

	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		a.SpendingLimit = nil
		return nil
	})
}

// SetSavingGoal attaches or replaces the saving goal.
func (s *AccountService) SetSavingGoal(ctx context.Context, userID, accountID uuid.UUID, goal *domain.SavingGoal) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.SetSavingGoal")
	defer span.End()

	if err := goal.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		a.SavingGoal = goal
		return nil
	})
}

// RemoveSavingGoal detaches the saving goal component.
func (s *AccountService) RemoveSavingGoal(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.RemoveSavingGoal")
	defer span.End()

	return s.mutate(ctx, userID, accountID, func(a *domain.Account) error {
		a.SavingGoal = nil
		return nil
	})
}

// mutate loads the account, applies fn and writes it back with a bumped
// updated-at.
func (s *AccountService) mutate(ctx context.Context, userID, accountID uuid.UUID, fn func(*domain.Account) error) (*domain.Account, error) {
	account, err := s.store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := fn(account); err != nil {
		return nil, err
	}
	account.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}
