package service

import (
	"context"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/infra/resilience"
	"github.com/vankuijk/walletapp-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var txTracer = otel.Tracer("service/transactions")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionService runs the append-only transaction workflow. Debits from
// an account pass the spending-limit evaluation and a funds check inside the
// store transaction that also writes the entry, so concurrent spends on the
// same account serialize on the account row.
type TransactionService struct {
	store    port.TransactionStore
	accounts port.AccountStore
	clock    port.Clock
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTransactionService creates a transaction service.
func NewTransactionService(store port.TransactionStore, accounts port.AccountStore, clock port.Clock, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		store:    store,
		accounts: accounts,
		clock:    clock,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateTransactionRequest is the inbound shape for a new entry.
type CreateTransactionRequest struct {
	Source      domain.Party    `json:"source"`
	Destination domain.Party    `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Create validates and books a new transaction. For an ACCOUNT source the
// spending-limit check, the funds check, the balance debit and the snapshot
// capture all happen inside one store transaction; an ACCOUNT destination is
// credited the same way.
func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, req *CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("source_type", string(req.Source.Type)),
		attribute.String("destination_type", string(req.Destination.Type)),
	)

	now := s.clock.Now()
	entry := &domain.Transaction{
		ID:          uuid.New(),
		Source:      req.Source,
		Destination: req.Destination,
		Amount:      req.Amount,
		Description: req.Description,
		Timestamp:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, userID, entry); err != nil {
		return nil, err
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	created, err := s.store.CreateTransaction(ctx, entry, func(source, destination *domain.Account) error {
		return s.applyMutations(entry, source, destination, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", created.ID.String()),
		zap.String("amount", created.Amount.StringFixed(2)),
	)
	return created, nil
}

// Get returns a single entry, restricted to accounts the user owns.
func (s *TransactionService) Get(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Get")
	defer span.End()

	entry, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, userID, entry); err != nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID.String()}
	}
	return entry, nil
}

// List returns a page of an account's entries, newest first.
func (s *TransactionService) List(ctx context.Context, userID, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	// Ownership gate before touching the ledger.
	if _, err := s.accounts.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, accountID, page, pageSize)
}

// Reverse books an offsetting entry for an existing transaction. The ledger
// is append-only, so a mistake is corrected by a second entry swapping the
// descriptors, never by editing the first.
func (s *TransactionService) Reverse(ctx context.Context, userID, transactionID uuid.UUID, description string) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Reverse")
	defer span.End()

	original, err := s.Get(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if original.ReversalOf != nil {
		return nil, &domain.ErrConflict{Message: "cannot reverse a reversal entry"}
	}

	source, destination := reversedParties(original)
	if description == "" {
		description = "Reversal of " + original.ID.String()
	}

	now := s.clock.Now()
	entry := &domain.Transaction{
		ID:          uuid.New(),
		Source:      source,
		Destination: destination,
		Amount:      original.Amount,
		Description: description,
		Timestamp:   now,
		ReversalOf:  &original.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	created, err := s.store.CreateTransaction(ctx, entry, func(src, dst *domain.Account) error {
		return s.applyReversal(entry, src, dst)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction reversed",
		zap.String("transaction_id", original.ID.String()),
		zap.String("reversal_id", created.ID.String()),
	)
	return created, nil
}

// ============================================================
// In-transaction mutations
// ============================================================

// applyMutations runs inside the store transaction with both account rows
// locked, so the limit decision and the funds check see balances no
// concurrent writer can change.
func (s *TransactionService) applyMutations(entry *domain.Transaction, source, destination *domain.Account, now time.Time) error {
	if source != nil {
		if source.CoreDetails == nil {
			return &domain.ErrValidation{Field: "source", Message: "source account has no core details"}
		}
		entry.SourceBalanceBefore = decimalRef(source.CoreDetails.Balance)

		decision := domain.EvaluateSpending(source.SpendingLimit, entry.Amount, now)
		if !decision.Admitted {
			s.metrics.IncrSpendDecision("rejected")
			return &domain.ErrLimitExceeded{
				Limit:     decision.Updated.Limit,
				Attempted: decision.Updated.CurrentSpending.Add(entry.Amount),
			}
		}
		if source.SpendingLimit != nil {
			s.metrics.IncrSpendDecision("admitted")
			source.SpendingLimit = decision.Updated
		}

		if source.CoreDetails.Balance.LessThan(entry.Amount) {
			return &domain.ErrInsufficientFunds{
				Available: source.CoreDetails.Balance,
				Required:  entry.Amount,
			}
		}
		source.CoreDetails.Balance = source.CoreDetails.Balance.Sub(entry.Amount)
	}

	if destination != nil {
		if destination.CoreDetails == nil {
			return &domain.ErrValidation{Field: "destination", Message: "destination account has no core details"}
		}
		entry.DestinationBalanceBefore = decimalRef(destination.CoreDetails.Balance)
		destination.CoreDetails.Balance = destination.CoreDetails.Balance.Add(entry.Amount)
	}
	return nil
}

// applyReversal restores balances without consulting the spending limit:
// money coming back from a reversed spend is not a new debit against the cap.
func (s *TransactionService) applyReversal(entry *domain.Transaction, source, destination *domain.Account) error {
	if source != nil {
		if source.CoreDetails == nil {
			return &domain.ErrValidation{Field: "source", Message: "source account has no core details"}
		}
		entry.SourceBalanceBefore = decimalRef(source.CoreDetails.Balance)
		if source.CoreDetails.Balance.LessThan(entry.Amount) {
			return &domain.ErrInsufficientFunds{
				Available: source.CoreDetails.Balance,
				Required:  entry.Amount,
			}
		}
		source.CoreDetails.Balance = source.CoreDetails.Balance.Sub(entry.Amount)
	}
	if destination != nil {
		if destination.CoreDetails == nil {
			return &domain.ErrValidation{Field: "destination", Message: "destination account has no core details"}
		}
		entry.DestinationBalanceBefore = decimalRef(destination.CoreDetails.Balance)
		destination.CoreDetails.Balance = destination.CoreDetails.Balance.Add(entry.Amount)
	}
	return nil
}

// reversedParties swaps the descriptors of the original entry, mapping the
// party types to the set each side allows.
func reversedParties(original *domain.Transaction) (source, destination domain.Party) {
	source = original.Destination
	destination = original.Source

	// SPEND and SYSTEM are one-directional types; flip them.
	if source.Type == domain.PartySpend {
		source.Type = domain.PartySystem
	}
	if destination.Type == domain.PartySystem {
		destination.Type = domain.PartySpend
	}
	return source, destination
}

// checkOwnership verifies the user owns every ACCOUNT party on the entry.
func (s *TransactionService) checkOwnership(ctx context.Context, userID uuid.UUID, entry *domain.Transaction) error {
	for _, party := range []domain.Party{entry.Source, entry.Destination} {
		if party.AccountID == nil {
			continue
		}
		if _, err := s.accounts.GetAccount(ctx, userID, *party.AccountID); err != nil {
			return err
		}
	}
	return nil
}

func decimalRef(d decimal.Decimal) *decimal.Decimal { return &d }
