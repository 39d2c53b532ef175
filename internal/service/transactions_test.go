package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
)

func TestTransactionService_TransferBetweenAccounts(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "100.00")
	destination := f.seedAccount(t, userID, "Savings", "10.00")

	entry, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: accountParty(destination.ID),
		Amount:      dec("25.50"),
		Description: "monthly savings",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if entry.SourceBalanceBefore == nil || !entry.SourceBalanceBefore.Equal(dec("100.00")) {
		t.Errorf("source snapshot = %v, want 100.00", entry.SourceBalanceBefore)
	}
	if entry.DestinationBalanceBefore == nil || !entry.DestinationBalanceBefore.Equal(dec("10.00")) {
		t.Errorf("destination snapshot = %v, want 10.00", entry.DestinationBalanceBefore)
	}

	src, _ := f.accounts.Get(context.Background(), userID, source.ID)
	dst, _ := f.accounts.Get(context.Background(), userID, destination.ID)
	if !src.CoreDetails.Balance.Equal(dec("74.50")) {
		t.Errorf("source balance = %s, want 74.50", src.CoreDetails.Balance)
	}
	if !dst.CoreDetails.Balance.Equal(dec("35.50")) {
		t.Errorf("destination balance = %s, want 35.50", dst.CoreDetails.Balance)
	}
}

func TestTransactionService_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "10.00")

	_, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Groceries"),
		Amount:      dec("10.01"),
	})

	var fundsErr *domain.ErrInsufficientFunds
	if !errors.As(err, &fundsErr) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// Nothing changed.
	src, _ := f.accounts.Get(context.Background(), userID, source.ID)
	if !src.CoreDetails.Balance.Equal(dec("10.00")) {
		t.Errorf("balance = %s, want unchanged 10.00", src.CoreDetails.Balance)
	}
}

func TestTransactionService_SpendingLimitAdmitsAndAccumulates(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "500.00")
	if _, err := f.accounts.SetSpendingLimit(context.Background(), userID, source.ID, &SetSpendingLimitRequest{
		Limit:     dec("100.00"),
		Timeframe: domain.TimeframeDaily,
	}); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	spend := func(amount string) error {
		_, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
			Source:      accountParty(source.ID),
			Destination: spendParty("Groceries"),
			Amount:      dec(amount),
		})
		return err
	}

	if err := spend("80.00"); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	if err := spend("20.00"); err != nil {
		t.Fatalf("spend exactly to the limit: %v", err)
	}

	err := spend("0.01")
	var limitErr *domain.ErrLimitExceeded
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected limit exceeded, got %v", err)
	}

	src, _ := f.accounts.Get(context.Background(), userID, source.ID)
	if !src.SpendingLimit.CurrentSpending.Equal(dec("100.00")) {
		t.Errorf("accumulator = %s, want 100.00", src.SpendingLimit.CurrentSpending)
	}
	if !src.CoreDetails.Balance.Equal(dec("400.00")) {
		t.Errorf("balance = %s, want 400.00", src.CoreDetails.Balance)
	}
}

func TestTransactionService_SpendingLimitResetsNextPeriod(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "500.00")
	if _, err := f.accounts.SetSpendingLimit(context.Background(), userID, source.ID, &SetSpendingLimitRequest{
		Limit:     dec("100.00"),
		Timeframe: domain.TimeframeDaily,
	}); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	periodStart := f.clock.Now()

	_, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Groceries"),
		Amount:      dec("100.00"),
	})
	if err != nil {
		t.Fatalf("exhaust limit: %v", err)
	}

	// 30 hours later the daily window has rolled over once.
	f.clock.advance(30 * time.Hour)
	_, err = f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Groceries"),
		Amount:      dec("50.00"),
	})
	if err != nil {
		t.Fatalf("spend after rollover: %v", err)
	}

	src, _ := f.accounts.Get(context.Background(), userID, source.ID)
	if !src.SpendingLimit.CurrentSpending.Equal(dec("50.00")) {
		t.Errorf("accumulator = %s, want 50.00 after reset", src.SpendingLimit.CurrentSpending)
	}
	wantStart := periodStart.AddDate(0, 0, 1)
	if !src.SpendingLimit.PeriodStart.Equal(wantStart) {
		t.Errorf("period start = %v, want %v (phase preserved)", src.SpendingLimit.PeriodStart, wantStart)
	}
}

func TestTransactionService_NoLimitMeansNoCap(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "10000.00")

	_, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Car"),
		Amount:      dec("9999.99"),
	})
	if err != nil {
		t.Fatalf("unlimited account should admit any affordable spend: %v", err)
	}
}

func TestTransactionService_RejectsForeignAccount(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	source := f.seedAccount(t, owner, "Checking", "100.00")

	_, err := f.transactions.Create(context.Background(), uuid.New(), &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Groceries"),
		Amount:      dec("5.00"),
	})

	var nfErr *domain.ErrNotFound
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
}

func TestTransactionService_ValidationRejectsBeforeStore(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "100.00")

	_, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Groceries"),
		Amount:      dec("5.001"),
	})

	var vErr *domain.ErrValidation
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransactionService_ListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "1000.00")

	for i := 0; i < 3; i++ {
		f.clock.advance(time.Minute)
		if _, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
			Source:      accountParty(source.ID),
			Destination: spendParty("Groceries"),
			Amount:      dec("1.00"),
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := f.transactions.List(context.Background(), userID, source.ID, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if !page[0].Timestamp.After(page[1].Timestamp) {
		t.Error("expected newest-first ordering")
	}

	rest, err := f.transactions.List(context.Background(), userID, source.ID, 2, 2)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("second page size = %d, want 1", len(rest))
	}
}

func TestTransactionService_ReverseRestoresBalances(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	source := f.seedAccount(t, userID, "Checking", "100.00")

	original, err := f.transactions.Create(context.Background(), userID, &CreateTransactionRequest{
		Source:      accountParty(source.ID),
		Destination: spendParty("Groceries"),
		Amount:      dec("30.00"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reversal, err := f.transactions.Reverse(context.Background(), userID, original.ID, "")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reversal.ReversalOf == nil || *reversal.ReversalOf != original.ID {
		t.Error("reversal should link the original entry")
	}
	if reversal.Destination.AccountID == nil || *reversal.Destination.AccountID != source.ID {
		t.Error("reversal should credit the original source account")
	}

	src, _ := f.accounts.Get(context.Background(), userID, source.ID)
	if !src.CoreDetails.Balance.Equal(dec("100.00")) {
		t.Errorf("balance = %s, want restored 100.00", src.CoreDetails.Balance)
	}

	// A reversal cannot itself be reversed.
	_, err = f.transactions.Reverse(context.Background(), userID, reversal.ID, "")
	var cErr *domain.ErrConflict
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
