package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestAccountService_FirstAccountBecomesMain(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	first, err := f.accounts.Create(context.Background(), userID, &CreateAccountRequest{Name: "Checking"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if !first.IsMain {
		t.Error("first account should be main")
	}

	second, err := f.accounts.Create(context.Background(), userID, &CreateAccountRequest{Name: "Savings"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.IsMain {
		t.Error("second account should not be main")
	}
}

func TestAccountService_CreateValidatesCoreDetails(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	longName := make([]byte, 101)
	for i := range longName {
		longName[i] = 'a'
	}
	_, err := f.accounts.Create(context.Background(), userID, &CreateAccountRequest{Name: string(longName)})

	var vErr *domain.ErrValidation
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.Field != "name" {
		t.Errorf("expected name field, got %q", vErr.Field)
	}
}

func TestAccountService_GetExcludesOtherUsers(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	account := f.seedAccount(t, owner, "Checking", "100.00")

	_, err := f.accounts.Get(context.Background(), uuid.New(), account.ID)

	var nfErr *domain.ErrNotFound
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
}

func TestAccountService_DeleteHidesAccount(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	if err := f.accounts.Delete(context.Background(), userID, account.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.accounts.Get(context.Background(), userID, account.ID); err == nil {
		t.Error("deleted account should not be readable")
	}
	list, err := f.accounts.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty listing, got %d accounts", len(list))
	}
}

func TestAccountService_Activate(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	updated, err := f.accounts.Activate(context.Background(), userID, account.ID, "DE89370400440532013000")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !updated.IsActive() {
		t.Fatal("account should be active")
	}
	if updated.ActiveAccount.IBAN != "DE89370400440532013000" {
		t.Errorf("unexpected IBAN %q", updated.ActiveAccount.IBAN)
	}
	if !updated.ActiveAccount.ActivatedAt.Equal(f.clock.Now()) {
		t.Error("activation instant should come from the clock")
	}

	// Second activation is a conflict.
	_, err = f.accounts.Activate(context.Background(), userID, account.ID, "DE89370400440532013000")
	var cErr *domain.ErrConflict
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAccountService_ActivationPolicyDenies(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	denyAll := func(*domain.Account) bool { return false }
	svc := NewAccountService(f.store, f.clock, denyAll, zap.NewNop())

	_, err := svc.Activate(context.Background(), userID, account.ID, "DE89370400440532013000")

	var fErr *domain.ErrForbidden
	if !errors.As(err, &fErr) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAccountService_DeactivateDetachesComponent(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	if _, err := f.accounts.Activate(context.Background(), userID, account.ID, "DE89370400440532013000"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	updated, err := f.accounts.Deactivate(context.Background(), userID, account.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if updated.IsActive() {
		t.Error("account should no longer be active")
	}
}

func TestAccountService_SetSpendingLimitStartsFreshPeriod(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	updated, err := f.accounts.SetSpendingLimit(context.Background(), userID, account.ID, &SetSpendingLimitRequest{
		Limit:     dec("250.00"),
		Timeframe: domain.TimeframeWeekly,
	})
	if err != nil {
		t.Fatalf("set limit: %v", err)
	}
	limit := updated.SpendingLimit
	if limit == nil {
		t.Fatal("spending limit not attached")
	}
	if !limit.CurrentSpending.IsZero() {
		t.Error("fresh limit should start with zero spending")
	}
	if !limit.PeriodStart.Equal(f.clock.Now()) {
		t.Error("period should start now")
	}

	removed, err := f.accounts.RemoveSpendingLimit(context.Background(), userID, account.ID)
	if err != nil {
		t.Fatalf("remove limit: %v", err)
	}
	if removed.SpendingLimit != nil {
		t.Error("spending limit should be detached")
	}
}

func TestAccountService_SetSpendingLimitRejectsBadTimeframe(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	_, err := f.accounts.SetSpendingLimit(context.Background(), userID, account.ID, &SetSpendingLimitRequest{
		Limit:     dec("250.00"),
		Timeframe: domain.Timeframe("HOURLY"),
	})

	var vErr *domain.ErrValidation
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAccountService_SavingGoalRoundTrip(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	account := f.seedAccount(t, userID, "Checking", "100.00")

	goal := &domain.SavingGoal{Name: "Vacation", Target: dec("1500.00")}
	updated, err := f.accounts.SetSavingGoal(context.Background(), userID, account.ID, goal)
	if err != nil {
		t.Fatalf("set goal: %v", err)
	}
	if updated.SavingGoal == nil || updated.SavingGoal.Name != "Vacation" {
		t.Fatalf("unexpected goal %+v", updated.SavingGoal)
	}

	removed, err := f.accounts.RemoveSavingGoal(context.Background(), userID, account.ID)
	if err != nil {
		t.Fatalf("remove goal: %v", err)
	}
	if removed.SavingGoal != nil {
		t.Error("saving goal should be detached")
	}
}
