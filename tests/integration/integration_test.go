package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/handler"
	"github.com/vankuijk/walletapp-go/internal/infra/cache"
	"github.com/vankuijk/walletapp-go/internal/infra/memstore"
	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/infra/resilience"
	"github.com/vankuijk/walletapp-go/internal/port"
	"github.com/vankuijk/walletapp-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TestIntegration_WalletFlow drives a full user journey through the HTTP
// surface: register, login, open an account, configure a spending limit,
// spend up to it, hit the cap, and manage settings.
func TestIntegration_WalletFlow(t *testing.T) {
	// --- Build services against the in-memory store ---
	store := memstore.New()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	clock := port.RealClock{}

	router := handler.NewRouter(handler.Services{
		Auth:         service.NewAuthService(store, clock, "integration-secret", 15*time.Minute, 24*time.Hour, logger),
		Accounts:     service.NewAccountService(store, clock, nil, logger),
		Transactions: service.NewTransactionService(store, store, clock, resilience.NewBulkhead(8), metrics, logger),
		Settings:     service.NewSettingsService(store, cache.New[domain.Settings](time.Minute), metrics, logger),
		Store:        store,
	}, metrics, logger)

	do := func(method, path, token string, body any) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// --- Register & login ---
	rec := do(http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{Username: "carol", Password: "hunter2hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	token := login.AccessToken

	// --- Open an account with an initial balance ---
	initial := decimal.RequireFromString("500.00")
	rec = do(http.MethodPost, "/v1/accounts/", token, service.CreateAccountRequest{
		Name:           "Everyday",
		InitialBalance: &initial,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var account domain.Account
	if err := json.NewDecoder(rec.Body).Decode(&account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if !account.IsMain {
		t.Error("first account should be main")
	}

	// --- Configure a daily spending limit ---
	rec = do(http.MethodPut, fmt.Sprintf("/v1/accounts/%s/spending-limit", account.ID), token, service.SetSpendingLimitRequest{
		Limit:     decimal.RequireFromString("100.00"),
		Timeframe: domain.TimeframeDaily,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set limit: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	// --- Spend within the limit ---
	spend := func(amount string) *httptest.ResponseRecorder {
		return do(http.MethodPost, "/v1/transactions/", token, service.CreateTransactionRequest{
			Source:      domain.Party{Type: domain.PartyAccount, AccountID: &account.ID},
			Destination: domain.Party{Type: domain.PartySpend, Name: "Groceries"},
			Amount:      decimal.RequireFromString(amount),
			Description: "integration spend",
		})
	}

	rec = spend("80.00")
	if rec.Code != http.StatusCreated {
		t.Fatalf("spend 80: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	rec = spend("20.00")
	if rec.Code != http.StatusCreated {
		t.Fatalf("spend 20: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	// --- The next cent is over the cap ---
	rec = spend("0.01")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-limit spend: expected 422, got %d: %s", rec.Code, rec.Body)
	}

	// --- Balance reflects only the admitted spends ---
	rec = do(http.MethodGet, fmt.Sprintf("/v1/accounts/%s/", account.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get account: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var updated domain.Account
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if !updated.CoreDetails.Balance.Equal(decimal.RequireFromString("400.00")) {
		t.Errorf("balance = %s, want 400.00", updated.CoreDetails.Balance)
	}

	// --- Transaction history is newest first ---
	rec = do(http.MethodGet, fmt.Sprintf("/v1/accounts/%s/transactions", account.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list transactions: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var entries []domain.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}

	// --- Settings round-trip ---
	rec = do(http.MethodPut, "/v1/settings/", token, map[string]any{"timezone": "Europe/Amsterdam", "currency": "EUR"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(http.MethodGet, "/v1/settings/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var settings domain.Settings
	if err := json.NewDecoder(rec.Body).Decode(&settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.String("timezone", "") != "Europe/Amsterdam" {
		t.Errorf("timezone = %v", settings["timezone"])
	}

	// --- Reset wipes everything ---
	rec = do(http.MethodDelete, "/v1/settings/", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset settings: expected 204, got %d: %s", rec.Code, rec.Body)
	}
	rec = do(http.MethodGet, "/v1/settings/", token, nil)
	var after domain.Settings
	if err := json.NewDecoder(rec.Body).Decode(&after); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("settings after reset = %v, want empty", after)
	}
}
