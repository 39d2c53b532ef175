package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vankuijk/walletapp-go/internal/domain"
)

// do issues a request against the router and decodes the JSON response into
// out when it is non-nil.
func do(t *testing.T, router http.Handler, method, path, token string, body, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v: %s", method, path, err, rec.Body)
		}
	}
	return rec.Code
}

func TestAccountSummaryHonorsRenderPreferences(t *testing.T) {
	router := newTestRouter(t)

	code := do(t, router, http.MethodPost, "/v1/auth/register", "", domain.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "correct-horse",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}
	var login domain.LoginResponse
	if code := do(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Username: "bob", Password: "correct-horse",
	}, &login); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	token := login.AccessToken

	var account domain.Account
	if code := do(t, router, http.MethodPost, "/v1/accounts/", token, map[string]any{
		"name": "Checking", "initialBalance": "500.00",
	}, &account); code != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d", code)
	}

	spend := func(amount, desc string) domain.Transaction {
		t.Helper()
		var entry domain.Transaction
		if code := do(t, router, http.MethodPost, "/v1/transactions/", token, map[string]any{
			"source":      map[string]any{"type": "ACCOUNT", "account_id": account.ID},
			"destination": map[string]any{"type": "SPEND", "name": "groceries"},
			"amount":      amount,
			"description": desc,
		}, &entry); code != http.StatusCreated {
			t.Fatalf("spend %s: expected 201, got %d", amount, code)
		}
		return entry
	}

	first := spend("10.00", "first")
	spend("20.00", "second")
	spend("30.00", "third")
	if code := do(t, router, http.MethodPost, "/v1/transactions/"+first.ID.String()+"/reverse", token, nil, nil); code != http.StatusCreated {
		t.Fatalf("reverse: expected 201, got %d", code)
	}

	type summary struct {
		Recent   []domain.Transaction `json:"recent"`
		Timezone string               `json:"timezone"`
	}
	summaryPath := "/v1/accounts/" + account.ID.String() + "/summary"

	var def summary
	if code := do(t, router, http.MethodGet, summaryPath, token, nil, &def); code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", code)
	}
	if len(def.Recent) != 4 {
		t.Errorf("default summary entries = %d, want 4", len(def.Recent))
	}
	if def.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", def.Timezone)
	}

	if code := do(t, router, http.MethodPut, "/v1/settings", token, map[string]any{
		"summary_size":              2,
		"summary_include_reversals": false,
	}, nil); code != http.StatusOK {
		t.Fatalf("put settings: expected 200, got %d", code)
	}

	var tuned summary
	if code := do(t, router, http.MethodGet, summaryPath, token, nil, &tuned); code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", code)
	}
	if len(tuned.Recent) > 2 {
		t.Errorf("tuned summary entries = %d, want at most 2", len(tuned.Recent))
	}
	for _, entry := range tuned.Recent {
		if entry.ReversalOf != nil {
			t.Errorf("summary includes reversal entry %s despite preference", entry.ID)
		}
	}
}
