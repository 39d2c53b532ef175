package service

import (
	"context"
	"testing"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
)

func TestSettingsService_EmptyByDefault(t *testing.T) {
	f := newFixture(t)

	doc, err := f.settings.GetAll(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("expected empty document, got %v", doc)
	}
}

func TestSettingsService_SetGetRoundTrip(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if err := f.settings.Set(context.Background(), userID, "currency", "EUR"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.settings.Set(context.Background(), userID, "notifications", true); err != nil {
		t.Fatalf("set second: %v", err)
	}

	v, ok, err := f.settings.Get(context.Background(), userID, "currency")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || v != "EUR" {
		t.Errorf("currency = %v (present=%v), want EUR", v, ok)
	}

	doc, err := f.settings.GetAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(doc) != 2 {
		t.Errorf("document has %d keys, want 2", len(doc))
	}
}

func TestSettingsService_MissingKey(t *testing.T) {
	f := newFixture(t)

	_, ok, err := f.settings.Get(context.Background(), uuid.New(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("missing key should not be present")
	}
}

func TestSettingsService_MalformedDocumentTreatedAsEmpty(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.store.SeedSettingsDocument(userID, []byte("{not json"))

	doc, err := f.settings.GetAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("get all should recover silently: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("expected empty document, got %v", doc)
	}

	// Writing replaces the broken document wholesale.
	if err := f.settings.Set(context.Background(), userID, "currency", "EUR"); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, found, err := f.store.GetSettingsDocument(context.Background(), userID)
	if err != nil || !found {
		t.Fatalf("stored document missing: found=%v err=%v", found, err)
	}
	if string(raw) != `{"currency":"EUR"}` {
		t.Errorf("stored document = %s", raw)
	}
}

func TestSettingsService_DeleteMissingKeyIsNoOp(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if err := f.settings.Delete(context.Background(), userID, "ghost"); err != nil {
		t.Fatalf("delete of missing key should succeed: %v", err)
	}

	if err := f.settings.Set(context.Background(), userID, "currency", "EUR"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.settings.Delete(context.Background(), userID, "currency"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err := f.settings.Get(context.Background(), userID, "currency")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("deleted key should be gone")
	}
}

func TestSettingsService_ResetToDefaults(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if err := f.settings.SetMany(context.Background(), userID, domain.Settings{
		"currency": "EUR",
		"timezone": "Europe/Berlin",
	}); err != nil {
		t.Fatalf("set many: %v", err)
	}

	if err := f.settings.ResetToDefaults(context.Background(), userID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	doc, err := f.settings.GetAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("expected empty document after reset, got %v", doc)
	}
}

func TestSettingsService_RejectsEmptyKey(t *testing.T) {
	f := newFixture(t)

	err := f.settings.Set(context.Background(), uuid.New(), "", "x")
	if err == nil {
		t.Fatal("expected validation error for empty key")
	}
}
