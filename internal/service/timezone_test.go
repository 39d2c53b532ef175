package service

import (
	"context"
	"testing"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
)

func TestTimezone_DefaultsToUTC(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if tz := f.settings.UserTimezone(context.Background(), userID); tz != "UTC" {
		t.Errorf("timezone = %q, want UTC", tz)
	}
	if loc := f.settings.Location(context.Background(), userID); loc != time.UTC {
		t.Errorf("location = %v, want UTC", loc)
	}
}

func TestTimezone_ResolvesConfiguredZone(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if err := f.settings.Set(context.Background(), userID, domain.SettingsKeyTimezone, "Europe/Berlin"); err != nil {
		t.Fatalf("set: %v", err)
	}

	loc := f.settings.Location(context.Background(), userID)
	if loc.String() != "Europe/Berlin" {
		t.Errorf("location = %v, want Europe/Berlin", loc)
	}

	// Winter instant: Berlin is UTC+1.
	utc := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	local := f.settings.ToLocal(context.Background(), userID, utc)
	if local.Hour() != 13 {
		t.Errorf("local hour = %d, want 13", local.Hour())
	}
	if !f.settings.ToUTC(context.Background(), userID, local).Equal(utc) {
		t.Error("ToUTC should invert ToLocal")
	}
}

func TestTimezone_ToUTCRebasesNaiveReadings(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if err := f.settings.Set(context.Background(), userID, domain.SettingsKeyTimezone, "Europe/Berlin"); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A local wall clock parsed without offset information arrives tagged
	// UTC: 13:00 typed by a Berlin user is the instant 12:00 UTC.
	naive := time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC)
	got := f.settings.ToUTC(context.Background(), userID, naive)
	want := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ToUTC(13:00 naive) = %v, want %v", got, want)
	}
}

func TestTimezone_UnknownZoneFallsBackToUTC(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	if err := f.settings.Set(context.Background(), userID, domain.SettingsKeyTimezone, "Mars/Olympus"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if loc := f.settings.Location(context.Background(), userID); loc != time.UTC {
		t.Errorf("location = %v, want UTC fallback", loc)
	}
}
