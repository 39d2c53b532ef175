package service

import (
	"context"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserTimezone returns the IANA zone name stored for the user, or "UTC"
// when none is set. An unset or unreadable setting never fails the caller.
func (s *SettingsService) UserTimezone(ctx context.Context, userID uuid.UUID) string {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.UserTimezone")
	defer span.End()

	doc, err := s.load(ctx, userID)
	if err != nil {
		s.logger.Warn("timezone lookup failed, falling back to UTC",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return "UTC"
	}
	name := doc.String(domain.SettingsKeyTimezone, "UTC")
	if name == "" {
		return "UTC"
	}
	return name
}

// Location resolves the user's timezone setting to a *time.Location.
// Unknown zone names degrade to UTC rather than erroring.
func (s *SettingsService) Location(ctx context.Context, userID uuid.UUID) *time.Location {
	name := s.UserTimezone(ctx, userID)
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn("unknown timezone in settings, falling back to UTC",
			zap.String("user_id", userID.String()),
			zap.String("timezone", name),
		)
		return time.UTC
	}
	return loc
}

// ToLocal converts a UTC instant into the user's timezone for display.
func (s *SettingsService) ToLocal(ctx context.Context, userID uuid.UUID, t time.Time) time.Time {
	return t.In(s.Location(ctx, userID))
}

// ToUTC normalizes a wall-clock reading from the user's timezone back to UTC
// for storage. The reading's own zone is ignored: a client-supplied local
// time parsed without offset information arrives tagged UTC, so the fields
// are rebased in the resolved zone before converting.
func (s *SettingsService) ToUTC(ctx context.Context, userID uuid.UUID, t time.Time) time.Time {
	loc := s.Location(ctx, userID)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc).UTC()
}
