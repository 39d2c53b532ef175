// Package service holds the wallet business logic: accounts with their
// optional components, the transaction workflow, user settings and
// authentication. Services talk to storage through the port interfaces and
// know nothing about SQL or HTTP.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var settingsTracer = otel.Tracer("service/settings")

// SettingsService manages per-user preferences stored as a single JSON
// document. The document is created lazily: a user who never saved anything
// reads an empty set, and a document that fails to parse is treated the same
// way instead of surfacing an error.
type SettingsService struct {
	store   port.SettingsStore
	cache   port.Cache[domain.Settings]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewSettingsService creates a settings service backed by the given store.
func NewSettingsService(store port.SettingsStore, cache port.Cache[domain.Settings], metrics *observability.Metrics, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// GetAll returns the full settings document for a user.
func (s *SettingsService) GetAll(ctx context.Context, userID uuid.UUID) (domain.Settings, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.GetAll")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	return s.load(ctx, userID)
}

// Get returns a single setting value. The second return value reports
// whether the key was present.
func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID, key string) (any, bool, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.Get")
	defer span.End()

	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

// Set writes one setting and persists the whole document atomically.
func (s *SettingsService) Set(ctx context.Context, userID uuid.UUID, key string, value any) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.Set")
	defer span.End()

	if key == "" {
		return &domain.ErrValidation{Field: "key", Message: "setting key must not be empty"}
	}

	doc, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	doc[key] = value
	return s.save(ctx, userID, doc)
}

// SetMany merges several settings into the document in one write.
func (s *SettingsService) SetMany(ctx context.Context, userID uuid.UUID, values domain.Settings) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.SetMany")
	defer span.End()

	doc, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	for k, v := range values {
		if k == "" {
			return &domain.ErrValidation{Field: "key", Message: "setting key must not be empty"}
		}
		doc[k] = v
	}
	return s.save(ctx, userID, doc)
}

// Delete removes a setting. Deleting a key that does not exist is a no-op.
func (s *SettingsService) Delete(ctx context.Context, userID uuid.UUID, key string) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.Delete")
	defer span.End()

	doc, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.save(ctx, userID, doc)
}

// ResetToDefaults discards every stored setting for the user.
func (s *SettingsService) ResetToDefaults(ctx context.Context, userID uuid.UUID) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.ResetToDefaults")
	defer span.End()

	s.logger.Info("settings reset", zap.String("user_id", userID.String()))
	if err := s.save(ctx, userID, domain.Settings{}); err != nil {
		return err
	}
	// Drop the cache entry so the next read refetches the stored document.
	s.cache.Delete(userID.String())
	return nil
}

// ============================================================
// Document plumbing
// ============================================================

func (s *SettingsService) load(ctx context.Context, userID uuid.UUID) (domain.Settings, error) {
	cacheKey := userID.String()
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("settings")
		return cloneSettings(cached), nil
	}
	s.metrics.IncrCacheMiss("settings")

	raw, found, err := s.store.GetSettingsDocument(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	doc := domain.Settings{}
	if found {
		if err := json.Unmarshal(raw, &doc); err != nil {
			// A corrupt document must never block the user; start over
			// from an empty one. The next save overwrites it.
			s.logger.Warn("settings document unreadable, using defaults",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			doc = domain.Settings{}
		}
	}

	s.cache.Set(cacheKey, cloneSettings(doc))
	return doc, nil
}

func (s *SettingsService) save(ctx context.Context, userID uuid.UUID, doc domain.Settings) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.store.SaveSettingsDocument(ctx, userID, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.cache.Set(userID.String(), cloneSettings(doc))
	return nil
}

func cloneSettings(doc domain.Settings) domain.Settings {
	cp := make(domain.Settings, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp
}
