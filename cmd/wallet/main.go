package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vankuijk/walletapp-go/internal/config"
	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/handler"
	"github.com/vankuijk/walletapp-go/internal/infra/cache"
	"github.com/vankuijk/walletapp-go/internal/infra/memstore"
	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/infra/postgres"
	"github.com/vankuijk/walletapp-go/internal/infra/resilience"
	"github.com/vankuijk/walletapp-go/internal/port"
	"github.com/vankuijk/walletapp-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Duration("settings_cache_ttl", cfg.SettingsCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "wallet-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	settingsCache := cache.New[domain.Settings](cfg.SettingsCacheTTL)
	metrics.RegisterCacheSize("settings", settingsCache.Len)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Store ---
	var store port.WalletStore
	var pinger handler.Pinger
	if cfg.DatabaseURL != "" {
		cb := resilience.NewCircuitBreaker("postgres")
		pg, err := postgres.New(context.Background(), cfg.DatabaseURL, resilienceCfg, cb, metrics, logger)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		pinger = pg
		logger.Info("using Postgres as data backend")
	} else {
		mem := memstore.New()
		store = mem
		pinger = mem
		logger.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
	}

	// --- Services ---
	clock := port.RealClock{}
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	authSvc := service.NewAuthService(store, clock, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	accountSvc := service.NewAccountService(store, clock, nil, logger)
	txSvc := service.NewTransactionService(store, store, clock, bulkhead, metrics, logger)
	settingsSvc := service.NewSettingsService(store, settingsCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Auth:         authSvc,
		Accounts:     accountSvc,
		Transactions: txSvc,
		Settings:     settingsSvc,
		Store:        pinger,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
