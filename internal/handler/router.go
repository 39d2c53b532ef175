// Package handler exposes the wallet services over HTTP: a chi router with
// JWT-protected /v1 routes plus the operational endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/vankuijk/walletapp-go/internal/infra/observability"
	"github.com/vankuijk/walletapp-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router serves.
type Services struct {
	Auth         *service.AuthService
	Accounts     *service.AccountService
	Transactions *service.TransactionService
	Settings     *service.SettingsService
	Store        Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(svcs.Auth, logger))
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/refresh", authRefreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			// Profile
			r.Get("/users/me", getProfileHandler(svcs.Auth, logger))
			r.Delete("/users/me", closeUserHandler(svcs.Auth, logger))

			// Accounts and their components
			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", listAccountsHandler(svcs.Accounts, logger))
				r.Post("/", createAccountHandler(svcs.Accounts, logger))

				r.Route("/{accountId}", func(r chi.Router) {
					r.Get("/", getAccountHandler(svcs.Accounts, logger))
					r.Delete("/", deleteAccountHandler(svcs.Accounts, logger))

					r.Put("/details", setCoreDetailsHandler(svcs.Accounts, logger))
					r.Post("/activate", activateAccountHandler(svcs.Accounts, logger))
					r.Delete("/activate", deactivateAccountHandler(svcs.Accounts, logger))
					r.Put("/spending-limit", setSpendingLimitHandler(svcs.Accounts, logger))
					r.Delete("/spending-limit", removeSpendingLimitHandler(svcs.Accounts, logger))
					r.Put("/saving-goal", setSavingGoalHandler(svcs.Accounts, logger))
					r.Delete("/saving-goal", removeSavingGoalHandler(svcs.Accounts, logger))

					r.Get("/transactions", listTransactionsHandler(svcs.Transactions, logger))
					r.Get("/summary", accountSummaryHandler(svcs.Accounts, svcs.Transactions, svcs.Settings, logger))
				})
			})

			// Transactions
			r.Route("/transactions", func(r chi.Router) {
				r.Post("/", createTransactionHandler(svcs.Transactions, logger))
				r.Get("/{transactionId}", getTransactionHandler(svcs.Transactions, logger))
				r.Post("/{transactionId}/reverse", reverseTransactionHandler(svcs.Transactions, logger))
			})

			// Settings
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", getSettingsHandler(svcs.Settings, logger))
				r.Put("/", putSettingsHandler(svcs.Settings, logger))
				r.Delete("/", resetSettingsHandler(svcs.Settings, logger))
				r.Delete("/{key}", deleteSettingHandler(svcs.Settings, logger))
			})
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Error("healthz: store unreachable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
