package handler

import (
	"net/http"

	"github.com/vankuijk/walletapp-go/internal/domain"
	"github.com/vankuijk/walletapp-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Settings keys the summary honors. Both are optional render preferences.
const (
	settingsKeySummarySize      = "summary_size"
	settingsKeySummaryReversals = "summary_include_reversals"
)

const defaultSummarySize = 10

// accountSummary bundles the account with its recent history and the
// timezone the client should render timestamps in.
type accountSummary struct {
	Account  *domain.Account      `json:"account"`
	Recent   []domain.Transaction `json:"recent"`
	Timezone string               `json:"timezone"`
}

func accountSummaryHandler(accounts *service.AccountService, transactions *service.TransactionService, settings *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/summary")
		defer span.End()

		accountID, err := uuidParam(r, "accountId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		userID := UserIDFromContext(ctx)

		doc, err := settings.GetAll(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		size := int(doc.Float(settingsKeySummarySize, defaultSummarySize))
		if size < 1 || size > 50 {
			size = defaultSummarySize
		}
		includeReversals := doc.Bool(settingsKeySummaryReversals, true)

		var summary accountSummary
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			account, err := accounts.Get(gctx, userID, accountID)
			if err != nil {
				return err
			}
			summary.Account = account
			return nil
		})
		g.Go(func() error {
			recent, err := transactions.List(gctx, userID, accountID, 1, size)
			if err != nil {
				return err
			}
			if !includeReversals {
				recent = dropReversals(recent)
			}
			summary.Recent = recent
			return nil
		})
		g.Go(func() error {
			summary.Timezone = settings.UserTimezone(gctx, userID)
			return nil
		})
		if err := g.Wait(); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

func dropReversals(entries []domain.Transaction) []domain.Transaction {
	kept := entries[:0]
	for _, e := range entries {
		if e.ReversalOf == nil {
			kept = append(kept, e)
		}
	}
	return kept
}
