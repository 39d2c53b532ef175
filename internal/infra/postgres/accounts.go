package postgres

import (
	"context"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreateAccount inserts the aggregate root and any components attached at
// creation time.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	return s.guard(func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO accounts (id, user_id, is_main, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			account.ID, account.UserID, account.IsMain, account.CreatedAt, account.UpdatedAt,
		)
		if err != nil {
			return mapPgError(err, "account", account.ID.String())
		}
		if err := saveComponents(ctx, tx, account); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// GetAccount loads one live account with all attached components.
func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.Account, error) {
	var account *domain.Account
	err := s.guard(func() error {
		a, err := loadAccount(ctx, s.pool, accountID, false)
		if err != nil {
			return mapPgError(err, "account", accountID.String())
		}
		if a.UserID != userID {
			return &domain.ErrNotFound{Resource: "account", ID: accountID.String()}
		}
		account = a
		return nil
	})
	return account, err
}

// ListAccounts returns the user's live accounts with components, main first.
func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.guard(func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT id FROM accounts
			 WHERE user_id = $1 AND deleted_at IS NULL
			 ORDER BY is_main DESC, created_at ASC`, userID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0)
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		accounts = make([]domain.Account, 0, len(ids))
		for _, id := range ids {
			a, err := loadAccount(ctx, s.pool, id, false)
			if err != nil {
				return err
			}
			accounts = append(accounts, *a)
		}
		return nil
	})
	return accounts, err
}

// UpdateAccount rewrites the aggregate's mutable state: the IsMain flag and
// the full component set. Components absent on the aggregate are detached.
func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) error {
	return s.guard(func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx,
			`UPDATE accounts SET is_main = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
			account.ID, account.IsMain, account.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "account", ID: account.ID.String()}
		}
		if err := saveComponents(ctx, tx, account); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// SoftDeleteAccount marks the account deleted; components stay behind so the
// ledger keeps resolving.
func (s *Store) SoftDeleteAccount(ctx context.Context, userID, accountID uuid.UUID, at time.Time) error {
	return s.guard(func() error {
		tag, err := s.pool.Exec(ctx,
			`UPDATE accounts SET deleted_at = $3, updated_at = $3
			 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
			accountID, userID, at,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "account", ID: accountID.String()}
		}
		return nil
	})
}

// loadAccount fetches the aggregate root plus its four optional component
// rows. forUpdate locks the root row for the caller's transaction.
func loadAccount(ctx context.Context, q querier, accountID uuid.UUID, forUpdate bool) (*domain.Account, error) {
	query := `SELECT id, user_id, is_main, deleted_at, created_at, updated_at
	          FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		a         domain.Account
		deletedAt *time.Time
	)
	if err := q.QueryRow(ctx, query, accountID).Scan(
		&a.ID, &a.UserID, &a.IsMain, &deletedAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if deletedAt != nil {
		a.Deleted = &domain.Deletion{At: *deletedAt}
	}

	var core domain.CoreDetails
	err := q.QueryRow(ctx,
		`SELECT name, balance FROM account_core_details WHERE account_id = $1`, accountID,
	).Scan(&core.Name, &core.Balance)
	switch {
	case err == nil:
		a.CoreDetails = &core
	case err != pgx.ErrNoRows:
		return nil, err
	}

	var active domain.ActiveAccount
	err = q.QueryRow(ctx,
		`SELECT iban, activated_at FROM account_activations WHERE account_id = $1`, accountID,
	).Scan(&active.IBAN, &active.ActivatedAt)
	switch {
	case err == nil:
		a.ActiveAccount = &active
	case err != pgx.ErrNoRows:
		return nil, err
	}

	var limit domain.SpendingLimit
	err = q.QueryRow(ctx,
		`SELECT limit_amount, timeframe, current_spending, period_start
		 FROM account_spending_limits WHERE account_id = $1`, accountID,
	).Scan(&limit.Limit, &limit.Timeframe, &limit.CurrentSpending, &limit.PeriodStart)
	switch {
	case err == nil:
		a.SpendingLimit = &limit
	case err != pgx.ErrNoRows:
		return nil, err
	}

	var goal domain.SavingGoal
	err = q.QueryRow(ctx,
		`SELECT name, target FROM account_saving_goals WHERE account_id = $1`, accountID,
	).Scan(&goal.Name, &goal.Target)
	switch {
	case err == nil:
		a.SavingGoal = &goal
	case err != pgx.ErrNoRows:
		return nil, err
	}

	return &a, nil
}

// saveComponents upserts present components and deletes absent ones, so the
// rows mirror the aggregate exactly.
func saveComponents(ctx context.Context, q querier, a *domain.Account) error {
	if a.CoreDetails != nil {
		if _, err := q.Exec(ctx,
			`INSERT INTO account_core_details (account_id, name, balance) VALUES ($1, $2, $3)
			 ON CONFLICT (account_id) DO UPDATE SET name = EXCLUDED.name, balance = EXCLUDED.balance`,
			a.ID, a.CoreDetails.Name, a.CoreDetails.Balance,
		); err != nil {
			return err
		}
	} else if _, err := q.Exec(ctx,
		`DELETE FROM account_core_details WHERE account_id = $1`, a.ID); err != nil {
		return err
	}

	if a.ActiveAccount != nil {
		if _, err := q.Exec(ctx,
			`INSERT INTO account_activations (account_id, iban, activated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (account_id) DO UPDATE SET iban = EXCLUDED.iban, activated_at = EXCLUDED.activated_at`,
			a.ID, a.ActiveAccount.IBAN, a.ActiveAccount.ActivatedAt,
		); err != nil {
			return err
		}
	} else if _, err := q.Exec(ctx,
		`DELETE FROM account_activations WHERE account_id = $1`, a.ID); err != nil {
		return err
	}

	if a.SpendingLimit != nil {
		if _, err := q.Exec(ctx,
			`INSERT INTO account_spending_limits (account_id, limit_amount, timeframe, current_spending, period_start)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (account_id) DO UPDATE SET
				limit_amount = EXCLUDED.limit_amount,
				timeframe = EXCLUDED.timeframe,
				current_spending = EXCLUDED.current_spending,
				period_start = EXCLUDED.period_start`,
			a.ID, a.SpendingLimit.Limit, string(a.SpendingLimit.Timeframe),
			a.SpendingLimit.CurrentSpending, a.SpendingLimit.PeriodStart,
		); err != nil {
			return err
		}
	} else if _, err := q.Exec(ctx,
		`DELETE FROM account_spending_limits WHERE account_id = $1`, a.ID); err != nil {
		return err
	}

	if a.SavingGoal != nil {
		if _, err := q.Exec(ctx,
			`INSERT INTO account_saving_goals (account_id, name, target) VALUES ($1, $2, $3)
			 ON CONFLICT (account_id) DO UPDATE SET name = EXCLUDED.name, target = EXCLUDED.target`,
			a.ID, a.SavingGoal.Name, a.SavingGoal.Target,
		); err != nil {
			return err
		}
	} else if _, err := q.Exec(ctx,
		`DELETE FROM account_saving_goals WHERE account_id = $1`, a.ID); err != nil {
		return err
	}

	return nil
}

// decimalPtr adapts an optional decimal for scanning.
func decimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}
