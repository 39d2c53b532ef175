package postgres

import (
	"context"
	"time"

	"github.com/vankuijk/walletapp-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id,
	source_type, source_account_id, source_iban, source_name,
	destination_type, destination_account_id, destination_iban, destination_name,
	amount, description, ts,
	source_balance_before, destination_balance_before,
	reversal_of, deleted_at, created_at, updated_at`

// CreateTransaction persists entry together with the account mutations
// produced by mutate, all in one database transaction. Internal accounts on
// either side are locked with SELECT ... FOR UPDATE, in ascending id order so
// two concurrent transfers over the same pair cannot deadlock. This is what
// serializes the evaluate-then-debit sequence per account.
func (s *Store) CreateTransaction(ctx context.Context, entry *domain.Transaction, mutate func(source, destination *domain.Account) error) (*domain.Transaction, error) {
	var created *domain.Transaction
	err := s.guard(func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		var source, destination *domain.Account
		for _, id := range lockOrder(entry.Source.AccountID, entry.Destination.AccountID) {
			a, err := loadAccount(ctx, tx, id, true)
			if err != nil {
				return mapPgError(err, "account", id.String())
			}
			if entry.Source.AccountID != nil && *entry.Source.AccountID == id {
				source = a
			}
			if entry.Destination.AccountID != nil && *entry.Destination.AccountID == id {
				destination = a
			}
		}

		if err := mutate(source, destination); err != nil {
			return err
		}

		if source != nil {
			if err := saveComponents(ctx, tx, source); err != nil {
				return err
			}
		}
		if destination != nil && (source == nil || destination.ID != source.ID) {
			if err := saveComponents(ctx, tx, destination); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO transactions (`+transactionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			entry.ID,
			string(entry.Source.Type), entry.Source.AccountID, nullIfEmpty(entry.Source.IBAN), nullIfEmpty(entry.Source.Name),
			string(entry.Destination.Type), entry.Destination.AccountID, nullIfEmpty(entry.Destination.IBAN), nullIfEmpty(entry.Destination.Name),
			entry.Amount, entry.Description, entry.Timestamp,
			decimalPtr(entry.SourceBalanceBefore), decimalPtr(entry.DestinationBalanceBefore),
			entry.ReversalOf, nil, entry.CreatedAt, entry.UpdatedAt,
		); err != nil {
			return mapPgError(err, "transaction", entry.ID.String())
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		created = entry
		return nil
	})
	return created, err
}

// GetTransaction fetches one ledger entry by id.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var entry *domain.Transaction
	err := s.guard(func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND deleted_at IS NULL`, id)
		t, err := scanTransaction(row)
		if err != nil {
			return mapPgError(err, "transaction", id.String())
		}
		entry = t
		return nil
	})
	return entry, err
}

// ListTransactions returns the account's ledger entries, newest first.
func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, error) {
	var entries []domain.Transaction
	err := s.guard(func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT `+transactionColumns+` FROM transactions
			 WHERE (source_account_id = $1 OR destination_account_id = $1) AND deleted_at IS NULL
			 ORDER BY ts DESC
			 LIMIT $2 OFFSET $3`,
			accountID, pageSize, (page-1)*pageSize)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = make([]domain.Transaction, 0, pageSize)
		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			entries = append(entries, *t)
		}
		return rows.Err()
	})
	return entries, err
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                    domain.Transaction
		srcIBAN, srcName     *string
		dstIBAN, dstName     *string
		srcBefore, dstBefore *decimal.Decimal
		deletedAt            *time.Time
	)
	if err := row.Scan(
		&t.ID,
		&t.Source.Type, &t.Source.AccountID, &srcIBAN, &srcName,
		&t.Destination.Type, &t.Destination.AccountID, &dstIBAN, &dstName,
		&t.Amount, &t.Description, &t.Timestamp,
		&srcBefore, &dstBefore,
		&t.ReversalOf, &deletedAt, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if srcIBAN != nil {
		t.Source.IBAN = *srcIBAN
	}
	if srcName != nil {
		t.Source.Name = *srcName
	}
	if dstIBAN != nil {
		t.Destination.IBAN = *dstIBAN
	}
	if dstName != nil {
		t.Destination.Name = *dstName
	}
	t.SourceBalanceBefore = srcBefore
	t.DestinationBalanceBefore = dstBefore
	if deletedAt != nil {
		t.Deleted = &domain.Deletion{At: *deletedAt}
	}
	return &t, nil
}

// lockOrder returns the distinct internal account ids involved, in a stable
// ascending order.
func lockOrder(a, b *uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	if a != nil {
		ids = append(ids, *a)
	}
	if b != nil && (a == nil || *b != *a) {
		ids = append(ids, *b)
	}
	if len(ids) == 2 && ids[1].String() < ids[0].String() {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return ids
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
