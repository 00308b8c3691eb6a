package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create appends a ledger entry inside the caller's transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx,
		`INSERT INTO ledger_entries
		   (id, account_id, delta, reason, kind, previous_balance, current_balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.AccountID, entry.Delta, entry.Reason, string(entry.Kind),
		entry.PreviousBalance, entry.CurrentBalance, entry.CreatedAt,
	)

	return err
}

// GetByAccount retrieves an account's entries, newest first.
func (r *EntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, delta, reason, kind, previous_balance, current_balance, created_at
		 FROM ledger_entries
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry

	for rows.Next() {
		var entry domain.Entry
		var kind string

		if err := rows.Scan(
			&entry.ID, &entry.AccountID, &entry.Delta, &entry.Reason, &kind,
			&entry.PreviousBalance, &entry.CurrentBalance, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Kind = domain.EntryKind(kind)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// SumByAccount returns the sum of all entry deltas for an account. A
// reconciliation check: the sum must equal the stored balance.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = $1`,
		accountID,
	).Scan(&sum)

	return sum, err
}
