package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// AppliedEventRepository implements usecase.AppliedEventRepository.
type AppliedEventRepository struct {
	pool *pgxpool.Pool
}

// NewAppliedEventRepository creates a new AppliedEventRepository.
func NewAppliedEventRepository(pool *pgxpool.Pool) *AppliedEventRepository {
	return &AppliedEventRepository{pool: pool}
}

// Insert records the event inside the caller's transaction. ON CONFLICT DO
// NOTHING makes the event ID the idempotency key: a duplicate insert
// affects zero rows and reports false without an error.
func (r *AppliedEventRepository) Insert(ctx context.Context, tx usecase.Transaction, event *domain.AppliedEvent) (bool, error) {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`INSERT INTO applied_events
		   (event_id, account_id, event_type, credits, amount_paid, currency, applied_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.AccountID, event.EventType, event.Credits,
		event.AmountPaid, event.Currency, event.AppliedAt,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// GetByID retrieves an applied event, or nil when the event is unknown.
func (r *AppliedEventRepository) GetByID(ctx context.Context, eventID string) (*domain.AppliedEvent, error) {
	var event domain.AppliedEvent

	err := r.pool.QueryRow(ctx,
		`SELECT event_id, account_id, event_type, credits, amount_paid, currency, applied_at
		 FROM applied_events WHERE event_id = $1`, eventID,
	).Scan(
		&event.EventID, &event.AccountID, &event.EventType, &event.Credits,
		&event.AmountPaid, &event.Currency, &event.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &event, nil
}
