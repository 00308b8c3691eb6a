package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vestra-ai/vestra/internal/usecase"
)

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Every transaction it
// opens is bounded by a wall-clock timeout so a stalled balance update
// cannot hold account row locks indefinitely.
type TxManager struct {
	pool    pgxPool
	timeout time.Duration
}

// NewTxManager creates a new TxManager with the default transaction timeout.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool, timeout: usecase.DefaultTransactionTimeout}
}

// Begin starts a new transaction and returns the context bounding it.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, context.Context, error) {
	txCtx, cancel := context.WithTimeout(ctx, m.timeout)

	tx, err := m.pool.Begin(txCtx)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	return &Tx{tx: tx, cancel: cancel}, txCtx, nil
}

// Tx wraps a pgx transaction together with its deadline.
type Tx struct {
	tx     pgx.Tx
	cancel context.CancelFunc
}

// Commit commits the transaction and releases its deadline.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.cancel()
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. After a commit it returns
// pgx.ErrTxClosed, which deferred-rollback callers ignore.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.cancel()
	return t.tx.Rollback(ctx)
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
