// Package memory is the embedded store backend: every repository shares
// one mutex-guarded state snapshot. Transactions take the store lock for
// their whole lifetime and roll back by restoring a copy, which gives the
// same serializable behavior the relational backend gets from row locks.
// Intended for development and tests; state does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// Store holds all in-memory state.
type Store struct {
	mu sync.Mutex

	accounts map[string]*domain.Account
	entries  []*domain.Entry
	events   map[string]*domain.AppliedEvent
	settings map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		events:   make(map[string]*domain.AppliedEvent),
		settings: make(map[string]string),
	}
}

type snapshot struct {
	accounts map[string]*domain.Account
	entries  []*domain.Entry
	events   map[string]*domain.AppliedEvent
	settings map[string]string
}

func (s *Store) snapshot() snapshot {
	accounts := make(map[string]*domain.Account, len(s.accounts))
	for id, acc := range s.accounts {
		copied := *acc
		accounts[id] = &copied
	}

	events := make(map[string]*domain.AppliedEvent, len(s.events))
	for id, ev := range s.events {
		copied := *ev
		events[id] = &copied
	}

	settings := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		settings[k] = v
	}

	return snapshot{
		accounts: accounts,
		entries:  append([]*domain.Entry(nil), s.entries...),
		events:   events,
		settings: settings,
	}
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.entries = snap.entries
	s.events = snap.events
	s.settings = snap.settings
}

// TxManager implements usecase.TransactionManager over the Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin locks the store and snapshots it for rollback. In-memory
// transactions finish under the lock, so the caller's context passes
// through unbounded.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, context.Context, error) {
	m.store.mu.Lock()

	return &Tx{
		store: m.store,
		snap:  m.store.snapshot(),
	}, ctx, nil
}

// Tx is one store-wide transaction.
type Tx struct {
	store *Store
	snap  snapshot
	done  bool
}

// Commit keeps the mutations and releases the store.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()

	return nil
}

// Rollback restores the snapshot and releases the store. Rolling back
// after a commit is a no-op, matching the deferred-rollback idiom.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.mu.Unlock()

	return nil
}
