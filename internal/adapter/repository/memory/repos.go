package memory

import (
	"context"
	"time"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// Transactional methods receive a *Tx that already holds the store lock
// and mutate state directly; standalone methods take the lock themselves.

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[account.ID]; ok {
		return domain.ErrAccountExists
	}

	copied := *account
	r.store.accounts[account.ID] = &copied

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.lookup(id)
}

// GetByIDForUpdate retrieves an account inside the transaction. The tx
// already serializes all access, which is the lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	mustOwn(tx, r.store)

	return r.lookup(id)
}

// UpdateBalance updates the balance of an account inside the transaction.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance int64, updatedAt time.Time) error {
	mustOwn(tx, r.store)

	account, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = updatedAt

	return nil
}

func (r *AccountRepository) lookup(id string) (*domain.Account, error) {
	account, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	copied := *account

	return &copied, nil
}

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create appends a ledger entry inside the transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	mustOwn(tx, r.store)

	copied := *entry
	r.store.entries = append(r.store.entries, &copied)

	return nil
}

// GetByAccount retrieves an account's entries, newest first.
func (r *EntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var matched []*domain.Entry
	for i := len(r.store.entries) - 1; i >= 0; i-- {
		if r.store.entries[i].AccountID == accountID {
			copied := *r.store.entries[i]
			matched = append(matched, &copied)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// SumByAccount returns the sum of all entry deltas for an account.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sum int64
	for _, entry := range r.store.entries {
		if entry.AccountID == accountID {
			sum += entry.Delta
		}
	}

	return sum, nil
}

// AppliedEventRepository implements usecase.AppliedEventRepository.
type AppliedEventRepository struct {
	store *Store
}

// NewAppliedEventRepository creates a new AppliedEventRepository.
func NewAppliedEventRepository(store *Store) *AppliedEventRepository {
	return &AppliedEventRepository{store: store}
}

// Insert records the event inside the transaction, reporting false on a
// duplicate event ID.
func (r *AppliedEventRepository) Insert(ctx context.Context, tx usecase.Transaction, event *domain.AppliedEvent) (bool, error) {
	mustOwn(tx, r.store)

	if _, ok := r.store.events[event.EventID]; ok {
		return false, nil
	}

	copied := *event
	r.store.events[event.EventID] = &copied

	return true, nil
}

// GetByID retrieves an applied event, or nil when the event is unknown.
func (r *AppliedEventRepository) GetByID(ctx context.Context, eventID string) (*domain.AppliedEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	event, ok := r.store.events[eventID]
	if !ok {
		return nil, nil
	}
	copied := *event

	return &copied, nil
}

// SettingRepository implements usecase.SettingRepository.
type SettingRepository struct {
	store *Store
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(store *Store) *SettingRepository {
	return &SettingRepository{store: store}
}

// Get returns the setting value, or "" when the key is unset.
func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.settings[key], nil
}

// Set upserts the setting value.
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.settings[key] = value

	return nil
}

// mustOwn panics when a transactional method is handed a transaction that
// does not belong to this store. That is a wiring bug, not a runtime
// condition.
func mustOwn(tx usecase.Transaction, store *Store) {
	memTx, ok := tx.(*Tx)
	if !ok || memTx.store != store {
		panic("memory: transaction from a different store")
	}
}
