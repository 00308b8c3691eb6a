package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc           func(ctx context.Context, account *domain.Account) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	UpdateBalanceFunc    func(ctx context.Context, tx usecase.Transaction, id string, balance int64, updatedAt time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed installs an account directly.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Balance = balance
		acc.UpdatedAt = updatedAt
		return nil
	}
	return domain.ErrAccountNotFound
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries []*domain.Entry

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByAccountFunc func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	SumByAccountFunc func(ctx context.Context, accountID string) (int64, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockEntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if m.GetByAccountFunc != nil {
		return m.GetByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountID == accountID {
			out = append(out, m.entries[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockEntryRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	if m.SumByAccountFunc != nil {
		return m.SumByAccountFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum += e.Delta
		}
	}
	return sum, nil
}

// All returns every recorded entry.
func (m *MockEntryRepository) All() []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Entry(nil), m.entries...)
}

// MockAppliedEventRepository is a mock implementation of AppliedEventRepository.
type MockAppliedEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.AppliedEvent

	InsertFunc  func(ctx context.Context, tx usecase.Transaction, event *domain.AppliedEvent) (bool, error)
	GetByIDFunc func(ctx context.Context, eventID string) (*domain.AppliedEvent, error)
}

func NewMockAppliedEventRepository() *MockAppliedEventRepository {
	return &MockAppliedEventRepository{
		events: make(map[string]*domain.AppliedEvent),
	}
}

func (m *MockAppliedEventRepository) Insert(ctx context.Context, tx usecase.Transaction, event *domain.AppliedEvent) (bool, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.EventID]; ok {
		return false, nil
	}
	m.events[event.EventID] = event
	return true, nil
}

func (m *MockAppliedEventRepository) GetByID(ctx context.Context, eventID string) (*domain.AppliedEvent, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, eventID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ev, ok := m.events[eventID]; ok {
		return ev, nil
	}
	return nil, nil
}

// MockSettingRepository is a mock implementation of SettingRepository.
type MockSettingRepository struct {
	mu       sync.RWMutex
	settings map[string]string

	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key, value string) error
}

func NewMockSettingRepository() *MockSettingRepository {
	return &MockSettingRepository{
		settings: make(map[string]string),
	}
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MockSettingRepository) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
// Begin serializes transactions with a mutex so concurrent use-case calls
// see the same atomicity a database would give them.
type MockTransactionManager struct {
	mu sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, context.Context, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, context.Context, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	tx := &MockTransaction{}
	done := func(context.Context) error {
		m.mu.Unlock()
		return nil
	}
	var once sync.Once
	tx.CommitFunc = func(ctx context.Context) error {
		tx.Committed = true
		once.Do(func() { _ = done(ctx) })
		return nil
	}
	tx.RollbackFunc = func(ctx context.Context) error {
		once.Do(func() { _ = done(ctx) })
		return nil
	}
	return tx, ctx, nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%04d", m.counter)
}

// NopRetrier runs the operation once without retrying.
type NopRetrier struct{}

func (NopRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu     sync.RWMutex
	values map[string]string

	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
