package usecase

import (
	"context"
	"time"

	"github.com/vestra-ai/vestra/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance int64, updatedAt time.Time) error
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	SumByAccount(ctx context.Context, accountID string) (int64, error)
}

// AppliedEventRepository defines data access for webhook idempotency markers.
type AppliedEventRepository interface {
	// Insert records the event and returns true on first insert, false when
	// the event ID already exists.
	Insert(ctx context.Context, tx Transaction, event *domain.AppliedEvent) (bool, error)
	GetByID(ctx context.Context, eventID string) (*domain.AppliedEvent, error)
}

// SettingRepository defines data access for runtime-mutable settings.
type SettingRepository interface {
	// Get returns the setting value, or "" when the key is unset.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle. Begin returns the
// context bounding the transaction; all in-transaction work must use it.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, context.Context, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient database errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// EventApplier is the slice of the ledger the webhook ingestor needs.
type EventApplier interface {
	ApplyEventOnce(ctx context.Context, input ApplyEventInput) (bool, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// BlobStore persists binary content durably and returns a stable public URL.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType, category string) (string, error)
	// PutFromURL fetches a remote object and re-hosts it durably.
	PutFromURL(ctx context.Context, srcURL, category string) (string, error)
}

// ProviderRequest is the normalized payload sent to a generation backend.
// Every image URL in it is durable by the time the adapter sees it.
type ProviderRequest struct {
	Prompt          string
	NegativePrompt  string
	ImageURLs       []string
	AspectRatio     string
	Resolution      domain.Resolution
	Seed            int64
	EnableWebSearch bool
}

// TaskState is a poll response status from an asynchronous backend.
type TaskState string

const (
	TaskStateRunning   TaskState = "running"
	TaskStateSucceeded TaskState = "succeeded"
	TaskStateFailed    TaskState = "failed"
)

// TaskStatus is one poll observation of an asynchronous task.
type TaskStatus struct {
	State   TaskState
	Output  *domain.ProviderOutput
	Message string
}

// ProviderAdapter is the common capability set of a generation backend.
// Concrete adapters implement exactly one of SyncAdapter or AsyncAdapter.
type ProviderAdapter interface {
	Name() string
}

// SyncAdapter is a backend whose single call returns the final artifact.
type SyncAdapter interface {
	ProviderAdapter
	Generate(ctx context.Context, req ProviderRequest) (*domain.ProviderOutput, error)
}

// AsyncAdapter is a submit-and-poll backend.
type AsyncAdapter interface {
	ProviderAdapter
	Submit(ctx context.Context, req ProviderRequest) (string, error)
	Poll(ctx context.Context, taskID string) (*TaskStatus, error)
}

// ProviderSelector yields the currently active provider name. Reads are
// live: a change takes effect on the next orchestration call without a
// process restart.
type ProviderSelector interface {
	CurrentProvider(ctx context.Context) (string, error)
}
