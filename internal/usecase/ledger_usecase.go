package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/infrastructure/metrics"
)

// LedgerUseCase exposes charge/credit/query operations over the relational
// store. Balance mutation is delegated to database row locks so that
// multiple process instances can run concurrently.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	eventRepo   AppliedEventRepository
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	eventRepo AppliedEventRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		eventRepo:   eventRepo,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     metrics,
	}
}

// CreateAccount provisions an account at registration time. A non-zero
// signup grant is recorded as a deposit entry so the ledger stays the
// source of truth for the opening balance.
func (uc *LedgerUseCase) CreateAccount(ctx context.Context, id string, signupGrant int64) (*domain.Account, error) {
	now := time.Now().UTC()

	account := &domain.Account{
		ID:        id,
		Balance:   0,
		Status:    domain.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	if signupGrant > 0 {
		if _, err := uc.Credit(ctx, id, signupGrant, "signup grant", domain.EntryKindDeposit); err != nil {
			return nil, err
		}
		account.Balance = signupGrant
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *LedgerUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// Charge spends amount credits from the account. The balance check and
// decrement execute under a row lock in a single transaction, so concurrent
// charges on one account can never overdraw it.
func (uc *LedgerUseCase) Charge(ctx context.Context, accountID string, amount int64, reason string) (*domain.Entry, error) {
	start := time.Now()

	if amount <= 0 || amount > MaxChargeAmount {
		return nil, domain.ErrInvalidAmount
	}
	if err := domain.ValidateReason(reason); err != nil {
		return nil, err
	}

	var entry *domain.Entry

	err := uc.retrier.Retry(ctx, func() error {
		e, err := uc.applyDelta(ctx, accountID, -amount, reason, domain.EntryKindUsage)
		if err != nil {
			return err
		}
		entry = e

		return nil
	})
	if err != nil {
		uc.observeError("charge", err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ChargesApplied.Inc()
		uc.metrics.LedgerOpDuration.WithLabelValues("charge").Observe(time.Since(start).Seconds())
	}

	return entry, nil
}

// Credit adds amount credits to the account. It always succeeds when the
// account exists.
func (uc *LedgerUseCase) Credit(ctx context.Context, accountID string, amount int64, reason string, kind domain.EntryKind) (*domain.Entry, error) {
	start := time.Now()

	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !kind.Valid() || kind == domain.EntryKindUsage {
		return nil, errors.New("invalid credit kind: " + string(kind))
	}
	if err := domain.ValidateReason(reason); err != nil {
		return nil, err
	}

	var entry *domain.Entry

	err := uc.retrier.Retry(ctx, func() error {
		e, err := uc.applyDelta(ctx, accountID, amount, reason, kind)
		if err != nil {
			return err
		}
		entry = e

		return nil
	})
	if err != nil {
		uc.observeError("credit", err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CreditsApplied.WithLabelValues(string(kind)).Inc()
		uc.metrics.LedgerOpDuration.WithLabelValues("credit").Observe(time.Since(start).Seconds())
	}

	return entry, nil
}

// ApplyEventInput carries one payment-provider event into the ledger.
type ApplyEventInput struct {
	EventID    string
	AccountID  string
	Credits    int64
	Reason     string
	Kind       domain.EntryKind
	EventType  string
	AmountPaid decimal.Decimal
	Currency   string
}

// ApplyEventOnce credits the account for a payment event at most once.
// The AppliedEvent insert and the credit share one transaction: a second
// delivery collides on the event ID and rolls the credit back, returning
// applied=false with no side effects.
func (uc *LedgerUseCase) ApplyEventOnce(ctx context.Context, input ApplyEventInput) (bool, error) {
	if input.EventID == "" {
		return false, &domain.ValidationError{Field: "event_id", Reason: "cannot be empty"}
	}
	if input.Credits <= 0 {
		return false, domain.ErrInvalidAmount
	}

	var applied bool

	err := uc.retrier.Retry(ctx, func() error {
		ok, err := uc.applyEventOnce(ctx, input)
		if err != nil {
			return err
		}
		applied = ok

		return nil
	})
	if err != nil {
		uc.observeError("apply_event", err)
		return false, err
	}

	if applied && uc.metrics != nil {
		uc.metrics.CreditsApplied.WithLabelValues(string(input.Kind)).Inc()
	}

	return applied, nil
}

func (uc *LedgerUseCase) applyEventOnce(ctx context.Context, input ApplyEventInput) (bool, error) {
	tx, txCtx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	inserted, err := uc.eventRepo.Insert(txCtx, tx, &domain.AppliedEvent{
		EventID:    input.EventID,
		AccountID:  input.AccountID,
		EventType:  input.EventType,
		Credits:    input.Credits,
		AmountPaid: input.AmountPaid,
		Currency:   input.Currency,
		AppliedAt:  time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		// Duplicate delivery: the deferred rollback discards everything.
		return false, nil
	}

	if _, err := uc.applyDeltaInTx(txCtx, tx, input.AccountID, input.Credits, input.Reason, input.Kind); err != nil {
		return false, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return false, err
	}

	return true, nil
}

// History lists an account's ledger entries, newest first.
func (uc *LedgerUseCase) History(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	return uc.entryRepo.GetByAccount(ctx, accountID, limit, offset)
}

// applyDelta runs one balance change as a single transaction: lock the
// account row, validate, write the new balance, append exactly one entry.
func (uc *LedgerUseCase) applyDelta(ctx context.Context, accountID string, delta int64, reason string, kind domain.EntryKind) (*domain.Entry, error) {
	tx, txCtx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.applyDeltaInTx(txCtx, tx, accountID, delta, reason, kind)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return entry, nil
}

func (uc *LedgerUseCase) applyDeltaInTx(ctx context.Context, tx Transaction, accountID string, delta int64, reason string, kind domain.EntryKind) (*domain.Entry, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	if delta < 0 {
		if err := account.ValidateCharge(-delta); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	newBalance := account.ApplyDelta(delta)

	entry := &domain.Entry{
		ID:              uc.idGen.Generate(),
		AccountID:       accountID,
		Delta:           delta,
		Reason:          reason,
		Kind:            kind,
		PreviousBalance: account.Balance,
		CurrentBalance:  newBalance,
		CreatedAt:       now,
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, accountID, newBalance, now); err != nil {
		return nil, err
	}

	return entry, nil
}

func (uc *LedgerUseCase) observeError(op string, err error) {
	if uc.metrics == nil {
		return
	}
	if errors.Is(err, domain.ErrInsufficientCredits) {
		uc.metrics.InsufficientCredits.Inc()
		return
	}
	uc.metrics.LedgerErrors.WithLabelValues(op).Inc()
}
