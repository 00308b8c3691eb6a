package domain

import "time"

// AccountStatus enumerates account lifecycle states.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account holds a prepaid credit balance. The balance is a materialized
// projection of the account's ledger entries; the entries are the source
// of truth and the two must always agree.
type Account struct {
	ID        string
	Balance   int64
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateCharge checks whether the account can be charged by amount
// without driving the balance below zero.
func (a *Account) ValidateCharge(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Status == AccountStatusDisabled {
		return ErrAccountDisabled
	}
	if a.Balance-amount < 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// ApplyDelta returns the balance after applying a signed delta.
func (a *Account) ApplyDelta(delta int64) int64 {
	return a.Balance + delta
}
