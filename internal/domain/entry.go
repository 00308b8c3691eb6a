package domain

import "time"

// EntryKind classifies the origin of a ledger entry.
type EntryKind string

const (
	EntryKindUsage           EntryKind = "usage"
	EntryKindDeposit         EntryKind = "deposit"
	EntryKindSubscription    EntryKind = "subscription"
	EntryKindAdminCorrection EntryKind = "admin_correction"
)

// Valid reports whether the kind is one of the known entry kinds.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryKindUsage, EntryKindDeposit, EntryKindSubscription, EntryKindAdminCorrection:
		return true
	}
	return false
}

// Entry is a single immutable ledger record. Entries are append-only and
// never mutated or deleted; an account's balance equals the sum of its
// entry deltas.
type Entry struct {
	ID              string
	AccountID       string
	Delta           int64
	Reason          string
	Kind            EntryKind
	PreviousBalance int64
	CurrentBalance  int64
	CreatedAt       time.Time
}
