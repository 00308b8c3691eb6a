package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppliedEvent marks a payment-provider event as processed. Its existence,
// keyed by EventID, is the idempotency guard against at-least-once webhook
// delivery: the first insert wins, every later attempt is a no-op.
type AppliedEvent struct {
	EventID    string
	AccountID  string
	EventType  string
	Credits    int64
	AmountPaid decimal.Decimal
	Currency   string
	AppliedAt  time.Time
}
