package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// MaxChargeAmount is the maximum credits a single charge may spend
	MaxChargeAmount = 1_000_000

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ProviderSettingKey is the runtime setting holding the active provider name
	ProviderSettingKey = "generation_provider"

	// ProviderSettingTTL bounds the staleness of the cached provider setting
	ProviderSettingTTL = 30 * time.Second
)
