package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")

	// Webhook errors
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// Generation errors
	ErrUnknownProvider = errors.New("unknown generation provider")
)

// ValidationError reports a bad generation input. It is returned before any
// external call or charge.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// ProviderError reports that an upstream backend rejected the request or
// returned an unusable result. Retryable distinguishes transient upstream
// faults from explicit rejections.
type ProviderError struct {
	Provider  string
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// TimeoutError reports that an async job exhausted its polling budget
// without reaching a terminal status. Always retryable by the caller.
type TimeoutError struct {
	Provider string
	TaskID   string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s task %s: no terminal status after %d attempts (%s)",
		e.Provider, e.TaskID, e.Attempts, e.Elapsed)
}

// StorageError reports a failed durable persistence of generation input or
// output. A storage failure after a provider success is a system fault, not
// a user error, and must never be silently swallowed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
