package dto

import (
	"time"

	"github.com/vestra-ai/vestra/internal/domain"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Balance   int64     `json:"balance"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Balance:   a.Balance,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Delta           int64     `json:"delta"`
	Reason          string    `json:"reason"`
	Kind            string    `json:"kind"`
	PreviousBalance int64     `json:"previous_balance"`
	CurrentBalance  int64     `json:"current_balance"`
	CreatedAt       time.Time `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		AccountID:       e.AccountID,
		Delta:           e.Delta,
		Reason:          e.Reason,
		Kind:            string(e.Kind),
		PreviousBalance: e.PreviousBalance,
		CurrentBalance:  e.CurrentBalance,
		CreatedAt:       e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse is a page of ledger entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// GenerateResponse is the result of a completed generation.
type GenerateResponse struct {
	AssetURL       string `json:"asset_url"`
	Provider       string `json:"provider"`
	Seed           int64  `json:"seed"`
	CreditsCharged int64  `json:"credits_charged"`
	Balance        int64  `json:"balance"`
}

// ProviderResponse reports the active provider and the selectable set.
type ProviderResponse struct {
	Provider string   `json:"provider"`
	Known    []string `json:"known"`
}
