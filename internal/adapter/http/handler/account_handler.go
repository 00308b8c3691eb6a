package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vestra-ai/vestra/internal/adapter/http/dto"
	"github.com/vestra-ai/vestra/internal/domain"
)

// LedgerService defines the behavior needed by AccountHandler.
type LedgerService interface {
	CreateAccount(ctx context.Context, id string, signupGrant int64) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	Charge(ctx context.Context, accountID string, amount int64, reason string) (*domain.Entry, error)
	Credit(ctx context.Context, accountID string, amount int64, reason string, kind domain.EntryKind) (*domain.Entry, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

// AccountHandler handles account and ledger HTTP requests.
type AccountHandler struct {
	ledger      LedgerService
	signupGrant int64
}

// NewAccountHandler creates a new AccountHandler. signupGrant is credited
// to every new account.
func NewAccountHandler(ledger LedgerService, signupGrant int64) *AccountHandler {
	return &AccountHandler{
		ledger:      ledger,
		signupGrant: signupGrant,
	}
}

// Create provisions an account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), req.ID, h.signupGrant)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	account, err := h.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Charge spends credits from an account.
func (h *AccountHandler) Charge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.ledger.Charge(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to charge account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Credit adds credits to an account.
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	kind := domain.EntryKind(req.Kind)
	if req.Kind == "" {
		kind = domain.EntryKindAdminCorrection
	}

	entry, err := h.ledger.Credit(r.Context(), id, req.Amount, req.Reason, kind)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to credit account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Entries lists an account's ledger history, newest first.
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.ledger.History(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Limit:   limit,
		Offset:  offset,
	})
}
