package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vestra-ai/vestra/internal/adapter/http/dto"
	"github.com/vestra-ai/vestra/internal/domain"
)

// GenerationService runs one generation end to end.
type GenerationService interface {
	Generate(ctx context.Context, input domain.GenerateInput) (*domain.GenerateResult, error)
}

// GenerationHandler composes metering with generation. The account is
// charged only after the provider delivers a durable result; failed
// generations cost nothing.
type GenerationHandler struct {
	generator GenerationService
	ledger    LedgerService
	logger    zerolog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generator GenerationService, ledger LedgerService, logger zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
		ledger:    ledger,
		logger:    logger.With().Str("handler", "generation").Logger(),
	}
}

// Generate runs one metered generation for the account named in the
// X-Account-ID header.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	accountID := r.Header.Get("X-Account-ID")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Account-ID header", "")
		return
	}

	var req dto.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToDomainInput()
	if err := input.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid generation request", err.Error())
		return
	}

	cost := input.Resolution.Cost()

	// Reject before dispatching to the provider when the account cannot
	// afford the generation. The balance can still drop between this check
	// and the charge; the charge itself is the authoritative gate.
	account, err := h.ledger.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}
	if account.Balance < cost {
		writeError(w, http.StatusPaymentRequired, "insufficient credits",
			fmt.Sprintf("balance %d, need %d", account.Balance, cost))
		return
	}

	result, err := h.generator.Generate(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "generation failed", err.Error())
		return
	}

	reason := fmt.Sprintf("generation %s %s", result.Provider, input.Resolution)
	entry, err := h.ledger.Charge(r.Context(), accountID, cost, reason)
	if err != nil {
		// The asset was produced but could not be charged. Return it
		// anyway: losing a paid-for result is worse than losing credits.
		h.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("asset_url", result.AssetURL).
			Int64("cost", cost).
			Msg("generation succeeded but charge failed")

		writeJSON(w, http.StatusOK, dto.GenerateResponse{
			AssetURL: result.AssetURL,
			Provider: result.Provider,
			Seed:     result.Seed,
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.GenerateResponse{
		AssetURL:       result.AssetURL,
		Provider:       result.Provider,
		Seed:           result.Seed,
		CreditsCharged: cost,
		Balance:        entry.CurrentBalance,
	})
}
