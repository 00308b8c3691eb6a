package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vestra-ai/vestra/internal/adapter/http/dto"
)

// SettingsService reads and switches the live generation provider.
type SettingsService interface {
	CurrentProvider(ctx context.Context) (string, error)
	SetProvider(ctx context.Context, name string) error
	KnownProviders() []string
}

// SettingsHandler exposes the admin provider switch.
type SettingsHandler struct {
	settings SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetProvider reports the active provider.
func (h *SettingsHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := h.settings.CurrentProvider(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read provider", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ProviderResponse{
		Provider: provider,
		Known:    h.settings.KnownProviders(),
	})
}

// SetProvider switches the active provider. The switch takes effect for
// requests that start after it, never for in-flight generations.
func (h *SettingsHandler) SetProvider(w http.ResponseWriter, r *http.Request) {
	var req dto.SetProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.settings.SetProvider(r.Context(), req.Provider); err != nil {
		writeError(w, mapDomainError(err), "failed to set provider", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ProviderResponse{
		Provider: req.Provider,
		Known:    h.settings.KnownProviders(),
	})
}
