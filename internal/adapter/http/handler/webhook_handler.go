package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// Maximum webhook body size. Payment events are small; anything larger
// is hostile.
const maxWebhookBody = 1 << 20

// WebhookService verifies and applies one raw payment event delivery.
type WebhookService interface {
	Ingest(ctx context.Context, rawPayload []byte, signature string) error
}

// WebhookHandler receives payment-provider callbacks. Signature
// verification happens over the raw body, so the body must not be decoded
// before the service has seen the exact bytes on the wire.
type WebhookHandler struct {
	ingestor WebhookService
	logger   zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(ingestor WebhookService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestor: ingestor,
		logger:   logger.With().Str("handler", "webhook").Logger(),
	}
}

// HandlePayment processes one payment event delivery.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	signature := r.Header.Get("X-Signature")

	if err := h.ingestor.Ingest(r.Context(), body, signature); err != nil {
		status := mapDomainError(err)
		if status >= http.StatusInternalServerError {
			// A 5xx tells the provider to redeliver. Idempotent apply
			// makes the retry safe.
			h.logger.Error().Err(err).Msg("webhook processing failed")
		}
		writeError(w, status, "webhook rejected", err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}
