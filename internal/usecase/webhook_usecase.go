package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/infrastructure/metrics"
)

// CreditGrant maps a payment-provider variant to a ledger action.
type CreditGrant struct {
	Credits int64
	Kind    domain.EntryKind
	Label   string
}

// WebhookUseCase verifies signed payment-provider events and applies them
// to the ledger exactly once. Delivery is at-least-once and unordered;
// correctness rests entirely on event ID uniqueness.
type WebhookUseCase struct {
	secret  []byte
	ledger  EventApplier
	grants  map[string]CreditGrant
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewWebhookUseCase creates a new WebhookUseCase. grants is the static
// variant-to-credits table from configuration.
func NewWebhookUseCase(
	secret []byte,
	ledger EventApplier,
	grants map[string]CreditGrant,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *WebhookUseCase {
	return &WebhookUseCase{
		secret:  secret,
		ledger:  ledger,
		grants:  grants,
		metrics: metrics,
		logger:  logger,
	}
}

// Event types that carry a credit grant. All others are accepted and
// ignored to stay forward-compatible with the upstream event catalog.
const (
	eventOrderCreated        = "order_created"
	eventSubscriptionCreated = "subscription_created"
	eventSubscriptionPayment = "subscription_payment_success"
)

// webhookPayload mirrors the payment provider's event envelope.
type webhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID  string `json:"user_id"`
			EventID string `json:"event_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			VariantID      json.Number `json:"variant_id"`
			FirstOrderItem struct {
				VariantID json.Number `json:"variant_id"`
			} `json:"first_order_item"`
			Total    decimal.Decimal `json:"total"`
			Currency string          `json:"currency"`
		} `json:"attributes"`
	} `json:"data"`
}

// Ingest verifies and applies one raw webhook delivery.
func (uc *WebhookUseCase) Ingest(ctx context.Context, rawPayload []byte, signature string) error {
	if !uc.VerifySignature(rawPayload, signature) {
		if uc.metrics != nil {
			uc.metrics.SignatureFailures.Inc()
		}
		return domain.ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	eventName := payload.Meta.EventName
	if eventName == "" {
		return fmt.Errorf("%w: missing event name", domain.ErrMalformedPayload)
	}

	switch eventName {
	case eventOrderCreated, eventSubscriptionCreated, eventSubscriptionPayment:
	default:
		// Forward-compatible: unknown event types are a success-shaped no-op.
		uc.logger.Info().Str("event", eventName).Msg("ignoring unmapped webhook event")
		uc.observe(eventName, "ignored")
		return nil
	}

	accountID := payload.Meta.CustomData.UserID
	if accountID == "" {
		return fmt.Errorf("%w: missing user_id", domain.ErrMalformedPayload)
	}

	eventID := payload.Meta.CustomData.EventID
	if eventID == "" {
		eventID = payload.Data.ID
	}
	if eventID == "" {
		return fmt.Errorf("%w: missing event id", domain.ErrMalformedPayload)
	}

	variantID := payload.Data.Attributes.FirstOrderItem.VariantID.String()
	if variantID == "" || variantID == "0" {
		variantID = payload.Data.Attributes.VariantID.String()
	}

	grant, ok := uc.grants[variantID]
	if !ok {
		// Unmapped variants are ignored rather than failed so the upstream
		// catalog can grow without breaking delivery.
		uc.logger.Warn().Str("event", eventName).Str("variant", variantID).Msg("ignoring unmapped variant")
		uc.observe(eventName, "ignored")
		return nil
	}

	applied, err := uc.ledger.ApplyEventOnce(ctx, ApplyEventInput{
		EventID:    eventID,
		AccountID:  accountID,
		Credits:    grant.Credits,
		Reason:     fmt.Sprintf("%s (%d credits)", grant.Label, grant.Credits),
		Kind:       grant.Kind,
		EventType:  eventName,
		AmountPaid: payload.Data.Attributes.Total,
		Currency:   payload.Data.Attributes.Currency,
	})
	if err != nil {
		uc.observe(eventName, "error")
		return err
	}

	if !applied {
		// Redelivery: not an error, just note it.
		uc.logger.Warn().Str("event_id", eventID).Msg("duplicate webhook event, skipping")
		if uc.metrics != nil {
			uc.metrics.DuplicateEvents.Inc()
		}
		uc.observe(eventName, "duplicate")
		return nil
	}

	uc.logger.Info().
		Str("event_id", eventID).
		Str("account_id", accountID).
		Int64("credits", grant.Credits).
		Msg("webhook credits applied")
	uc.observe(eventName, "applied")

	return nil
}

// VerifySignature checks the HMAC-SHA256 hex signature over the raw body
// in constant time.
func (uc *WebhookUseCase) VerifySignature(rawPayload []byte, signature string) bool {
	mac := hmac.New(sha256.New, uc.secret)
	mac.Write(rawPayload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (uc *WebhookUseCase) observe(eventType, outcome string) {
	if uc.metrics != nil {
		uc.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	}
}
