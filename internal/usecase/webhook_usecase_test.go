package usecase_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
	"github.com/vestra-ai/vestra/internal/usecase/mocks"
)

var webhookSecret = []byte("test-webhook-secret")

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, webhookSecret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func testGrants() map[string]usecase.CreditGrant {
	return map[string]usecase.CreditGrant{
		"111": {Credits: 500, Kind: domain.EntryKindDeposit, Label: "Starter pack"},
		"222": {Credits: 1100, Kind: domain.EntryKindDeposit, Label: "Creator pack"},
		"333": {Credits: 3500, Kind: domain.EntryKindSubscription, Label: "Pro plan"},
	}
}

func orderPayload(eventID, userID, variantID string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {
			"event_name": "order_created",
			"custom_data": {"user_id": %q, "event_id": %q}
		},
		"data": {
			"id": "order-9000",
			"attributes": {
				"first_order_item": {"variant_id": %s},
				"total": "9.99",
				"currency": "USD"
			}
		}
	}`, userID, eventID, variantID))
}

func TestWebhookUseCase_Ingest_AppliesCredits(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	ledger.EXPECT().
		ApplyEventOnce(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, input usecase.ApplyEventInput) (bool, error) {
			if input.EventID != "evt-1" {
				t.Errorf("expected event ID evt-1, got %q", input.EventID)
			}
			if input.AccountID != "user-1" {
				t.Errorf("expected account user-1, got %q", input.AccountID)
			}
			if input.Credits != 1100 {
				t.Errorf("expected 1100 credits for variant 222, got %d", input.Credits)
			}
			if input.Kind != domain.EntryKindDeposit {
				t.Errorf("expected deposit kind, got %q", input.Kind)
			}
			if input.Currency != "USD" {
				t.Errorf("expected USD, got %q", input.Currency)
			}
			if input.AmountPaid.String() != "9.99" {
				t.Errorf("expected amount 9.99, got %s", input.AmountPaid)
			}
			return true, nil
		})

	payload := orderPayload("evt-1", "user-1", "222")
	if err := uc.Ingest(context.Background(), payload, sign(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookUseCase_Ingest_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	payload := orderPayload("evt-1", "user-1", "222")

	tests := []struct {
		name      string
		signature string
	}{
		{name: "empty signature", signature: ""},
		{name: "wrong signature", signature: sign([]byte("other body"))},
		{name: "truncated signature", signature: sign(payload)[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := uc.Ingest(context.Background(), payload, tt.signature)
			if !errors.Is(err, domain.ErrInvalidSignature) {
				t.Fatalf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}
}

func TestWebhookUseCase_Ingest_TamperedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	payload := orderPayload("evt-1", "user-1", "222")
	signature := sign(payload)

	tampered := orderPayload("evt-1", "user-1", "333")

	err := uc.Ingest(context.Background(), tampered, signature)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered body, got %v", err)
	}
}

func TestWebhookUseCase_Ingest_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "not json", payload: []byte("not json at all")},
		{name: "missing event name", payload: []byte(`{"meta": {"custom_data": {"user_id": "u"}}}`)},
		{
			name:    "missing user id",
			payload: []byte(`{"meta": {"event_name": "order_created", "custom_data": {"event_id": "evt-1"}}}`),
		},
		{
			name:    "missing event id",
			payload: []byte(`{"meta": {"event_name": "order_created", "custom_data": {"user_id": "user-1"}}}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ledger := mocks.NewMockEventApplier(ctrl)
			uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

			err := uc.Ingest(context.Background(), tt.payload, sign(tt.payload))
			if !errors.Is(err, domain.ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestWebhookUseCase_Ingest_UnknownEventIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	payload := []byte(`{"meta": {"event_name": "subscription_paused", "custom_data": {"user_id": "user-1"}}}`)

	// No ledger call expected.
	if err := uc.Ingest(context.Background(), payload, sign(payload)); err != nil {
		t.Fatalf("unknown event types must be accepted, got %v", err)
	}
}

func TestWebhookUseCase_Ingest_UnmappedVariantIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	payload := orderPayload("evt-1", "user-1", "99999")

	if err := uc.Ingest(context.Background(), payload, sign(payload)); err != nil {
		t.Fatalf("unmapped variants must be accepted, got %v", err)
	}
}

func TestWebhookUseCase_Ingest_VariantFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	// Subscription events carry the variant on attributes directly.
	payload := []byte(`{
		"meta": {
			"event_name": "subscription_created",
			"custom_data": {"user_id": "user-1", "event_id": "evt-sub-1"}
		},
		"data": {
			"id": "sub-1",
			"attributes": {"variant_id": 333, "total": 29, "currency": "USD"}
		}
	}`)

	ledger.EXPECT().
		ApplyEventOnce(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, input usecase.ApplyEventInput) (bool, error) {
			if input.Credits != 3500 {
				t.Errorf("expected 3500 credits for variant 333, got %d", input.Credits)
			}
			if input.Kind != domain.EntryKindSubscription {
				t.Errorf("expected subscription kind, got %q", input.Kind)
			}
			return true, nil
		})

	if err := uc.Ingest(context.Background(), payload, sign(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookUseCase_Ingest_EventIDFallsBackToDataID(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockEventApplier(ctrl)
	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	payload := orderPayload("", "user-1", "111")

	ledger.EXPECT().
		ApplyEventOnce(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, input usecase.ApplyEventInput) (bool, error) {
			if input.EventID != "order-9000" {
				t.Errorf("expected fallback to data.id, got %q", input.EventID)
			}
			return true, nil
		})

	if err := uc.Ingest(context.Background(), payload, sign(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// End to end against the real ledger: two deliveries of one event credit
// the account exactly once.
func TestWebhookUseCase_Ingest_DuplicateDelivery(t *testing.T) {
	accounts := mocks.NewMockAccountRepository()
	accounts.Seed(activeAccount("user-1", 0))
	entries := mocks.NewMockEntryRepository()
	ledger := newLedger(accounts, entries, mocks.NewMockAppliedEventRepository())

	uc := usecase.NewWebhookUseCase(webhookSecret, ledger, testGrants(), nil, zerolog.Nop())

	payload := orderPayload("evt-dup", "user-1", "111")
	signature := sign(payload)

	for i := 0; i < 3; i++ {
		if err := uc.Ingest(context.Background(), payload, signature); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	account, err := ledger.GetAccount(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Balance != 500 {
		t.Errorf("expected balance 500 after redeliveries, got %d", account.Balance)
	}
	if len(entries.All()) != 1 {
		t.Errorf("expected exactly 1 ledger entry, got %d", len(entries.All()))
	}
}
