package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

const testSigningSecret = "whsec_test_secret"

func signedHeader(secret string, payload []byte) http.Header {
	timestamp := "1714000000"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, signature))
	return headers
}

func TestWebhookAdapterRequiresSecret(t *testing.T) {
	if _, err := NewWebhookAdapter("  "); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestWebhookVerify(t *testing.T) {
	adapter, err := NewWebhookAdapter(testSigningSecret)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	payload := []byte(`{"id":"evt_1","type":"customer.deleted"}`)

	if err := adapter.Verify(context.Background(), payload, signedHeader(testSigningSecret, payload)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	if err := adapter.Verify(context.Background(), payload, signedHeader("whsec_other", payload)); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("wrong secret: expected ErrInvalidSignature, got %v", err)
	}

	tampered := []byte(`{"id":"evt_1","type":"customer.deleted","extra":true}`)
	if err := adapter.Verify(context.Background(), tampered, signedHeader(testSigningSecret, payload)); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("tampered payload: expected ErrInvalidSignature, got %v", err)
	}

	headers := http.Header{}
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("missing header: expected ErrInvalidSignature, got %v", err)
	}

	headers.Set("Stripe-Signature", "not-a-signature")
	if err := adapter.Verify(context.Background(), payload, headers); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("malformed header: expected ErrInvalidSignature, got %v", err)
	}
}

func TestWebhookParseCustomerDeleted(t *testing.T) {
	adapter, _ := NewWebhookAdapter(testSigningSecret)
	payload := []byte(`{
		"id": "evt_42",
		"type": "customer.deleted",
		"created": 1714000000,
		"data": {"object": {"id": "cus_123", "object": "customer", "deleted": true}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != paymentdomain.EventTypeAccountDeleted {
		t.Fatalf("expected %q, got %q", paymentdomain.EventTypeAccountDeleted, event.Type)
	}
	if event.CustomerID != "cus_123" {
		t.Fatalf("expected customer cus_123, got %q", event.CustomerID)
	}
	if event.ProviderEventID != "evt_42" {
		t.Fatalf("expected event id evt_42, got %q", event.ProviderEventID)
	}
	if event.Provider != "stripe" {
		t.Fatalf("expected provider stripe, got %q", event.Provider)
	}
}

func TestWebhookParseRejectsAndIgnores(t *testing.T) {
	adapter, _ := NewWebhookAdapter(testSigningSecret)

	if _, err := adapter.Parse(context.Background(), []byte("{not json")); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("malformed json: expected ErrInvalidPayload, got %v", err)
	}

	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"customer.deleted"}`)); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("missing event id: expected ErrInvalidEvent, got %v", err)
	}

	if _, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_1","type":"invoice.paid"}`)); !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("unhandled type: expected ErrEventIgnored, got %v", err)
	}

	noCustomer := []byte(`{"id":"evt_1","type":"customer.deleted","data":{"object":{}}}`)
	if _, err := adapter.Parse(context.Background(), noCustomer); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("missing customer id: expected ErrInvalidEvent, got %v", err)
	}
}
