package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

// WebhookAdapter verifies Stripe-Signature headers and decodes the events
// this service reacts to. Everything else parses to ErrEventIgnored.
type WebhookAdapter struct {
	signingSecret string
}

func NewWebhookAdapter(signingSecret string) (*WebhookAdapter, error) {
	secret := strings.TrimSpace(signingSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &WebhookAdapter{signingSecret: secret}, nil
}

func (a *WebhookAdapter) Provider() string { return "stripe" }

func (a *WebhookAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	_ = ctx
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.signingSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *WebhookAdapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.WebhookEvent, error) {
	_ = ctx
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "customer.deleted":
		return a.parseCustomerDeleted(event, payload)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

func (a *WebhookAdapter) parseCustomerDeleted(event stripeEvent, payload []byte) (*paymentdomain.WebhookEvent, error) {
	var customer stripeEventCustomer
	if err := json.Unmarshal(event.Data.Object, &customer); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(customer.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.WebhookEvent{
		Provider:        a.Provider(),
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeAccountDeleted,
		CustomerID:      customer.ID,
		OccurredAt:      eventTimestamp(event.Created),
		RawPayload:      payload,
	}, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeEventCustomer struct {
	ID string `json:"id"`
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func eventTimestamp(created int64) time.Time {
	if created == 0 {
		return time.Now().UTC()
	}
	return time.Unix(created, 0).UTC()
}

var _ paymentdomain.WebhookAdapter = (*WebhookAdapter)(nil)
