package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// EventRecord is the stored trace of a processed webhook delivery. The
// provider event ID is unique so redeliveries are acknowledged without
// reprocessing.
type EventRecord struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	Provider        string    `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string    `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex"`
	EventType       string    `json:"event_type" gorm:"type:text;not null"`
	CustomerID      string    `json:"customer_id" gorm:"type:text;not null;index"`
	ReceivedAt      time.Time `json:"received_at" gorm:"not null"`
}

func (EventRecord) TableName() string { return "payment_events" }

const EventTypeAccountDeleted = "account_deleted"

// WebhookEvent is the canonical external event parsed by adapters.
type WebhookEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	CustomerID      string
	OccurredAt      time.Time
	RawPayload      []byte
}

// WebhookAdapter verifies and decodes one provider's webhook deliveries.
type WebhookAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*WebhookEvent, error)
}

// WebhookService applies verified external events to the local registry.
type WebhookService interface {
	Ingest(ctx context.Context, payload []byte, headers http.Header) error
}

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
