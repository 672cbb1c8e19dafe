package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventPurchaseRecorded = "PurchaseRecorded"

	EventCartItemAdded   = "CartItemAdded"
	EventCartItemRemoved = "CartItemRemoved"
	EventCartItemUpdated = "CartItemUpdated"
	EventCartCleared     = "CartCleared"
)

const (
	TopicPurchaseRecorded = "purchase.recorded"
	TopicCartActivity     = "cart.activity"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// PartitionKey keeps all events of one user on one partition, in order.
func PartitionKey(userID string) []byte { return []byte(userID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// New builds a version 1 envelope around an already encoded payload.
func New(eventType, producer, correlationID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

type PurchaseItem struct {
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

type PurchaseRecordedPayload struct {
	PurchaseID   string         `json:"purchase_id"`
	UserID       string         `json:"user_id"`
	Items        []PurchaseItem `json:"items"`
	TotalCents   int64          `json:"total_cents"`
	PurchaseDate time.Time      `json:"purchase_date"`
	SkippedItems []string       `json:"skipped_items,omitempty"` // stale product ids
}

type CartActivityPayload struct {
	UserID    string `json:"user_id"`
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}
