// Package outbox stores events in the same transaction as the state change
// that produced them and relays them to Kafka afterwards.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-marketplace/internal/events"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
)

type Message struct {
	ID        string
	Topic     string
	Key       string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// FromEnvelope wraps an envelope for topic, keyed by key.
func FromEnvelope(topic, key string, env events.Envelope) Message {
	return Message{
		ID:        uuid.NewString(),
		Topic:     topic,
		Key:       key,
		EventType: env.EventType,
		Payload:   kafkax.MustMarshal(env),
	}
}

type Store interface {
	Add(ctx context.Context, m Message) error
	// Pending returns unpublished messages oldest first, locking them for the surrounding transaction.
	Pending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []string) error
}
