package cart

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-marketplace/internal/events"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
)

// KafkaActivity streams cart mutations to the cart.activity topic. Delivery
// is best effort.
type KafkaActivity struct {
	Producer *kafkax.Producer
	Service  string
}

func (a *KafkaActivity) Publish(ctx context.Context, eventType string, c *Cart, productID string, qty int) {
	ev := events.New(eventType, a.Service, c.ID, kafkax.MustMarshal(events.CartActivityPayload{
		UserID:    c.UserID,
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  qty,
	}))
	ev.TraceID = middleware.GetReqID(ctx)
	a.Producer.Publish(events.PartitionKey(c.UserID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: events.HeaderEventType, Value: []byte(eventType)},
		kafkago.Header{Key: events.HeaderEventVersion, Value: []byte("1")},
	)
}
