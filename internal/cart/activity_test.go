package cart

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace/internal/events"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
)

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaActivity_Publish(t *testing.T) {
	w := &captureWriter{}
	p := kafkax.NewProducerWithWriter(w, 4, nil)
	p.Start(context.Background())

	a := &KafkaActivity{Producer: p, Service: "marketplace-api"}
	c := New("u1", time.Now())
	a.Publish(context.Background(), events.EventCartItemAdded, c, lamp, 2)
	p.Close()
	p.WaitClosed()

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, []byte("u1"), m.Key)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	assert.Equal(t, events.EventCartItemAdded, env.EventType)
	assert.Equal(t, "marketplace-api", env.Producer)
	assert.Equal(t, c.ID, env.CorrelationID)

	payload, err := kafkax.UnwrapPayload[events.CartActivityPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, lamp, payload.ProductID)
	assert.Equal(t, 2, payload.Quantity)
}
