package outbox

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/events"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Relay polls the outbox and publishes pending messages. A message is
// marked published only after Kafka acknowledged it, so delivery is at
// least once.
type Relay struct {
	store    Store
	tx       Transactor
	writer   kafkax.MessageWriter
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewRelay(store Store, tx Transactor, w kafkax.MessageWriter, interval time.Duration, batch int, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{store: store, tx: tx, writer: w, interval: interval, batch: batch, log: log}
}

// Run flushes on every tick until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				n, err := r.Flush(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.log.Warn("outbox flush failed", zap.Error(err))
					}
					break
				}
				if n < r.batch {
					break
				}
			}
		}
	}
}

// Flush publishes one batch and reports how many messages went out.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	var n int
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		pending, err := r.store.Pending(ctx, r.batch)
		if err != nil || len(pending) == 0 {
			return err
		}

		msgs := make([]kafkago.Message, 0, len(pending))
		ids := make([]string, 0, len(pending))
		for _, m := range pending {
			msgs = append(msgs, kafkago.Message{
				Topic: m.Topic,
				Key:   []byte(m.Key),
				Value: m.Payload,
				Headers: []kafkago.Header{
					{Key: events.HeaderEventType, Value: []byte(m.EventType)},
					{Key: events.HeaderEventVersion, Value: []byte("1")},
				},
			})
			ids = append(ids, m.ID)
		}
		if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish outbox batch: %w", err)
		}
		if err := r.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		n = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Debug("outbox flushed", zap.Int("count", n))
	}
	return n, nil
}
