// Package sales projects recorded purchases into a bestseller ranking kept in Redis.
package sales

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/events"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type Bestseller struct {
	ProductID string `json:"product_id"`
	Units     int64  `json:"units_sold"`
}

type Projector struct {
	Redis redis.Cmdable
	Name  string // dedup namespace
	Log   *zap.Logger
}

// HandlePurchaseRecorded is installed as the consumer handler. Each event id
// is counted once; a failed increment releases the claim so the redelivered
// message is counted.
func (p *Projector) HandlePurchaseRecorded(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.log().Warn("drop undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != events.EventPurchaseRecorded {
		return nil
	}

	var pl events.PurchaseRecordedPayload
	if err := json.Unmarshal(env.Payload, &pl); err != nil {
		p.log().Warn("drop undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, p.Name, env.EventID)
	won, err := redisx.Claim(ctx, p.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !won {
		p.log().Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	_, err = p.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, it := range pl.Items {
			pipe.ZIncrBy(ctx, redisx.KeyBestsellers, float64(it.Quantity), it.ProductID)
		}
		return nil
	})
	if err != nil {
		_ = p.Redis.Del(ctx, dkey).Err()
		return err
	}
	p.log().Info("purchase projected",
		zap.String("purchase_id", pl.PurchaseID),
		zap.Int("items", len(pl.Items)))
	return nil
}

// Bestsellers returns up to limit products ordered by units sold. limit is
// clamped to [1, MaxLimit]; zero means DefaultLimit.
func (p *Projector) Bestsellers(ctx context.Context, limit int) ([]Bestseller, error) {
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0:
		return nil, apperr.Invalid("limit must be positive, got %d", limit)
	case limit > MaxLimit:
		limit = MaxLimit
	}
	zs, err := p.Redis.ZRevRangeWithScores(ctx, redisx.KeyBestsellers, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, apperr.Storage(err)
	}
	out := make([]Bestseller, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, Bestseller{ProductID: id, Units: int64(z.Score)})
	}
	return out, nil
}

func (p *Projector) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
