package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

const fetchTimeout = 5 * time.Second

// Cached is a read-through Redis cache in front of another Lookup. Misses
// are not cached, so a product created later becomes visible immediately.
type Cached struct {
	next  Lookup
	redis redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
	sfg   singleflight.Group
}

func NewCached(next Lookup, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, redis: rdb, ttl: ttl, log: log}
}

func (c *Cached) FindByID(ctx context.Context, id string) (Product, error) {
	key := fmt.Sprintf(redisx.KeyCatalogProduct, id)

	if b, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var p Product
		if err := json.Unmarshal(b, &p); err == nil {
			return p, nil
		}
		c.log.Warn("catalog cache entry corrupt", zap.String("product_id", id))
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("catalog cache get", zap.String("product_id", id), zap.Error(err))
	}

	// the fetch is shared by every waiter, so it must not die with the first one
	v, err, _ := c.sfg.Do(id, func() (any, error) {
		ctx, cancel := context.WithTimeout(postgres.Detach(ctx), fetchTimeout)
		defer cancel()
		p, err := c.next.FindByID(ctx, id)
		if err != nil {
			return Product{}, err
		}
		b, _ := json.Marshal(p)
		if err := c.redis.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn("catalog cache set", zap.String("product_id", id), zap.Error(err))
		}
		return p, nil
	})
	if err != nil {
		return Product{}, err
	}
	return v.(Product), nil
}

// Fresh returns l without any read cache in front of it. Checkout prices
// from Fresh so deleted or repriced products are seen immediately.
func Fresh(l Lookup) Lookup {
	if c, ok := l.(*Cached); ok {
		return c.next
	}
	return l
}
