package purchases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

// Ledger records purchases and serves a user's history, cached in Redis.
// There is no update or delete.
type Ledger struct {
	repo  Repository
	redis redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

// NewLedger builds a ledger. A nil rdb disables the history cache.
func NewLedger(repo Repository, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		repo:  repo,
		redis: rdb,
		ttl:   ttl,
		log:   log,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Record assigns ids and the purchase date, then stores the purchase.
// totalCents must equal the sum of the item lines. Callers recording inside
// a transaction call Forget once it commits.
func (l *Ledger) Record(ctx context.Context, userID string, items []Item, totalCents int64) (*Purchase, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Invalid("user id is required")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, apperr.Invalid("quantity for product %s must be positive", it.ProductID)
		}
		if it.PriceCents < 0 {
			return nil, apperr.Invalid("price for product %s is negative", it.ProductID)
		}
	}
	if sum := Total(items); sum != totalCents {
		return nil, apperr.Invalid("total %d does not match item sum %d", totalCents, sum)
	}

	p := &Purchase{
		ID:           uuid.NewString(),
		UserID:       userID,
		Items:        make([]Item, len(items)),
		TotalCents:   totalCents,
		PurchaseDate: l.now(),
	}
	for i, it := range items {
		it.ID = uuid.NewString()
		p.Items[i] = it
	}

	if err := l.repo.Insert(ctx, p); err != nil {
		return nil, apperr.Storage(err)
	}
	return p, nil
}

// ListForUser returns the user's purchases newest first. Cache entries are
// keyed by a per-user version that Forget bumps, so a list read before a
// purchase committed can never be served after it.
func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]Purchase, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Invalid("user id is required")
	}

	key, cached := l.cacheKey(ctx, userID)
	if cached {
		b, err := l.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var out []Purchase
			if json.Unmarshal(b, &out) == nil {
				return out, nil
			}
			l.log.Warn("purchases cache entry corrupt", zap.String("user_id", userID))
		case !errors.Is(err, redis.Nil):
			l.log.Warn("purchases cache get", zap.String("user_id", userID), zap.Error(err))
		}
	}

	out, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if out == nil {
		out = []Purchase{}
	}

	if cached {
		b, _ := json.Marshal(out)
		if err := l.redis.Set(ctx, key, b, l.ttl).Err(); err != nil {
			l.log.Warn("purchases cache set", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return out, nil
}

// cacheKey reports false when the cache is disabled or its version is unreadable.
func (l *Ledger) cacheKey(ctx context.Context, userID string) (string, bool) {
	if l.redis == nil {
		return "", false
	}
	ver, err := l.redis.Get(ctx, fmt.Sprintf(redisx.KeyPurchasesVersion, userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warn("purchases cache version", zap.String("user_id", userID), zap.Error(err))
		return "", false
	}
	return fmt.Sprintf(redisx.KeyPurchases, userID, ver), true
}

// Forget invalidates the cached history of userID.
func (l *Ledger) Forget(ctx context.Context, userID string) {
	if l.redis == nil {
		return
	}
	vkey := fmt.Sprintf(redisx.KeyPurchasesVersion, userID)
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, redisx.TTLPurchasesVersion)
		return nil
	})
	if err != nil {
		l.log.Warn("purchases cache invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}
