// Package checkout turns a user's cart into a purchase record.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/events"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/outbox"
	"github.com/ariefcatur/go-marketplace/internal/purchases"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

type Carts interface {
	Snapshot(ctx context.Context, userID string) (*cart.Cart, error)
	Empty(ctx context.Context, c *cart.Cart) error
}

type Ledger interface {
	Record(ctx context.Context, userID string, items []purchases.Item, totalCents int64) (*purchases.Purchase, error)
	ListForUser(ctx context.Context, userID string) ([]purchases.Purchase, error)
	Forget(ctx context.Context, userID string)
}

type Outbox interface {
	Add(ctx context.Context, m outbox.Message) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Carts   Carts
	Catalog catalog.Lookup
	Ledger  Ledger
	Outbox  Outbox
	Tx      Transactor
	Redis   redis.Cmdable // idempotency keys; nil disables them
	Service string
	Log     *zap.Logger
}

type Service struct{ d Deps }

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.Catalog = catalog.Fresh(d.Catalog)
	return &Service{d: d}
}

// Result is a finished checkout. Skipped lists cart products that no longer
// resolve in the catalog and were left out of the purchase.
type Result struct {
	Purchase *purchases.Purchase
	Skipped  []string
	Replayed bool
}

// Checkout records a purchase priced from the current catalog and empties
// the cart. Purchase, cart clear and the PurchaseRecorded event commit in
// one transaction. A non-empty idempotencyKey makes retries return the
// purchase created by the first successful call.
func (s *Service) Checkout(ctx context.Context, userID, idempotencyKey string) (*Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Invalid("user id is required")
	}
	log := s.d.Log.With(zap.String("user_id", userID))

	if res := s.replay(ctx, userID, idempotencyKey); res != nil {
		log.Info("checkout replayed", zap.String("purchase_id", res.Purchase.ID))
		return res, nil
	}

	var res Result
	err := s.d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.d.Carts.Snapshot(ctx, userID)
		if errors.Is(err, cart.ErrCartNotFound) {
			return apperr.ErrEmptyCart
		}
		if err != nil {
			return apperr.Storage(err)
		}
		if c.IsEmpty() {
			return apperr.ErrEmptyCart
		}

		items := make([]purchases.Item, 0, len(c.Items))
		for _, ci := range c.Items {
			p, err := s.d.Catalog.FindByID(ctx, ci.ProductID)
			if errors.Is(err, apperr.ErrNotFound) {
				res.Skipped = append(res.Skipped, ci.ProductID)
				continue
			}
			if err != nil {
				return apperr.Storage(err)
			}
			items = append(items, purchases.Item{
				ProductID:  ci.ProductID,
				Title:      p.Title,
				PriceCents: p.PriceCents,
				Quantity:   ci.Quantity,
			})
		}

		pur, err := s.d.Ledger.Record(ctx, userID, items, purchases.Total(items))
		if err != nil {
			return err
		}
		res.Purchase = pur

		if err := s.d.Outbox.Add(ctx, s.purchaseEvent(ctx, pur, res.Skipped)); err != nil {
			return apperr.Storage(err)
		}
		return s.d.Carts.Empty(ctx, c)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrEmptyCart) || errors.Is(err, apperr.ErrInvalidArgument) {
			return nil, err
		}
		log.Error("checkout failed", zap.Error(err))
		return nil, apperr.Storage(err)
	}

	s.d.Ledger.Forget(ctx, userID)
	s.remember(ctx, userID, idempotencyKey, res.Purchase.ID)

	if len(res.Skipped) > 0 {
		log.Warn("checkout skipped stale cart items", zap.Strings("product_ids", res.Skipped))
	}
	log.Info("checkout completed",
		zap.String("purchase_id", res.Purchase.ID),
		zap.Int("items", len(res.Purchase.Items)),
		zap.Int64("total_cents", res.Purchase.TotalCents))
	return &res, nil
}

func (s *Service) purchaseEvent(ctx context.Context, p *purchases.Purchase, skipped []string) outbox.Message {
	items := make([]events.PurchaseItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, events.PurchaseItem{
			ProductID:  it.ProductID,
			Title:      it.Title,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
		})
	}
	env := events.New(events.EventPurchaseRecorded, s.d.Service, p.ID, kafkax.MustMarshal(events.PurchaseRecordedPayload{
		PurchaseID:   p.ID,
		UserID:       p.UserID,
		Items:        items,
		TotalCents:   p.TotalCents,
		PurchaseDate: p.PurchaseDate,
		SkippedItems: skipped,
	}))
	env.TraceID = traceID(ctx)
	return outbox.FromEnvelope(events.TopicPurchaseRecorded, p.UserID, env)
}

func (s *Service) idemKey(userID, key string) string {
	return fmt.Sprintf(redisx.KeyIdemCheckout, userID, key)
}

// replay returns the purchase a previous call with the same key created.
func (s *Service) replay(ctx context.Context, userID, key string) *Result {
	if s.d.Redis == nil || key == "" {
		return nil
	}
	purchaseID, err := s.d.Redis.Get(ctx, s.idemKey(userID, key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.d.Log.Warn("idempotency lookup", zap.Error(err))
		}
		return nil
	}
	list, err := s.d.Ledger.ListForUser(ctx, userID)
	if err != nil {
		s.d.Log.Warn("idempotency replay lookup", zap.Error(err))
		return nil
	}
	for i := range list {
		if list[i].ID == purchaseID {
			return &Result{Purchase: &list[i], Replayed: true}
		}
	}
	return nil
}

func (s *Service) remember(ctx context.Context, userID, key, purchaseID string) {
	if s.d.Redis == nil || key == "" {
		return
	}
	if err := s.d.Redis.Set(ctx, s.idemKey(userID, key), purchaseID, redisx.TTLIdempotency).Err(); err != nil {
		s.d.Log.Warn("idempotency store", zap.Error(err))
	}
}
