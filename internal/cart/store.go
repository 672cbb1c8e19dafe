package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/events"
)

const maxWriteAttempts = 3

// Activity receives successful cart mutations. Implementations must not block.
type Activity interface {
	Publish(ctx context.Context, eventType string, c *Cart, productID string, qty int)
}

type nopActivity struct{}

func (nopActivity) Publish(context.Context, string, *Cart, string, int) {}

// Store is the cart service. Each mutation is read, modify, write of the
// whole document; a concurrent write is detected on UpdatedAt and the
// mutation is re-applied to the fresh cart.
type Store struct {
	repo     Repository
	catalog  catalog.Lookup
	activity Activity
	log      *zap.Logger
	now      func() time.Time
}

func NewStore(repo Repository, lookup catalog.Lookup, activity Activity, log *zap.Logger) *Store {
	if activity == nil {
		activity = nopActivity{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		repo:     repo,
		catalog:  lookup,
		activity: activity,
		log:      log,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*Cart, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByUser(ctx, userID)
	if !errors.Is(err, ErrCartNotFound) {
		return c, err
	}

	c = New(userID, s.now())
	err = s.repo.Create(ctx, c)
	if errors.Is(err, ErrConflict) {
		// lost the creation race; the winner's cart is the cart
		return s.repo.GetByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("cart created", zap.String("user_id", userID), zap.String("cart_id", c.ID))
	return c, nil
}

// AddItem merges qty units of productID into the cart. The product must resolve in the catalog.
func (s *Store) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if err := catalog.ValidateID(productID); err != nil {
		return nil, err
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	if _, err := s.catalog.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, userID, true, func(c *Cart) (bool, error) {
		if held := c.Quantity(productID); held > MaxQuantity-qty {
			return false, apperr.Invalid("quantity %d plus %d in cart exceeds %d", qty, held, MaxQuantity)
		}
		c.Add(productID, qty, s.now())
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.activity.Publish(ctx, events.EventCartItemAdded, c, productID, qty)
	return c, nil
}

// RemoveItem drops productID from the cart. Removing an absent product
// returns the cart unchanged.
func (s *Store) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(productID) == "" {
		return nil, apperr.Invalid("product id is required")
	}

	removed := false
	c, err := s.mutate(ctx, userID, false, func(c *Cart) (bool, error) {
		removed = c.Remove(productID, s.now())
		return removed, nil
	})
	if err != nil {
		return nil, err
	}
	if removed {
		s.activity.Publish(ctx, events.EventCartItemRemoved, c, productID, 0)
	}
	return c, nil
}

// UpdateQuantity replaces the quantity of a line item already in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(productID) == "" {
		return nil, apperr.Invalid("product id is required")
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, userID, false, func(c *Cart) (bool, error) {
		if !c.SetQuantity(productID, qty, s.now()) {
			return false, ErrItemNotFound
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.activity.Publish(ctx, events.EventCartItemUpdated, c, productID, qty)
	return c, nil
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *Store) Clear(ctx context.Context, userID string) (*Cart, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	c, err := s.mutate(ctx, userID, false, func(c *Cart) (bool, error) {
		c.Clear(s.now())
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.activity.Publish(ctx, events.EventCartCleared, c, "", 0)
	return c, nil
}

// Snapshot reads the cart for checkout. Inside a transaction the row stays
// locked until commit, so concurrent mutations wait and then retry.
func (s *Store) Snapshot(ctx context.Context, userID string) (*Cart, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	return s.repo.LockByUser(ctx, userID)
}

// Empty clears a cart obtained from Snapshot within the same transaction.
func (s *Store) Empty(ctx context.Context, c *Cart) error {
	expected := c.UpdatedAt
	c.Clear(s.now())
	if err := s.repo.Replace(ctx, c, expected); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, userID string, create bool, fn func(*Cart) (bool, error)) (*Cart, error) {
	for attempt := 1; ; attempt++ {
		var (
			c   *Cart
			err error
		)
		if create {
			c, err = s.GetOrCreate(ctx, userID)
		} else {
			c, err = s.repo.GetByUser(ctx, userID)
		}
		if err != nil {
			return nil, err
		}

		expected := c.UpdatedAt
		changed, err := fn(c)
		if err != nil {
			return nil, err
		}
		if !changed {
			return c, nil
		}

		err = s.repo.Replace(ctx, c, expected)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= maxWriteAttempts {
			return nil, apperr.Storage(err)
		}
		s.log.Debug("cart write conflict, retrying", zap.String("user_id", userID), zap.Int("attempt", attempt))
	}
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Invalid("user id is required")
	}
	return nil
}

func validateQuantity(qty int) error {
	if qty <= 0 {
		return apperr.Invalid("quantity must be a positive integer, got %d", qty)
	}
	if qty > MaxQuantity {
		return apperr.Invalid("quantity must not exceed %d, got %d", MaxQuantity, qty)
	}
	return nil
}
