package cart

import (
	"context"
	"time"
)

// Repository persists whole cart documents.
type Repository interface {
	// GetByUser returns ErrCartNotFound when the user has no cart.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// LockByUser is GetByUser holding a row lock until the surrounding transaction ends.
	LockByUser(ctx context.Context, userID string) (*Cart, error)
	// Create returns ErrConflict when the user already has a cart.
	Create(ctx context.Context, c *Cart) error
	// Replace writes c only if the stored UpdatedAt still equals expected.
	Replace(ctx context.Context, c *Cart, expected time.Time) error
}
