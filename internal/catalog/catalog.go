// Package catalog resolves product references to their current title and price.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

var ErrProductNotFound = fmt.Errorf("%w: product not found", apperr.ErrNotFound)

type Product struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url"`
	SellerID    *string   `json:"seller_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lookup is the catalog as seen by the cart and checkout.
type Lookup interface {
	FindByID(ctx context.Context, id string) (Product, error)
}

// ValidateID rejects product references that cannot name a product.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Invalid("malformed product id %q", id)
	}
	return nil
}
