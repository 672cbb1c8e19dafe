// Package purchases is the append-only ledger of completed checkouts.
package purchases

import (
	"context"
	"time"
)

// Item is a frozen copy of a product line at purchase time.
type Item struct {
	ID         string `json:"_id"`
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

func (it Item) LineCents() int64 { return it.PriceCents * int64(it.Quantity) }

type Purchase struct {
	ID           string    `json:"_id"`
	UserID       string    `json:"user_id"`
	Items        []Item    `json:"items"`
	TotalCents   int64     `json:"total_cents"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// Total sums unit price times quantity.
func Total(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.LineCents()
	}
	return total
}

type Repository interface {
	Insert(ctx context.Context, p *Purchase) error
	// ListByUser returns purchases newest first.
	ListByUser(ctx context.Context, userID string) ([]Purchase, error)
}
