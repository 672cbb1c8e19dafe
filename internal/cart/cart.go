// Package cart keeps one mutable cart per user. Adding a product that is
// already in the cart merges into the existing line item.
package cart

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

var (
	ErrCartNotFound = fmt.Errorf("%w: cart not found", apperr.ErrNotFound)
	ErrItemNotFound = fmt.Errorf("%w: item not found in cart", apperr.ErrNotFound)

	// ErrConflict means the stored cart changed after it was read.
	ErrConflict = errors.New("cart modified concurrently")
)

// MaxQuantity is the largest quantity a line item may hold. Purchase lines
// store it in a 32-bit column.
const MaxQuantity = math.MaxInt32

type Item struct {
	ID        string    `json:"_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart holds at most one Item per product id. Items keep insertion order.
type Cart struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(userID string, now time.Time) *Cart {
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID string) int {
	if i := c.find(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// Add increments an existing line item or appends a new one.
func (c *Cart) Add(productID string, qty int, now time.Time) {
	if i := c.find(productID); i >= 0 {
		c.Items[i].Quantity += qty
	} else {
		c.Items = append(c.Items, Item{
			ID:        uuid.NewString(),
			ProductID: productID,
			Quantity:  qty,
			AddedAt:   now,
		})
	}
	c.touch(now)
}

// Remove drops the line item for productID and reports whether one existed.
func (c *Cart) Remove(productID string, now time.Time) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch(now)
	return true
}

// SetQuantity replaces the quantity of an existing line item.
func (c *Cart) SetQuantity(productID string, qty int, now time.Time) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = qty
	c.touch(now)
	return true
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []Item{}
	c.touch(now)
}

// touch keeps UpdatedAt strictly increasing; it is the compare-and-swap token.
func (c *Cart) touch(now time.Time) {
	if !now.After(c.UpdatedAt) {
		now = c.UpdatedAt.Add(time.Microsecond)
	}
	c.UpdatedAt = now
}
