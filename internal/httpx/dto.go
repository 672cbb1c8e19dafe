package httpx

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/purchases"
	"github.com/ariefcatur/go-marketplace/internal/sales"
)

// money renders cents as a JSON number with two decimals.
func money(cents int64) json.Number {
	return json.Number(decimal.New(cents, -2).StringFixed(2))
}

type productDTO struct {
	ID          string      `json:"_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Price       json.Number `json:"price"`
	ImageURL    string      `json:"image_url"`
	SellerID    *string     `json:"seller_id"`
}

func toProduct(p catalog.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Price:       money(p.PriceCents),
		ImageURL:    p.ImageURL,
		SellerID:    p.SellerID,
	}
}

type cartItemDTO struct {
	ID       string     `json:"_id"`
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
	AddedAt  time.Time  `json:"added_at"`
}

type cartViewDTO struct {
	Cart      *cart.Cart    `json:"cart"`
	CartItems []cartItemDTO `json:"cart_items"`
}

type cartMessageDTO struct {
	Message string     `json:"message"`
	Cart    *cart.Cart `json:"cart"`
}

type purchaseItemDTO struct {
	ID        string      `json:"_id"`
	ProductID string      `json:"product_id"`
	Title     string      `json:"title"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
}

type purchaseDTO struct {
	ID           string            `json:"_id"`
	UserID       string            `json:"user_id"`
	Items        []purchaseItemDTO `json:"items"`
	TotalAmount  json.Number       `json:"total_amount"`
	PurchaseDate time.Time         `json:"purchase_date"`
}

func toPurchase(p purchases.Purchase) purchaseDTO {
	items := make([]purchaseItemDTO, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, purchaseItemDTO{
			ID:        it.ID,
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     money(it.PriceCents),
			Quantity:  it.Quantity,
		})
	}
	return purchaseDTO{
		ID:           p.ID,
		UserID:       p.UserID,
		Items:        items,
		TotalAmount:  money(p.TotalCents),
		PurchaseDate: p.PurchaseDate,
	}
}

type bestsellerDTO struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title,omitempty"`
	UnitsSold int64  `json:"units_sold"`
}

func toBestseller(b sales.Bestseller, title string) bestsellerDTO {
	return bestsellerDTO{ProductID: b.ProductID, Title: title, UnitsSold: b.Units}
}
