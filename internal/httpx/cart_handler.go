package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/checkout"
	"github.com/ariefcatur/go-marketplace/internal/purchases"
)

type CartService interface {
	GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, productID string, qty int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) (*cart.Cart, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID, idempotencyKey string) (*checkout.Result, error)
}

type PurchaseHistory interface {
	ListForUser(ctx context.Context, userID string) ([]purchases.Purchase, error)
}

type CartHandler struct {
	Carts     CartService
	Catalog   catalog.Lookup
	Checkout  CheckoutService
	Purchases PurchaseHistory
	Log       *zap.Logger
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type updateItemReq struct {
	Quantity *int `json:"quantity"`
}

// Register mounts the cart and purchase routes behind authn.
func (h *CartHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/cart", h.getCart)
		r.Post("/cart/add", h.addItem)
		r.Delete("/cart/remove/{product_id}", h.removeItem)
		r.Put("/cart/update/{product_id}", h.updateItem)
		r.Delete("/cart/clear", h.clear)
		r.Post("/cart/checkout", h.checkout)
		r.Get("/users/purchases", h.listPurchases)
	})
}

func (h *CartHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.Carts.GetOrCreate(ctx, userID(ctx))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}

	items := make([]cartItemDTO, 0, len(c.Items))
	for _, it := range c.Items {
		p, err := h.Catalog.FindByID(ctx, it.ProductID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		items = append(items, cartItemDTO{
			ID:       it.ID,
			Product:  toProduct(p),
			Quantity: it.Quantity,
			AddedAt:  it.AddedAt,
		})
	}
	writeJSON(w, http.StatusOK, cartViewDTO{Cart: c, CartItems: items})
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Product ID is required"})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx := r.Context()
	c, err := h.Carts.AddItem(ctx, userID(ctx), req.ProductID, qty)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, cartMessageDTO{Message: "Item added to cart", Cart: c})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.Carts.RemoveItem(ctx, userID(ctx), chi.URLParam(r, "product_id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, cartMessageDTO{Message: "Item removed from cart", Cart: c})
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}
	if req.Quantity == nil || *req.Quantity == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Quantity is required"})
		return
	}

	ctx := r.Context()
	c, err := h.Carts.UpdateQuantity(ctx, userID(ctx), chi.URLParam(r, "product_id"), *req.Quantity)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, cartMessageDTO{Message: "Cart updated", Cart: c})
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.Carts.Clear(ctx, userID(ctx))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, cartMessageDTO{Message: "Cart cleared", Cart: c})
}

func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.Checkout.Checkout(ctx, userID(ctx), r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"purchase": toPurchase(*res.Purchase)})
}

func (h *CartHandler) listPurchases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.Purchases.ListForUser(ctx, userID(ctx))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	out := make([]purchaseDTO, 0, len(list))
	for _, p := range list {
		out = append(out, toPurchase(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": out})
}
