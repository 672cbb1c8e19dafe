package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/sales"
)

type BestsellerReader interface {
	Bestsellers(ctx context.Context, limit int) ([]sales.Bestseller, error)
}

type SalesHandler struct {
	Sales   BestsellerReader
	Catalog catalog.Lookup
	Log     *zap.Logger
}

func (h *SalesHandler) Register(r chi.Router) {
	r.Get("/products/bestsellers", h.bestsellers)
}

func (h *SalesHandler) bestsellers(w http.ResponseWriter, r *http.Request) {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	ctx := r.Context()
	top, err := h.Sales.Bestsellers(ctx, limit)
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := make([]bestsellerDTO, 0, len(top))
	for _, b := range top {
		// titles are best effort; a deleted product still shows its counter
		var title string
		if p, err := h.Catalog.FindByID(ctx, b.ProductID); err == nil {
			title = p.Title
		}
		out = append(out, toBestseller(b, title))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bestsellers": out})
}
