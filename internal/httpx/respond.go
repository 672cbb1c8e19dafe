package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind to its status code. Storage and unknown
// errors are logged and answered with a generic message.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		code, msg = http.StatusNotFound, "Product not found"
	case errors.Is(err, cart.ErrCartNotFound):
		code, msg = http.StatusNotFound, "Cart not found"
	case errors.Is(err, cart.ErrItemNotFound):
		code, msg = http.StatusNotFound, "Item not found in cart"
	case errors.Is(err, apperr.ErrNotFound):
		code, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, apperr.ErrEmptyCart):
		code, msg = http.StatusBadRequest, "Cart is empty"
	case errors.Is(err, apperr.ErrInvalidArgument):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrUnauthorized):
		code, msg = http.StatusUnauthorized, "Authentication required"
	default:
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, errorBody{Error: msg})
}
