package httpx

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/auth"
)

type userKey struct{}

// Verifier turns a bearer token into a user id.
type Verifier interface {
	Verify(raw string) (string, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func RequireUser(v Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var userID string
				if userID, err = v.Verify(raw); err == nil {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
					return
				}
			}
			log.Debug("auth rejected", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Authentication required"})
		})
	}
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
