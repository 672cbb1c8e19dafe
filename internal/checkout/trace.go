package checkout

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

func traceID(ctx context.Context) string { return middleware.GetReqID(ctx) }
