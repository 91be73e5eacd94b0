package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortkit/internal/handlers"
	"github.com/serroba/shortkit/internal/shortener"
)

// Identity headers are set by the upstream auth layer after it validates the
// session or token. This service trusts them as-is; it never authenticates.
const (
	ownerIDHeader   = "X-Owner-Id"
	ownerKindHeader = "X-Owner-Kind"
)

// Identity establishes the caller identity on the request context. Requests
// carrying a user identity are users, ones with a guest session are guests,
// anything else is anonymous.
func Identity(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		owner := handlers.Owner{Kind: shortener.OwnerNone}

		if id := ctx.Header(ownerIDHeader); id != "" {
			owner.ID = id

			switch ctx.Header(ownerKindHeader) {
			case string(shortener.OwnerUser):
				owner.Kind = shortener.OwnerUser
			default:
				owner.Kind = shortener.OwnerGuest
			}
		}

		newCtx := handlers.ContextWithOwner(ctx.Context(), owner)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}
