package handlers

import (
	"context"

	"github.com/serroba/shortkit/internal/shortener"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata fed into click analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to the context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from the context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

type ownerKey struct{}

// Owner is the caller identity established by the upstream auth layer.
// Requests without identity headers are anonymous guests.
type Owner struct {
	Kind shortener.OwnerKind
	ID   string
}

// ContextWithOwner adds the caller identity to the context.
func ContextWithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext extracts the caller identity from the context.
func OwnerFromContext(ctx context.Context) Owner {
	if v, ok := ctx.Value(ownerKey{}).(Owner); ok {
		return v
	}

	return Owner{Kind: shortener.OwnerNone}
}
