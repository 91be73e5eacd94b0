// Package handlers translates HTTP operations onto the registry and resolver.
// Auth, rate limiting, and sessions live upstream; this layer only trusts the
// identity the auth middleware established.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortkit/internal/registry"
	"github.com/serroba/shortkit/internal/resolver"
	"github.com/serroba/shortkit/internal/shortener"
	"go.uber.org/zap"
)

// LinkHandler handles short URL management and redirects.
type LinkHandler struct {
	registry *registry.Registry
	resolver *resolver.Resolver
	baseURL  string
	logger   *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	reg *registry.Registry,
	res *resolver.Resolver,
	baseURL string,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		registry: reg,
		resolver: res,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	owner := OwnerFromContext(ctx)

	record, err := h.registry.Create(ctx, registry.CreateParams{
		OriginalURL: req.Body.URL,
		CustomSlug:  req.Body.CustomSlug,
		OwnerKind:   owner.Kind,
		OwnerID:     owner.ID,
		ExpiresAt:   req.Body.ExpiresAt,
	})
	if err != nil {
		return nil, h.translateError(err)
	}

	resp := &CreateLinkResponse{}
	resp.Body = h.linkBody(record)
	resp.Headers.Location = resp.Body.ShortURL

	return resp, nil
}

func (h *LinkHandler) UpdateLink(ctx context.Context, req *UpdateLinkRequest) (*UpdateLinkResponse, error) {
	owner := OwnerFromContext(ctx)

	record, err := h.registry.Update(ctx, shortener.Code(req.Code), owner.ID, shortener.Update{
		OriginalURL:    req.Body.URL,
		IsActive:       req.Body.IsActive,
		ExpiresAt:      req.Body.ExpiresAt,
		ClearExpiresAt: req.Body.ClearExpiry,
	})
	if err != nil {
		return nil, h.translateError(err)
	}

	resp := &UpdateLinkResponse{}
	resp.Body = h.linkBody(record)

	return resp, nil
}

func (h *LinkHandler) DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*DeleteLinkResponse, error) {
	owner := OwnerFromContext(ctx)

	if err := h.registry.Delete(ctx, shortener.Code(req.Code), owner.ID); err != nil {
		return nil, h.translateError(err)
	}

	return &DeleteLinkResponse{}, nil
}

func (h *LinkHandler) GetLinkStats(ctx context.Context, req *LinkStatsRequest) (*LinkStatsResponse, error) {
	owner := OwnerFromContext(ctx)

	record, err := h.registry.Get(ctx, shortener.Code(req.Code), owner.ID)
	if err != nil {
		return nil, h.translateError(err)
	}

	resp := &LinkStatsResponse{}
	resp.Body.LinkBody = h.linkBody(record)
	resp.Body.ClickCount = record.ClickCount
	resp.Body.ClickHistory = make([]ClickBody, 0, len(record.ClickHistory))

	for _, click := range record.ClickHistory {
		resp.Body.ClickHistory = append(resp.Body.ClickHistory, ClickBody(click))
	}

	return resp, nil
}

func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)

	target, err := h.resolver.Resolve(ctx, req.Code, resolver.RequestMeta{
		IP:        meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	})
	if err != nil {
		return nil, h.translateError(err)
	}

	resp := &RedirectResponse{Status: http.StatusMovedPermanently}
	resp.Headers.Location = target

	return resp, nil
}

func (h *LinkHandler) linkBody(record *shortener.ShortURL) LinkBody {
	return LinkBody{
		Code:        string(record.Code),
		ShortURL:    fmt.Sprintf("%s/%s", h.baseURL, record.Code),
		OriginalURL: record.OriginalURL,
		IsActive:    record.IsActive,
		CreatedAt:   record.CreatedAt,
		ExpiresAt:   record.ExpiresAt,
	}
}

// translateError maps domain errors onto transport responses. Expired and
// missing links both read as "link unavailable" flavors without exposing why.
func (h *LinkHandler) translateError(err error) error {
	switch {
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("link not found")
	case errors.Is(err, shortener.ErrExpired):
		return huma.NewError(http.StatusGone, "link expired")
	case errors.Is(err, shortener.ErrSlugTaken), errors.Is(err, shortener.ErrDuplicateCode):
		return huma.Error409Conflict("slug already taken")
	case errors.Is(err, shortener.ErrInvalidURL), errors.Is(err, shortener.ErrInvalidSlug):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		h.logger.Error("unexpected error handling link request", zap.Error(err))

		return huma.Error500InternalServerError("internal error")
	}
}
