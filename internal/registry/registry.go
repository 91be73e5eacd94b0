// Package registry coordinates short-code assignment and keeps the durable
// store and the hot cache consistent across mutations.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/serroba/shortkit/internal/shortcode"
	"github.com/serroba/shortkit/internal/shortener"
	"go.uber.org/zap"
)

// insertAttempts bounds retries when a generated code races another insert.
// Custom slugs never retry; their conflict is an answer, not a transient.
const insertAttempts = 3

// Invalidator is the cache surface the registry needs.
type Invalidator interface {
	Invalidate(code string)
}

// CreateParams are the inputs for registering a new short URL.
type CreateParams struct {
	OriginalURL string
	CustomSlug  string
	OwnerKind   shortener.OwnerKind
	OwnerID     string
	ExpiresAt   *time.Time
}

// Registry assigns short codes and owns store/cache consistency for writes.
type Registry struct {
	store  shortener.Repository
	cache  Invalidator
	gen    *shortcode.Generator
	clock  shortener.Clock
	logger *zap.Logger
}

// New creates a Registry.
func New(
	store shortener.Repository,
	cache Invalidator,
	gen *shortcode.Generator,
	clock shortener.Clock,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		store:  store,
		cache:  cache,
		gen:    gen,
		clock:  clock,
		logger: logger,
	}
}

// Create registers a new short URL. Custom slugs are validated and must be
// free; otherwise a code is generated. Only user-owned records honor the
// requested expiry; guest and anonymous records always expire after the
// fixed guest lifetime. The cache is not pre-populated; the first redirect
// warms it.
func (r *Registry) Create(ctx context.Context, params CreateParams) (*shortener.ShortURL, error) {
	if err := validateOriginalURL(params.OriginalURL); err != nil {
		return nil, err
	}

	now := r.clock.Now()

	record := &shortener.ShortURL{
		OriginalURL: params.OriginalURL,
		OwnerKind:   params.OwnerKind,
		OwnerID:     params.OwnerID,
		CreatedAt:   now,
		ExpiresAt:   r.expiryFor(params, now),
		IsActive:    true,
	}

	if params.CustomSlug != "" {
		return r.createWithSlug(ctx, record, params.CustomSlug)
	}

	return r.createGenerated(ctx, record)
}

func (r *Registry) createWithSlug(
	ctx context.Context, record *shortener.ShortURL, slug string,
) (*shortener.ShortURL, error) {
	if !shortcode.ValidateCustomAlias(slug) {
		return nil, shortener.ErrInvalidSlug
	}

	// Pre-check is an optimization for a friendly early answer; the insert
	// below is the real arbiter under concurrency.
	taken, err := r.store.Exists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	if taken {
		return nil, shortener.ErrSlugTaken
	}

	record.Code = shortener.Code(slug)

	if err := r.store.Insert(ctx, record); err != nil {
		if errors.Is(err, shortener.ErrDuplicateCode) {
			return nil, shortener.ErrSlugTaken
		}

		return nil, fmt.Errorf("insert short url: %w", err)
	}

	return record, nil
}

func (r *Registry) createGenerated(
	ctx context.Context, record *shortener.ShortURL,
) (*shortener.ShortURL, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		code, err := r.gen.GenerateUnique(ctx, shortcode.DefaultLength, r.store)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		record.Code = shortener.Code(code)

		err = r.store.Insert(ctx, record)
		if err == nil {
			return record, nil
		}

		if !errors.Is(err, shortener.ErrDuplicateCode) {
			return nil, fmt.Errorf("insert short url: %w", err)
		}

		r.logger.Warn("generated code raced a concurrent insert, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, shortener.ErrDuplicateCode
}

// Update applies the allowed mutable fields to an owned record. The short
// code itself is immutable. The cache entry is invalidated before returning
// so a stale target never outlives the new value.
func (r *Registry) Update(
	ctx context.Context, code shortener.Code, ownerID string, update shortener.Update,
) (*shortener.ShortURL, error) {
	// Anonymous records all carry an empty owner ID, so an empty-owner
	// update could touch any of them. They are immutable after creation.
	if ownerID == "" {
		return nil, shortener.ErrNotFound
	}

	if update.OriginalURL != nil {
		if err := validateOriginalURL(*update.OriginalURL); err != nil {
			return nil, err
		}
	}

	record, err := r.store.UpdateFields(ctx, code, ownerID, update)
	if err != nil {
		return nil, err
	}

	r.cache.Invalidate(string(code))

	return record, nil
}

// Delete removes an owned record from the store, then drops the cache entry.
// Store first: the cache must never retain an entry for a record the store
// no longer has.
func (r *Registry) Delete(ctx context.Context, code shortener.Code, ownerID string) error {
	if ownerID == "" {
		return shortener.ErrNotFound
	}

	if err := r.store.DeleteByCode(ctx, code, ownerID); err != nil {
		return err
	}

	r.cache.Invalidate(string(code))

	return nil
}

// Get returns an owned record, for stats and management views. Ownership
// mismatches surface as not-found.
func (r *Registry) Get(ctx context.Context, code shortener.Code, ownerID string) (*shortener.ShortURL, error) {
	if ownerID == "" {
		return nil, shortener.ErrNotFound
	}

	record, err := r.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if record.OwnerID != ownerID {
		return nil, shortener.ErrNotFound
	}

	return record, nil
}

func (r *Registry) expiryFor(params CreateParams, now time.Time) *time.Time {
	if params.OwnerKind == shortener.OwnerUser {
		return params.ExpiresAt
	}

	expiresAt := now.Add(shortener.GuestExpiry)

	return &expiresAt
}

func validateOriginalURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return shortener.ErrInvalidURL
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return shortener.ErrInvalidURL
	}

	return nil
}
