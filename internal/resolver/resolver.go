// Package resolver implements the redirect hot path: cache first, durable
// store on miss, expiry enforcement, and best-effort click recording.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortkit/internal/analytics"
	"github.com/serroba/shortkit/internal/messaging"
	"github.com/serroba/shortkit/internal/shortener"
	"go.uber.org/zap"
)

// Cache is the hot-cache surface the resolver needs.
type Cache interface {
	Get(code string) (string, bool)
	Set(code, target string)
	SetWithDeadline(code, target string, deadline time.Time)
}

// Finder is the store surface the resolver needs.
type Finder interface {
	FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error)
}

// RequestMeta is the caller metadata recorded with each click.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Resolver resolves short codes to redirect targets.
type Resolver struct {
	cache        Cache
	store        Finder
	clock        shortener.Clock
	publishClick messaging.Publish[analytics.ClickEvent]
	logger       *zap.Logger
}

// New creates a Resolver.
func New(
	cache Cache,
	store Finder,
	clock shortener.Clock,
	publishClick messaging.Publish[analytics.ClickEvent],
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		cache:        cache,
		store:        store,
		clock:        clock,
		publishClick: publishClick,
		logger:       logger,
	}
}

// Resolve returns the redirect target for code. Missing or inactive codes
// yield shortener.ErrNotFound, expired ones shortener.ErrExpired. On a cache
// miss the durable record is loaded and the cache warmed for future hits.
// Click recording happens on a detached goroutine and never delays or fails
// the resolution; cached entries are trusted because every mutation
// invalidates the cache synchronously.
func (r *Resolver) Resolve(ctx context.Context, code string, meta RequestMeta) (string, error) {
	if target, ok := r.cache.Get(code); ok {
		r.recordClick(code, meta)

		return target, nil
	}

	url, err := r.store.FindByCode(ctx, shortener.Code(code))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return "", shortener.ErrNotFound
		}

		return "", fmt.Errorf("find short url: %w", err)
	}

	if !url.IsActive {
		return "", shortener.ErrNotFound
	}

	// Lazy expiry check is the correctness guarantee; the background sweep
	// only reclaims storage.
	if url.Expired(r.clock.Now()) {
		return "", shortener.ErrExpired
	}

	// Cap the cache entry at the record's own expiry so it never outlives
	// the record.
	if url.ExpiresAt != nil {
		r.cache.SetWithDeadline(code, url.OriginalURL, *url.ExpiresAt)
	} else {
		r.cache.Set(code, url.OriginalURL)
	}

	r.recordClick(code, meta)

	return url.OriginalURL, nil
}

// recordClick publishes a click event without blocking the caller. Publish
// failures are logged and swallowed; analytics completeness is best-effort.
func (r *Resolver) recordClick(code string, meta RequestMeta) {
	event := &analytics.ClickEvent{
		Code:      code,
		Timestamp: r.clock.Now(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}

	go func() {
		if err := r.publishClick(event); err != nil {
			r.logger.Error("failed to publish click event",
				zap.String("code", code),
				zap.Error(err),
			)
		}
	}()
}
