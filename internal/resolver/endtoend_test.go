package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/shortkit/internal/analytics"
	"github.com/serroba/shortkit/internal/cache"
	"github.com/serroba/shortkit/internal/messaging"
	"github.com/serroba/shortkit/internal/registry"
	"github.com/serroba/shortkit/internal/resolver"
	"github.com/serroba/shortkit/internal/shortcode"
	"github.com/serroba/shortkit/internal/shortener"
	"github.com/serroba/shortkit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stack wires the registry and resolver over a shared cache and store, the
// way the process runs in production.
type stack struct {
	clock    *fakeClock
	cache    *cache.HotCache
	repo     *store.MemoryRepository
	sink     *clickSink
	reg      *registry.Registry
	resolver *resolver.Resolver
}

func newStack() *stack {
	clock := newFakeClock()
	hot := cache.New(10, time.Hour, time.Minute, clock, zap.NewNop())
	repo := store.NewMemoryRepository()
	gen := shortcode.NewGenerator(zap.NewNop())
	sink := &clickSink{}

	return &stack{
		clock:    clock,
		cache:    hot,
		repo:     repo,
		sink:     sink,
		reg:      registry.New(repo, hot, gen, clock, zap.NewNop()),
		resolver: resolver.New(hot, repo, clock, messaging.Publish[analytics.ClickEvent](sink.publish), zap.NewNop()),
	}
}

func TestCreateThenResolve(t *testing.T) {
	s := newStack()
	meta := resolver.RequestMeta{IP: "127.0.0.1"}

	record, err := s.reg.Create(context.Background(), registry.CreateParams{
		OriginalURL: "https://example.com",
		OwnerKind:   shortener.OwnerUser,
		OwnerID:     "owner1",
	})
	require.NoError(t, err)
	require.Len(t, string(record.Code), 6)

	target, err := s.resolver.Resolve(context.Background(), string(record.Code), meta)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
}

func TestUpdateInvalidatesWarmCache(t *testing.T) {
	s := newStack()
	meta := resolver.RequestMeta{IP: "127.0.0.1"}

	record, err := s.reg.Create(context.Background(), registry.CreateParams{
		OriginalURL: "https://example.com",
		CustomSlug:  "promo",
		OwnerKind:   shortener.OwnerUser,
		OwnerID:     "owner1",
	})
	require.NoError(t, err)

	// Warm the cache through a real resolve.
	target, err := s.resolver.Resolve(context.Background(), "promo", meta)
	require.NoError(t, err)
	require.Equal(t, "https://example.com", target)

	newURL := "https://new.com"
	_, err = s.reg.Update(context.Background(), record.Code, "owner1", shortener.Update{OriginalURL: &newURL})
	require.NoError(t, err)

	target, err = s.resolver.Resolve(context.Background(), "promo", meta)

	require.NoError(t, err)
	assert.Equal(t, "https://new.com", target, "resolve must never serve the pre-update target")
}

func TestDeleteStopsResolution(t *testing.T) {
	s := newStack()
	meta := resolver.RequestMeta{IP: "127.0.0.1"}

	record, err := s.reg.Create(context.Background(), registry.CreateParams{
		OriginalURL: "https://example.com",
		CustomSlug:  "promo",
		OwnerKind:   shortener.OwnerUser,
		OwnerID:     "owner1",
	})
	require.NoError(t, err)

	_, err = s.resolver.Resolve(context.Background(), "promo", meta)
	require.NoError(t, err)

	require.NoError(t, s.reg.Delete(context.Background(), record.Code, "owner1"))

	_, err = s.resolver.Resolve(context.Background(), "promo", meta)

	assert.ErrorIs(t, err, shortener.ErrNotFound)
}

func TestGuestLinkExpiresEndToEnd(t *testing.T) {
	s := newStack()
	meta := resolver.RequestMeta{IP: "127.0.0.1"}

	record, err := s.reg.Create(context.Background(), registry.CreateParams{
		OriginalURL: "https://example.com",
		OwnerKind:   shortener.OwnerGuest,
		OwnerID:     "guest1",
	})
	require.NoError(t, err)

	_, err = s.resolver.Resolve(context.Background(), string(record.Code), meta)
	require.NoError(t, err)

	// Past the guest lifetime and the cache TTL: the lazy check must reject
	// the link even though the sweeper has not run.
	s.clock.Advance(shortener.GuestExpiry + time.Hour)

	_, err = s.resolver.Resolve(context.Background(), string(record.Code), meta)

	assert.ErrorIs(t, err, shortener.ErrExpired)
}
