package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortkit/internal/shortener"
)

// MemoryRepository is an in-memory implementation of shortener.Repository.
// It enforces the same uniqueness and ownership semantics as the Postgres
// store and is used by unit tests and local runs.
type MemoryRepository struct {
	mu   sync.Mutex
	urls map[shortener.Code]*shortener.ShortURL
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		urls: make(map[shortener.Code]*shortener.ShortURL),
	}
}

func (m *MemoryRepository) FindByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, ok := m.urls[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return cloneURL(url), nil
}

func (m *MemoryRepository) Exists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.urls[shortener.Code(code)]

	return ok, nil
}

func (m *MemoryRepository) Insert(_ context.Context, url *shortener.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.urls[url.Code]; ok {
		return shortener.ErrDuplicateCode
	}

	m.urls[url.Code] = cloneURL(url)

	return nil
}

func (m *MemoryRepository) UpdateFields(
	_ context.Context, code shortener.Code, ownerID string, update shortener.Update,
) (*shortener.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, ok := m.urls[code]
	if !ok || url.OwnerID != ownerID {
		return nil, shortener.ErrNotFound
	}

	if update.OriginalURL != nil {
		url.OriginalURL = *update.OriginalURL
	}

	if update.IsActive != nil {
		url.IsActive = *update.IsActive
	}

	switch {
	case update.ClearExpiresAt:
		url.ExpiresAt = nil
	case update.ExpiresAt != nil:
		expiresAt := *update.ExpiresAt
		url.ExpiresAt = &expiresAt
	}

	return cloneURL(url), nil
}

func (m *MemoryRepository) DeleteByCode(_ context.Context, code shortener.Code, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, ok := m.urls[code]
	if !ok || url.OwnerID != ownerID {
		return shortener.ErrNotFound
	}

	delete(m.urls, code)

	return nil
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64

	for code, url := range m.urls {
		if url.ExpiresAt != nil && url.ExpiresAt.Before(before) {
			delete(m.urls, code)
			deleted++
		}
	}

	return deleted, nil
}

func (m *MemoryRepository) RecordClick(_ context.Context, code shortener.Code, click shortener.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, ok := m.urls[code]
	if !ok {
		return shortener.ErrNotFound
	}

	url.AppendClick(click)

	return nil
}

// cloneURL copies a record so callers never alias store-owned memory.
func cloneURL(url *shortener.ShortURL) *shortener.ShortURL {
	c := *url

	if url.ExpiresAt != nil {
		expiresAt := *url.ExpiresAt
		c.ExpiresAt = &expiresAt
	}

	if url.ClickHistory != nil {
		c.ClickHistory = append([]shortener.Click(nil), url.ClickHistory...)
	}

	return &c
}

// Compile-time check.
var _ shortener.Repository = (*MemoryRepository)(nil)
