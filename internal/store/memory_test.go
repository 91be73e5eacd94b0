package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortkit/internal/shortener"
	"github.com/serroba/shortkit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(code, ownerID string) *shortener.ShortURL {
	return &shortener.ShortURL{
		Code:        shortener.Code(code),
		OriginalURL: "https://example.com",
		OwnerKind:   shortener.OwnerUser,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
		IsActive:    true,
	}
}

func TestMemoryRepository_Insert(t *testing.T) {
	t.Run("inserts and finds a record", func(t *testing.T) {
		repo := store.NewMemoryRepository()

		err := repo.Insert(context.Background(), newRecord("abc123", "owner1"))
		require.NoError(t, err)

		got, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.OriginalURL)
	})

	t.Run("rejects duplicate codes", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		err := repo.Insert(context.Background(), newRecord("abc123", "owner2"))

		assert.ErrorIs(t, err, shortener.ErrDuplicateCode)
	})

	t.Run("exactly one concurrent insert of the same code wins", func(t *testing.T) {
		repo := store.NewMemoryRepository()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)

		for i := 0; i < 10; i++ {
			wg.Add(1)

			go func(n int) {
				defer wg.Done()

				err := repo.Insert(context.Background(), newRecord("promo", fmt.Sprintf("owner%d", n)))

				mu.Lock()
				defer mu.Unlock()

				if err == nil {
					successes++
				} else {
					conflicts++
				}
			}(i)
		}

		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 9, conflicts)
	})
}

func TestMemoryRepository_FindByCode(t *testing.T) {
	t.Run("returns ErrNotFound for unknown codes", func(t *testing.T) {
		repo := store.NewMemoryRepository()

		_, err := repo.FindByCode(context.Background(), "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("returned record does not alias store memory", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		got, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)

		got.OriginalURL = "https://mutated.com"

		again, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", again.OriginalURL)
	})
}

func TestMemoryRepository_Exists(t *testing.T) {
	repo := store.NewMemoryRepository()
	require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

	exists, err := repo.Exists(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryRepository_UpdateFields(t *testing.T) {
	t.Run("applies partial updates", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		newURL := "https://new.com"
		inactive := false

		got, err := repo.UpdateFields(context.Background(), "abc123", "owner1", shortener.Update{
			OriginalURL: &newURL,
			IsActive:    &inactive,
		})

		require.NoError(t, err)
		assert.Equal(t, "https://new.com", got.OriginalURL)
		assert.False(t, got.IsActive)
	})

	t.Run("sets and clears expiry", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		expiresAt := time.Now().Add(time.Hour)

		got, err := repo.UpdateFields(context.Background(), "abc123", "owner1", shortener.Update{
			ExpiresAt: &expiresAt,
		})
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)

		got, err = repo.UpdateFields(context.Background(), "abc123", "owner1", shortener.Update{
			ClearExpiresAt: true,
		})
		require.NoError(t, err)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("wrong owner surfaces as not found", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		newURL := "https://new.com"

		_, err := repo.UpdateFields(context.Background(), "abc123", "intruder", shortener.Update{
			OriginalURL: &newURL,
		})

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryRepository_DeleteByCode(t *testing.T) {
	t.Run("deletes an owned record", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		require.NoError(t, repo.DeleteByCode(context.Background(), "abc123", "owner1"))

		_, err := repo.FindByCode(context.Background(), "abc123")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("wrong owner surfaces as not found", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		err := repo.DeleteByCode(context.Background(), "abc123", "intruder")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	repo := store.NewMemoryRepository()
	now := time.Now()

	expired := newRecord("expired", "owner1")
	past := now.Add(-time.Hour)
	expired.ExpiresAt = &past

	live := newRecord("live", "owner1")
	future := now.Add(time.Hour)
	live.ExpiresAt = &future

	forever := newRecord("forever", "owner1")

	require.NoError(t, repo.Insert(context.Background(), expired))
	require.NoError(t, repo.Insert(context.Background(), live))
	require.NoError(t, repo.Insert(context.Background(), forever))

	deleted, err := repo.DeleteExpired(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByCode(context.Background(), "expired")
	assert.ErrorIs(t, err, shortener.ErrNotFound)

	_, err = repo.FindByCode(context.Background(), "live")
	assert.NoError(t, err)
}

func TestMemoryRepository_RecordClick(t *testing.T) {
	t.Run("increments count and appends history", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		click := shortener.Click{Timestamp: time.Now(), IP: "127.0.0.1"}
		require.NoError(t, repo.RecordClick(context.Background(), "abc123", click))

		got, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ClickCount)
		assert.Len(t, got.ClickHistory, 1)
	})

	t.Run("history is capped and drops the oldest entry", func(t *testing.T) {
		repo := store.NewMemoryRepository()
		require.NoError(t, repo.Insert(context.Background(), newRecord("abc123", "owner1")))

		for i := 0; i < shortener.MaxClickHistory+5; i++ {
			click := shortener.Click{IP: fmt.Sprintf("10.0.0.%d", i)}
			require.NoError(t, repo.RecordClick(context.Background(), "abc123", click))
		}

		got, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(shortener.MaxClickHistory+5), got.ClickCount)
		assert.Len(t, got.ClickHistory, shortener.MaxClickHistory)
		assert.Equal(t, "10.0.0.5", got.ClickHistory[0].IP, "oldest entries should be dropped")
	})

	t.Run("unknown code returns ErrNotFound", func(t *testing.T) {
		repo := store.NewMemoryRepository()

		err := repo.RecordClick(context.Background(), "missing", shortener.Click{})

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
