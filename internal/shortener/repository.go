package shortener

import (
	"context"
	"time"
)

// Update carries the mutable fields of a ShortURL. Nil pointers mean "leave
// unchanged". ClearExpiresAt removes an existing expiry; it wins over ExpiresAt.
// The code itself is immutable after creation.
type Update struct {
	OriginalURL    *string
	IsActive       *bool
	ExpiresAt      *time.Time
	ClearExpiresAt bool
}

// Repository defines the durable store operations for short URLs.
//
// Insert must enforce code uniqueness and return ErrDuplicateCode on conflict;
// it is the ultimate arbiter for concurrent creates. UpdateFields and
// DeleteByCode are owner-scoped and return ErrNotFound when no record matches
// both code and owner.
type Repository interface {
	FindByCode(ctx context.Context, code Code) (*ShortURL, error)
	Exists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, url *ShortURL) error
	UpdateFields(ctx context.Context, code Code, ownerID string, update Update) (*ShortURL, error)
	DeleteByCode(ctx context.Context, code Code, ownerID string) error

	// DeleteExpired removes all records whose expiry is before the given
	// instant and returns how many were deleted.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// RecordClick increments the click count and appends to the bounded
	// click history of the record, if it still exists.
	RecordClick(ctx context.Context, code Code, click Click) error
}
