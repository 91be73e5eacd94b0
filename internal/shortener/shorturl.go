package shortener

import "time"

// Code represents a short URL code.
type Code string

// OwnerKind identifies who owns a short URL.
type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
	OwnerNone  OwnerKind = "none"
)

const (
	// MaxClickHistory bounds the per-URL click history ring.
	MaxClickHistory = 100

	// GuestExpiry is the fixed lifetime of guest-owned short URLs.
	GuestExpiry = 7 * 24 * time.Hour
)

// Click is a single recorded access to a short URL.
type Click struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer"`
}

// ShortURL represents a shortened URL entity as persisted by the store.
type ShortURL struct {
	Code         Code
	OriginalURL  string
	OwnerKind    OwnerKind
	OwnerID      string
	CreatedAt    time.Time
	ExpiresAt    *time.Time // nil means no expiry
	IsActive     bool
	ClickCount   int64
	ClickHistory []Click
}

// Expired reports whether the record is past its expiry at the given instant.
// Records without an expiry never expire.
func (s *ShortURL) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// AppendClick appends a click to the history, dropping the oldest entry once
// the ring holds MaxClickHistory entries, and bumps the click count.
func (s *ShortURL) AppendClick(click Click) {
	if len(s.ClickHistory) >= MaxClickHistory {
		s.ClickHistory = s.ClickHistory[len(s.ClickHistory)-MaxClickHistory+1:]
	}

	s.ClickHistory = append(s.ClickHistory, click)
	s.ClickCount++
}
