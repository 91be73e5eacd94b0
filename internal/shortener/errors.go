package shortener

import "errors"

var (
	// ErrNotFound indicates the code is unknown, inactive, or not owned by the caller.
	// Ownership mismatches deliberately surface as not-found so that existence of
	// someone else's code is never leaked.
	ErrNotFound = errors.New("short url not found")

	// ErrExpired indicates the code exists but is past its expiry.
	ErrExpired = errors.New("short url expired")

	// ErrSlugTaken indicates a requested custom slug is already in use.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrDuplicateCode is returned by stores when an insert hits an existing code.
	ErrDuplicateCode = errors.New("code already exists")

	// ErrInvalidURL indicates the original URL is malformed or not http(s).
	ErrInvalidURL = errors.New("invalid url: scheme must be http or https")

	// ErrInvalidSlug indicates a custom slug fails format validation.
	ErrInvalidSlug = errors.New("invalid slug: must be 3-50 chars of [a-zA-Z0-9_-]")
)
