package handlers

import "time"

// LinkBody is the representation of a short URL returned by the management API.
type LinkBody struct {
	Code        string     `doc:"The short code"            example:"abc123"                      json:"code"`
	ShortURL    string     `doc:"The full short URL"        example:"http://localhost:8888/abc123" json:"shortUrl"`
	OriginalURL string     `doc:"The original URL"          example:"https://example.com/long"     json:"originalUrl"`
	IsActive    bool       `doc:"Whether the link redirects" json:"isActive"`
	CreatedAt   time.Time  `doc:"Creation time"              json:"createdAt"`
	ExpiresAt   *time.Time `doc:"Expiry time, if any"        json:"expiresAt,omitempty"`
}

// CreateLinkRequest is the request for creating a short URL.
type CreateLinkRequest struct {
	Body struct {
		URL        string     `doc:"The URL to shorten"              example:"https://example.com/long" json:"url"`
		CustomSlug string     `doc:"Optional custom slug"            example:"promo"                    json:"customSlug,omitempty" required:"false"`
		ExpiresAt  *time.Time `doc:"Optional expiry (ignored for guests)" json:"expiresAt,omitempty"    required:"false"`
	}
}

// CreateLinkResponse is the response for a successfully created short URL.
type CreateLinkResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body LinkBody
}

// UpdateLinkRequest is the request for updating a short URL. Only the fields
// present are changed; the code itself is immutable.
type UpdateLinkRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
	Body struct {
		URL         *string    `doc:"Replacement original URL" json:"url,omitempty"         required:"false"`
		IsActive    *bool      `doc:"Enable or disable the link" json:"isActive,omitempty"  required:"false"`
		ExpiresAt   *time.Time `doc:"New expiry"               json:"expiresAt,omitempty"   required:"false"`
		ClearExpiry bool       `doc:"Remove the expiry"        json:"clearExpiry,omitempty" required:"false"`
	}
}

// UpdateLinkResponse returns the updated short URL.
type UpdateLinkResponse struct {
	Body LinkBody
}

// DeleteLinkRequest is the request for deleting a short URL.
type DeleteLinkRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// DeleteLinkResponse is an empty 204 response.
type DeleteLinkResponse struct{}

// LinkStatsRequest is the request for a link's click statistics.
type LinkStatsRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// ClickBody is one recorded click.
type ClickBody struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer"`
}

// LinkStatsResponse returns a link with its click statistics.
type LinkStatsResponse struct {
	Body struct {
		LinkBody
		ClickCount   int64       `doc:"Total recorded clicks" json:"clickCount"`
		ClickHistory []ClickBody `doc:"Most recent clicks"    json:"clickHistory"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse issues the redirect to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The original URL" header:"Location"`
	}
}
