// Package analytics carries best-effort click telemetry for short URLs.
// Losing an event never fails a redirect.
package analytics

import "time"

// TopicURLClicked is the topic click events are published to.
const TopicURLClicked = "url.clicked"

// ClickEvent is emitted every time a short URL is resolved.
type ClickEvent struct {
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer"`
}
