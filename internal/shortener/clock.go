package shortener

import "time"

// Clock supplies the current time. Injected so expiry and TTL behavior can be
// tested without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
