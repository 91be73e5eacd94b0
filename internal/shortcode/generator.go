// Package shortcode generates collision-resistant short codes and validates
// custom aliases. It has no storage dependency; uniqueness checks go through
// the narrow ExistenceChecker interface.
package shortcode

import (
	"context"
	"crypto/rand"
	"regexp"

	"go.uber.org/zap"
)

// Alphabet is the 62-character set short codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// DefaultLength is the length of generated codes.
	DefaultLength = 6

	// DefaultMaxRetries bounds how many uniqueness checks GenerateUnique
	// performs before falling back to a longer code.
	DefaultMaxRetries = 5

	// fallbackExtension is added to the requested length when retries are
	// exhausted.
	fallbackExtension = 2
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// ExistenceChecker reports whether a code is already in use. Implemented by
// the store adapters.
type ExistenceChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// Generator produces random short codes. Safe for concurrent use.
type Generator struct {
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a Generator with the default retry budget.
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{
		maxRetries: DefaultMaxRetries,
		logger:     logger,
	}
}

// Generate draws length cryptographically random bytes and maps each onto the
// alphabet. Collision resistance depends on the entropy source, so this must
// stay on crypto/rand.
func (g *Generator) Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	// crypto/rand.Read never returns an error and always fills the buffer.
	_, _ = rand.Read(buf)

	code := make([]byte, length)
	for i, b := range buf {
		code[i] = Alphabet[int(b)%len(Alphabet)]
	}

	return string(code)
}

// GenerateUnique returns a code for which checker reports no existing record.
// After exhausting the retry budget it generates one final code at length+2
// and returns it without a check; the odds of colliding at the longer length
// are accepted, and the event is logged so it is visible operationally.
// A failing checker aborts with its error.
func (g *Generator) GenerateUnique(ctx context.Context, length int, checker ExistenceChecker) (string, error) {
	// Normalize here so the fallback extends the effective length, not the
	// raw argument.
	if length <= 0 {
		length = DefaultLength
	}

	for i := 0; i < g.maxRetries; i++ {
		code := g.Generate(length)

		exists, err := checker.Exists(ctx, code)
		if err != nil {
			return "", err
		}

		if !exists {
			return code, nil
		}
	}

	fallback := g.Generate(length + fallbackExtension)

	g.logger.Warn("code generation retries exhausted, returning unchecked longer code",
		zap.Int("requestedLength", length),
		zap.Int("fallbackLength", length+fallbackExtension),
		zap.Int("retries", g.maxRetries),
	)

	return fallback, nil
}

// ValidateCustomAlias reports whether alias is a well-formed custom slug:
// 3 to 50 characters of [a-zA-Z0-9_-].
func ValidateCustomAlias(alias string) bool {
	return slugPattern.MatchString(alias)
}
