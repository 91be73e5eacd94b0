package main

import (
	"testing"

	"github.com/serroba/shortkit/internal/container"
	"github.com/stretchr/testify/assert"
)

func TestValidateOptions(t *testing.T) {
	t.Run("rejects a missing database url", func(t *testing.T) {
		err := validateOptions(&container.Options{RedisAddr: "localhost:6379"})

		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("accepts a configured database url", func(t *testing.T) {
		err := validateOptions(&container.Options{
			RedisAddr:   "localhost:6379",
			DatabaseURL: "postgres://localhost:5432/shortkit",
		})

		assert.NoError(t, err)
	})
}
