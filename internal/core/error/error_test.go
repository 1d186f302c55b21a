package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	nf := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(nf))
	assert.ErrorIs(t, nf, redis.Nil)

	boom := errors.New("connection refused")
	err := WrapRedis(boom)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, RedisErrorMessage, MessageOf(err))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)
}

func TestWrapGeneration(t *testing.T) {
	assert.NoError(t, WrapGeneration("summarizer", nil))

	err := WrapGeneration("summarizer", errors.New("deadline exceeded"))
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, GenerationErrorMessage, MessageOf(err))
	assert.Contains(t, err.Error(), "summarizer")

	var appErr *AppError
	assert.ErrorAs(t, fmt.Errorf("run: %w", err), &appErr)
}

func TestWrapPersistence(t *testing.T) {
	assert.NoError(t, WrapPersistence(nil))

	err := WrapPersistence(errors.New("disk full"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	assert.Equal(t, PersistenceErrorMessage, MessageOf(err))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("question is required")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Equal(t, "question is required", MessageOf(err))
}

func TestStatusAndMessageFallbacks(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.Equal(t, SystemErrorMessage, MessageOf(plain))

	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapPostgres(plain)))
	assert.Equal(t, PostgresErrorMessage, (&AppError{Message: PostgresErrorMessage}).Error())
}
