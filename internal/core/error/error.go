package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// PostgresErrorMessage describes Postgres related failures.
	PostgresErrorMessage = "postgres operation failed"
	// GenerationErrorMessage describes a failed or timed out text generation call.
	GenerationErrorMessage = "text generation failed"
	// PersistenceErrorMessage describes an unreachable conversation store.
	PersistenceErrorMessage = "conversation store unavailable"
	// InvalidInputMessage describes a rejected request.
	InvalidInputMessage = "invalid input"
)

var (
	// ErrGeneration marks failures of the text generation service.
	ErrGeneration = errors.New("generation failure")
	// ErrPersistence marks failures of the conversation store.
	ErrPersistence = errors.New("persistence unavailable")
	// ErrInvalidInput marks caller errors.
	ErrInvalidInput = errors.New("invalid input")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(fmt.Errorf("%w: %w", ErrPersistence, err), http.StatusBadGateway, RedisErrorMessage)
}

// WrapPostgres wraps a Postgres error with a consistent status code and message.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, PostgresErrorMessage)
}

// WrapPersistence wraps a conversation store failure.
func WrapPersistence(err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%w: %w", ErrPersistence, err), http.StatusServiceUnavailable, PersistenceErrorMessage)
}

// WrapGeneration wraps a text generation failure raised while running the given stage.
func WrapGeneration(stage string, err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%w in %s: %w", ErrGeneration, stage, err), http.StatusBadGateway, GenerationErrorMessage)
}

// InvalidInput builds a 400 error with the given reason.
func InvalidInput(reason string) error {
	return New(fmt.Errorf("%w: %s", ErrInvalidInput, reason), http.StatusBadRequest, reason)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err, or the system fallback.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
