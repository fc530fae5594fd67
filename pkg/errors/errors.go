// Package errors defines the sentinel errors shared by the indexer and the
// query engine, plus an AppError type that carries an HTTP status code for
// the search front end.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIndexNotFound = errors.New("index file not found")
	ErrCorruptIndex  = errors.New("corrupt index file")
	ErrIndexLocked   = errors.New("index directory is locked by another build")
	ErrSyntax        = errors.New("query syntax error")
	ErrInvalidRecord = errors.New("invalid ingestion record")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTimeout       = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Is re-exports errors.Is so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrSyntax), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotFound), errors.Is(err, ErrCorruptIndex):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
