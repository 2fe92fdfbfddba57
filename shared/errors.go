package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error surface every core operation resolves to.
// StatusCode picks the HTTP mapping, Message is safe to render to the
// user, Data optionally carries structured detail (validation errors,
// upstream detail text).
type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func NewAppError(statusCode int, message string, data interface{}) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Data: data}
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Validation error: rejected before any network or database call.
func NewBadRequestError(message string, data interface{}) *AppError {
	return NewAppError(http.StatusBadRequest, message, data)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, nil)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, nil)
}

// Upstream error: the generation service answered with a non-success
// status. Definitive, never retried; detail is the upstream message.
func NewUpstreamError(upstreamStatus int, detail string) *AppError {
	message := "generation service rejected the request"
	if detail == "" {
		detail = fmt.Sprintf("upstream returned status %d", upstreamStatus)
	}
	return NewAppError(http.StatusBadGateway, message, detail)
}

// Transport error: no response was received after the retry budget.
func NewServiceUnavailableError(message string) *AppError {
	if message == "" {
		message = "generation service unreachable"
	}
	return NewAppError(http.StatusServiceUnavailable, message, nil)
}

// Persistence failure: the save was rejected; in-memory state is not
// rolled back (documented last-write-wins model).
func NewPersistenceError() *AppError {
	return NewAppError(http.StatusInternalServerError, "changes not saved", nil)
}

func NewTooManyRequestsError(message string) *AppError {
	if message == "" {
		message = "too many requests"
	}
	return NewAppError(http.StatusTooManyRequests, message, nil)
}
