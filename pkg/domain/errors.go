package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Common domain errors
var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("access denied")
	ErrInvalidJSON    = errors.New("request body is not valid JSON")
	ErrContentBlocked = errors.New("content blocked by policy")
)

// Stable machine-readable error codes returned to API clients.
const (
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeContentBlocked   = "CONTENT_BLOCKED"
	CodeInternal         = "INTERNAL_ERROR"
)

// APIError is the classified error crossing the core/handler boundary. It
// carries the HTTP status, a stable machine code for programmatic client
// handling, and a human-readable message safe to return to the client.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError constructs a classified error with an explicit disposition.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// NewRateLimited builds the 429 returned when a rate-limit window is full.
func NewRateLimited() *APIError {
	return NewAPIError(http.StatusTooManyRequests, CodeRateLimited, "Too many requests. Please try again later.")
}

// NewUnauthorized builds the 401 returned for missing or invalid sessions.
func NewUnauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required.")
}

// NewForbidden builds the 403 returned when the access policy denies a request.
func NewForbidden() *APIError {
	return NewAPIError(http.StatusForbidden, CodeForbidden, "You do not have permission to perform this action.")
}

// NewInvalidJSON builds the 400 returned for malformed request bodies.
func NewInvalidJSON() *APIError {
	return NewAPIError(http.StatusBadRequest, CodeInvalidJSON, "Request body must be valid JSON.")
}

// NewValidationFailed builds the 400 carrying the first violated constraint.
func NewValidationFailed(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeValidationFailed, message)
}

// NewContentBlocked builds the 400 returned when the content filter rejects input.
func NewContentBlocked(reason string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeContentBlocked, reason)
}

// NewInternal builds the opaque 500 for unclassified failures. No internal
// detail leaks to the client.
func NewInternal() *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred.")
}

// AsAPIError unwraps err to a classified *APIError if one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
