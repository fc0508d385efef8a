package dto

import (
	"errors"
	"net/http"

	"github.com/storefront/backend/internal/domain/shared"
)

// Cart domain error codes, passed through to clients unchanged
const (
	ErrCodeStockExceeded         = shared.CodeStockExceeded
	ErrCodeRemoteUnavailable     = shared.CodeRemoteUnavailable
	ErrCodeProductNotFound       = shared.CodeProductNotFound
	ErrCodeLocalCacheCorrupt     = shared.CodeLocalCacheCorrupt
	ErrCodeLocalCacheUnavailable = shared.CodeLocalCacheUnavailable
	ErrCodeNotFound              = shared.CodeNotFound
	ErrCodeInvalidInput          = shared.CodeInvalidInput
	ErrCodeUnauthorized          = shared.CodeUnauthorized
)

// Transport error codes
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeStockExceeded:         http.StatusConflict,
	ErrCodeRemoteUnavailable:     http.StatusServiceUnavailable,
	ErrCodeProductNotFound:       http.StatusNotFound,
	ErrCodeLocalCacheCorrupt:     http.StatusInternalServerError,
	ErrCodeLocalCacheUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeInvalidInput:          http.StatusBadRequest,
	ErrCodeUnauthorized:          http.StatusUnauthorized,

	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError resolves err to a status, code and client-facing message.
// Errors outside the domain taxonomy are reported as INTERNAL_ERROR with a generic message.
func FromError(err error) (status int, code, message string) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message
	}
	return http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred"
}
