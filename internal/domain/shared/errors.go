package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the backend error this domain error was translated from, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// Wrap returns a copy of the error carrying cause
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		cause:   cause,
	}
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		cause:   e.cause,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeStockExceeded         = "STOCK_EXCEEDED"
	CodeRemoteUnavailable     = "REMOTE_UNAVAILABLE"
	CodeProductNotFound       = "PRODUCT_NOT_FOUND"
	CodeLocalCacheCorrupt     = "LOCAL_CACHE_CORRUPT"
	CodeLocalCacheUnavailable = "LOCAL_CACHE_UNAVAILABLE"
)

// Common domain errors
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrUnauthorized = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")

	// ErrStockExceeded is returned when a mutation would push a line past the available stock.
	// The cart is left unchanged.
	ErrStockExceeded = NewDomainError(CodeStockExceeded, "Requested quantity exceeds available stock")
	// ErrRemoteUnavailable wraps connectivity or authorization failures from the remote cart store.
	ErrRemoteUnavailable = NewDomainError(CodeRemoteUnavailable, "Cart service is temporarily unavailable")
	// ErrProductNotFound marks a line whose product the catalog no longer resolves.
	ErrProductNotFound = NewDomainError(CodeProductNotFound, "Product not found")
	// ErrLocalCacheCorrupt marks malformed device cache content. It is always recovered.
	ErrLocalCacheCorrupt = NewDomainError(CodeLocalCacheCorrupt, "Local cart cache is corrupt")
	// ErrLocalCacheUnavailable is returned when the device cache cannot be written.
	ErrLocalCacheUnavailable = NewDomainError(CodeLocalCacheUnavailable, "Local cart cache is unavailable")
)

// IsCode reports whether err is a DomainError carrying code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
