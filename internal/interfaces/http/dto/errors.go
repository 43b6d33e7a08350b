package dto

import (
	"net/http"

	"github.com/stockledger/backend/internal/domain/shared"
)

// Error code constants
// Format: ERR_<CATEGORY>
const (
	// ErrCodeInternal is used for storage failures and unexpected errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when a request breaks a field or business validation rule
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeNotFound is used when a product id does not resolve
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeInsufficientStock is used when an outbound exceeds the current balance
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeUnavailable is used when a dependency such as the database is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:       http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeForKind maps a domain error kind to its API error code
func CodeForKind(kind shared.ErrorKind) string {
	switch kind {
	case shared.KindValidation:
		return ErrCodeValidation
	case shared.KindNotFound:
		return ErrCodeNotFound
	case shared.KindInsufficientStock:
		return ErrCodeInsufficientStock
	default:
		return ErrCodeInternal
	}
}
