package dto

import "net/http"

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes missing from the map resolve to 500.
var ErrorCodeHTTPStatus = map[string]int{
	// Input and resource errors
	"INVALID_INPUT": http.StatusBadRequest,
	"BAD_REQUEST":   http.StatusBadRequest,
	"NOT_FOUND":     http.StatusNotFound,
	"INVALID_STATE": http.StatusUnprocessableEntity,

	// Auth and session errors
	"UNAUTHORIZED":        http.StatusUnauthorized,
	"FORBIDDEN":           http.StatusForbidden,
	"SESSION_NOT_FOUND":   http.StatusUnauthorized,
	"CHALLENGE_NOT_FOUND": http.StatusUnauthorized,
	"INVALID_CODE":        http.StatusBadRequest,
	"TOO_MANY_ATTEMPTS":   http.StatusTooManyRequests,
	"RATE_LIMITED":        http.StatusTooManyRequests,

	// Timed-window errors: the entity exists but the window has closed.
	"ORDER_EXPIRED": http.StatusConflict,
	"HOLD_EXPIRED":  http.StatusConflict,

	// Marketplace API failures
	"UPSTREAM_REJECTED":    http.StatusBadGateway,
	"UPSTREAM_UNREACHABLE": http.StatusServiceUnavailable,

	"INTERNAL_ERROR": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
