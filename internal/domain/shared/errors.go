package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrSessionNotFound     = NewDomainError("SESSION_NOT_FOUND", "Session not found or expired")
	ErrChallengeNotFound   = NewDomainError("CHALLENGE_NOT_FOUND", "Verification session not found or expired")
	ErrInvalidCode         = NewDomainError("INVALID_CODE", "Invalid verification code")
	ErrOrderExpired        = NewDomainError("ORDER_EXPIRED", "The approval window for this order has passed")
	ErrHoldExpired         = NewDomainError("HOLD_EXPIRED", "This cart hold has expired")
	ErrUpstreamRejected    = NewDomainError("UPSTREAM_REJECTED", "The marketplace API rejected the request")
	ErrUpstreamUnreachable = NewDomainError("UPSTREAM_UNREACHABLE", "The marketplace API could not be reached")
)
