package dto

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeConflict      = "invalid_transition"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(message string) APIError {
	return NewAPIError(ErrCodeNotFound, message)
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// ConflictError is returned when a lifecycle rule forbids the request.
func ConflictError(message string) APIError {
	return NewAPIError(ErrCodeConflict, message)
}

// RateLimitedError is returned when a client exceeds its request budget.
func RateLimitedError() APIError {
	return NewAPIError(ErrCodeRateLimited, "too many requests")
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}
