// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Machine-readable codes so the dashboard can branch without parsing Detail.
const (
	CodeInvalidAmount        = "invalid_amount"
	CodeSessionAlreadyActive = "session_already_active"
	CodeSessionNotFound      = "session_not_found"
	CodeSessionAlreadyClosed = "session_already_closed"
	CodePersistence          = "persistence_error"
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeBadRequest           = "bad_request"
	CodeValidation           = "validation_error"
	CodeRateLimited          = "rate_limited"
	CodeInternal             = "internal_error"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Detail carries the message verbatim so operators see exactly what failed.
type APIError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func New(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Detail: "validation failed", Fields: fields}
}
