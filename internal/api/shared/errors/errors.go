package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeInvalidConfig    ErrorCode = "invalid_config"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeRateLimited      ErrorCode = "rate_limited"

	// Server errors (5xx)
	ErrCodeInternalError      ErrorCode = "internal_error"
	ErrCodeDatabaseError      ErrorCode = "database_error"
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

func newError(code ErrorCode, message string, details []string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newError(ErrCodeBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newError(ErrCodeNotFound, message, details)
}

func NewValidationError(details ...string) *APIError {
	return newError(ErrCodeValidationFailed, "Validation failed", details)
}

func NewInvalidConfigError(details ...string) *APIError {
	return newError(ErrCodeInvalidConfig, "Invalid filter configuration", details)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newError(ErrCodeUnauthorized, message, details)
}

func NewRateLimitedError(retryAfterSeconds int) *APIError {
	return newError(ErrCodeRateLimited, "Too many requests", []string{"retry after " + strconv.Itoa(retryAfterSeconds) + "s"})
}

func NewInternalError(message string, details ...string) *APIError {
	return newError(ErrCodeInternalError, message, details)
}

func NewDatabaseError(message string, details ...string) *APIError {
	return newError(ErrCodeDatabaseError, message, details)
}

func NewServiceUnavailableError(message string, details ...string) *APIError {
	return newError(ErrCodeServiceUnavailable, message, details)
}

// FromError maps an engine error onto an HTTP status and API error
func FromError(err error, message string) (int, *APIError) {
	switch {
	case stderrors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest, NewInvalidConfigError(err.Error())
	case stderrors.Is(err, domain.ErrValidation), stderrors.Is(err, domain.ErrReadOnlyQuery):
		return http.StatusUnprocessableEntity, NewValidationError(err.Error())
	case stderrors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, NewNotFoundError(message, err.Error())
	case stderrors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, NewServiceUnavailableError(message)
	case stderrors.Is(err, domain.ErrSchema), stderrors.Is(err, domain.ErrConstraintViolation):
		return http.StatusInternalServerError, NewDatabaseError(message)
	default:
		return http.StatusInternalServerError, NewInternalError(message)
	}
}
