package dto

import (
	"errors"
	"net/http"

	"github.com/eshaffer321/amazon-ynab-sync/internal/application/service"
	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e APIError) Error() string {
	return e.Code + ": " + e.Message
}

const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeConflict      = "conflict"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

// NotFoundError reports a missing run or job.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError hides the cause; it is logged, never returned to the caller.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError reports an order or transaction that failed validation.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// ConflictError reports a run already in progress or a job that has finished.
func ConflictError(message string) APIError {
	return NewAPIError(ErrCodeConflict, message)
}

// FromError maps a reconcile error onto a status code and response body.
// Unrecognised errors become a 500 with no detail.
func FromError(err error) (int, APIError) {
	switch {
	case errors.Is(err, matcher.ErrInvalidOrder), errors.Is(err, matcher.ErrInvalidTransaction):
		return http.StatusBadRequest, ValidationError(err.Error())
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, NotFoundError("job")
	case errors.Is(err, service.ErrRunInProgress), errors.Is(err, service.ErrJobNotCancellable):
		return http.StatusConflict, ConflictError(err.Error())
	default:
		return http.StatusInternalServerError, InternalError()
	}
}
