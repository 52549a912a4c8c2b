package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details interface{}) *APIError {
	out := *e
	out.Details = details
	return &out
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrUnsupportedFormat = New(http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format")

	// 404 Not Found
	ErrNoDataset = New(http.StatusNotFound, "NO_DATASET", "No dataset has been loaded")

	// 413 Payload Too Large
	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Document exceeds the maximum allowed size")

	// 422 Unprocessable Entity
	ErrIngestionFailed = New(http.StatusUnprocessableEntity, "INGESTION_FAILED", "Dataset could not be built")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
)

// Helper functions for specific error types

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// IngestionFailedError wraps the cause of a failed dataset build
func IngestionFailedError(err error) *APIError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrIngestionFailed.WithDetails(appErr.detail())
	}
	return ErrIngestionFailed.WithDetails(err.Error())
}

// FromAppError converts an AppError into its API representation. The cause
// is only exposed for client errors.
func FromAppError(err *AppError) *APIError {
	code := string(err.Type)
	switch err.Type {
	case ErrTypeIngestion:
		return IngestionFailedError(err)
	case ErrTypeValidation:
		code = "VALIDATION_FAILED"
	}
	apiErr := New(err.StatusCode(), code, err.Message)
	if err.Cause != nil && apiErr.StatusCode < http.StatusInternalServerError {
		apiErr.Details = err.Cause.Error()
	}
	return apiErr
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(fields []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		ValidationErrors{Errors: fields},
	)
}
