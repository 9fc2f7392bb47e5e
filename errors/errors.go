package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is the client-facing error message.
	Message string `json:"message"`
	// Retryable indicates if the client may retry the request.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error. It is logged, never returned to clients.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// ModelNotLoaded is returned while the embedding model is unavailable.
func ModelNotLoaded() *AppError {
	return &AppError{
		Code: ErrCodeModelNotLoaded, Message: "Model not loaded. Service unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// ServiceUnavailable creates a new AppError for a service that is temporarily at capacity.
func ServiceUnavailable(reason string) *AppError {
	if reason == "" {
		reason = "Service busy, try again later"
	}
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: reason,
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Validation creates a new AppError for a malformed upload.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// PayloadTooLarge creates a new AppError for an upload over maxBytes.
func PayloadTooLarge(maxBytes int64) *AppError {
	mb := float64(maxBytes) / (1024 * 1024)
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: fmt.Sprintf("File too large. Maximum size: %.1fMB", mb),
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Details:    map[string]any{"max_bytes": maxBytes},
	}
}

// Processing creates a new AppError for a decode or inference failure.
// The cause text is part of the message.
func Processing(cause error) *AppError {
	return &AppError{
		Code: ErrCodeProcessing, Message: fmt.Sprintf("Failed to process audio: %v", cause),
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Processingf creates a processing error with a formatted message.
func Processingf(format string, args ...any) *AppError {
	return &AppError{
		Code: ErrCodeProcessing, Message: fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Internal creates a new AppError for an unexpected fault. The message is
// generic; the cause is kept for logging.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "Internal server error",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
