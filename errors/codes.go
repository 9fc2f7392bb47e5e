package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors
const (
	// ErrCodeModelNotLoaded indicates the embedding model is not ready.
	ErrCodeModelNotLoaded ErrorCode = "MODEL_NOT_LOADED"
	// ErrCodeServiceUnavailable indicates the service is temporarily at capacity.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Request errors
const (
	// ErrCodeValidation indicates the upload is missing or malformed.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodePayloadTooLarge indicates the upload exceeds the size cap.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Processing errors
const (
	// ErrCodeProcessing indicates decoding or inference failed.
	ErrCodeProcessing ErrorCode = "PROCESSING_ERROR"
	// ErrCodeInternal indicates an unexpected fault.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
}

// IsRetryableCode reports whether a client may retry a request that failed with code.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
