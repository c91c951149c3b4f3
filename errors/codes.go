package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Rewrite-time errors. These abort a rewrite before any stream is subscribed.
const (
	// ErrCodeMalformedExpression indicates a structural violation of the pipeline grammar.
	ErrCodeMalformedExpression ErrorCode = "MALFORMED_EXPRESSION"
	// ErrCodeNoMatchingOperator indicates a registry has no signature for an operator/shape combination.
	ErrCodeNoMatchingOperator ErrorCode = "NO_MATCHING_OPERATOR"
	// ErrCodeAmbiguousOperator indicates two registrations share the same operator signature.
	ErrCodeAmbiguousOperator ErrorCode = "AMBIGUOUS_OPERATOR"
)

// Stream errors
const (
	// ErrCodeSubscriptionFailure indicates a stream failed to establish a subscription.
	ErrCodeSubscriptionFailure ErrorCode = "SUBSCRIPTION_FAILURE"
	// ErrCodeNotificationFailure indicates an error notification produced by a stream.
	ErrCodeNotificationFailure ErrorCode = "NOTIFICATION_FAILURE"
)

// Resource and validation errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeTimeout indicates an operation did not finish in time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeServiceUnavailable indicates the service is temporarily at capacity.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:            true,
	ErrCodeServiceUnavailable: true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// None of the rewrite or stream codes are retryable: a missing operator or a
// malformed expression fails the same way on every attempt.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
