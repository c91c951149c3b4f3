package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoElements is the error notification of aggregates that need at least one
// element (Average, Min, Max) when their source completes empty.
var ErrNoElements = stderrors.New("sequence contains no elements")

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
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

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
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

// --- Rewrite errors ---

// MalformedExpression reports a pipeline expression that violates the grammar:
// zero or several free parameters, an unknown operator, or an argument whose
// shape cannot be determined.
func MalformedExpression(format string, args ...any) *AppError {
	return &AppError{
		Code: ErrCodeMalformedExpression, Message: fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
	}
}

// NoMatchingOperator reports that a registry has no signature for the operator
// name and argument shapes. The shapes are kept in Details for diagnosis.
func NoMatchingOperator(model, operator string, shapes []string) *AppError {
	return &AppError{
		Code: ErrCodeNoMatchingOperator,
		Message: fmt.Sprintf("no %s operator matches %s(%s)",
			model, operator, strings.Join(shapes, ", ")),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{
			"model":    model,
			"operator": operator,
			"shapes":   shapes,
		},
	}
}

// AmbiguousOperator reports a second registration of an existing signature.
func AmbiguousOperator(model, signature string) *AppError {
	return &AppError{
		Code:       ErrCodeAmbiguousOperator,
		Message:    fmt.Sprintf("%s operator %s is already registered", model, signature),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details:    map[string]any{"model": model, "signature": signature},
	}
}

// --- Stream errors ---

// SubscriptionFailure reports a stream that could not be subscribed to.
func SubscriptionFailure(stream string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSubscriptionFailure, Message: fmt.Sprintf("subscribing to %s failed", stream),
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"stream": stream}, Cause: cause,
	}
}

// NotificationFailure wraps an error notification so it can be reported
// outside the stream that produced it.
func NotificationFailure(cause error) *AppError {
	return &AppError{
		Code: ErrCodeNotificationFailure, Message: "the pipeline produced an error notification",
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false, Cause: cause,
	}
}

// --- Common constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Timeout creates a new AppError for an operation that did not finish in time.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s did not finish in time", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// ServiceUnavailable creates a new AppError for a service that is temporarily
// unable to accept work.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// IsCode reports whether err, or any error it wraps, is an AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
