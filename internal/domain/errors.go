package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class in the error taxonomy.
type ErrorCode string

const (
	// Parse errors (request-level failures on upload).
	CodeMalformedInput  ErrorCode = "MalformedInput"
	CodePayloadTooLarge ErrorCode = "PayloadTooLarge"
	CodeEncodingError   ErrorCode = "EncodingError"

	// Session errors.
	CodeSessionNotFound ErrorCode = "SessionNotFound"

	// Tool errors (recovered inside the orchestration loop).
	CodeColumnNotFound       ErrorCode = "ColumnNotFound"
	CodeTypeMismatch         ErrorCode = "TypeMismatch"
	CodeInvalidExpression    ErrorCode = "InvalidExpression"
	CodeInvalidToolArguments ErrorCode = "InvalidToolArguments"
	CodeBlocked              ErrorCode = "Blocked"

	// Orchestration errors (terminate the run, reported as success=false).
	CodeTurnLimitExceeded   ErrorCode = "TurnLimitExceeded"
	CodeUpstreamUnavailable ErrorCode = "UpstreamUnavailable"
	CodeTimeout             ErrorCode = "Timeout"
)

// Error is a coded error. The message is user-safe; internal detail stays in
// the wrapped cause and never crosses the HTTP boundary.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError creates a coded error with a user-safe message.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches an internal cause to a coded error.
func WrapError(code ErrorCode, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf extracts the error code, or empty string for uncoded errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf extracts the user-safe message, falling back to a generic one so
// uncoded internal errors never leak detail to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsToolError reports whether the code belongs to the tool error class,
// which the orchestration loop recovers from instead of aborting.
func IsToolError(code ErrorCode) bool {
	switch code {
	case CodeColumnNotFound, CodeTypeMismatch, CodeInvalidExpression, CodeInvalidToolArguments, CodeBlocked:
		return true
	}
	return false
}
