// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, so a wrapped error still matches its base.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// WithMessage returns a copy of base carrying a caller-facing message.
func WithMessage(base *Error, msg string) *Error {
	return &Error{
		Code:    base.Code,
		Message: msg,
	}
}

// Predefined errors
var (
	// Validation errors
	ErrCredentialsInvalid = &Error{Code: "CREDENTIALS_INVALID", Message: "all credentials are required"}
	ErrParamsInvalid      = &Error{Code: "PARAMS_INVALID", Message: "strategy parameters invalid"}
	ErrSeriesInvalid      = &Error{Code: "SERIES_INVALID", Message: "invalid series request"}

	// Connection errors
	ErrConnectionFailed = &Error{Code: "CONNECTION_FAILED", Message: "failed to connect to broker"}
	ErrNotConnected     = &Error{Code: "NOT_CONNECTED", Message: "broker not connected"}
	ErrDisconnectFailed = &Error{Code: "DISCONNECT_FAILED", Message: "failed to disconnect from broker"}

	// Prerequisite errors
	ErrNoPriorCredentials = &Error{Code: "NO_PRIOR_CREDENTIALS", Message: "no previous connection credentials found"}

	// Storage errors
	ErrStorageCorrupt = &Error{Code: "STORAGE_CORRUPT", Message: "stored data is malformed"}
	ErrNotFound       = &Error{Code: "NOT_FOUND", Message: "not found"}
	ErrStorageFailed  = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}

	// Request errors
	ErrBadRequest = &Error{Code: "BAD_REQUEST", Message: "malformed request"}

	// Access errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
