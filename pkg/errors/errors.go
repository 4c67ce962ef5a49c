package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Registry errors
	ErrProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"
	ErrRegistry        ErrorCode = "REGISTRY"

	// Resolver errors
	ErrRootUnresolved ErrorCode = "ROOT_UNRESOLVED"

	// Manifest errors
	ErrManifestParse   ErrorCode = "MANIFEST_PARSE"
	ErrManifestInvalid ErrorCode = "MANIFEST_INVALID"

	// Sync errors
	ErrSyncCancelled ErrorCode = "SYNC_CANCELLED"
	ErrSyncIntegrity ErrorCode = "SYNC_INTEGRITY"
	ErrSyncIO        ErrorCode = "SYNC_IO"

	// State errors
	ErrStateCorruption ErrorCode = "STATE_CORRUPTION"

	// FileSystem errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileWrite  ErrorCode = "FILE_WRITE"
	ErrDirCreate  ErrorCode = "DIR_CREATE"
)

// ModsyncError represents a structured error with code and details
type ModsyncError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ModsyncError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ModsyncError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *ModsyncError) Is(target error) bool {
	var targetErr *ModsyncError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new ModsyncError with the given code and message
func New(code ErrorCode, message string) *ModsyncError {
	return &ModsyncError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ModsyncError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ModsyncError {
	return &ModsyncError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a ModsyncError
func Wrap(err error, code ErrorCode, message string) *ModsyncError {
	if err == nil {
		return nil
	}
	return &ModsyncError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ModsyncError {
	if err == nil {
		return nil
	}
	return &ModsyncError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *ModsyncError) WithDetail(key string, value interface{}) *ModsyncError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *ModsyncError) WithDetails(details map[string]interface{}) *ModsyncError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if any error in the chain carries the given code
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, &ModsyncError{Code: code})
}

// GetErrorCode returns the outermost error code, or ErrUnknown if err is not a ModsyncError
func GetErrorCode(err error) ErrorCode {
	var modsyncErr *ModsyncError
	if errors.As(err, &modsyncErr) {
		return modsyncErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a ModsyncError
func GetErrorDetails(err error) map[string]interface{} {
	var modsyncErr *ModsyncError
	if errors.As(err, &modsyncErr) {
		return modsyncErr.Details
	}
	return nil
}

// IsCancelled reports whether err stems from cooperative cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return IsErrorCode(err, ErrSyncCancelled) || errors.Is(err, context.Canceled)
}
