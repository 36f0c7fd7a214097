// Package errors provides structured error types for the moppi installer.
//
// Errors carry a machine-readable [Code] so the CLI can distinguish
// user-level conditions (package not installed, already installed) from
// hard failures (registry data corruption, network errors) without string
// matching.
//
//	err := errors.New(errors.ErrCodePackageNotFound, "package %s not found", name)
//	if errors.Is(err, errors.ErrCodePackageNotFound) {
//	    // registry has no such name
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Registry and resolution errors
	ErrCodePackageNotFound      Code = "PACKAGE_NOT_FOUND"
	ErrCodeMalformedRequirement Code = "MALFORMED_REQUIREMENT"
	ErrCodeCircularDependency   Code = "CIRCULAR_DEPENDENCY"
	ErrCodeInvalidMetadata      Code = "INVALID_METADATA"

	// Installer state errors
	ErrCodeNotInstalled     Code = "NOT_INSTALLED"
	ErrCodeAlreadyInstalled Code = "ALREADY_INSTALLED"

	// Lock file errors
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
