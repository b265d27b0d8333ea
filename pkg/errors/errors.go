// Package errors provides structured error types for the temppivot engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, the offset store and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (selection, scene files, options)
//   - STALE_*: References to scene nodes that were deleted behind our back
//   - CORRUPT_*: Persisted state that no longer parses
//   - NOT_FOUND_*: Resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSelection, "selection already holds %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidSelection) {
//	    // Nothing to bind, stay idle
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCorruptState, origErr, "decode container %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidSelection Code = "INVALID_SELECTION"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidScene     Code = "INVALID_SCENE"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Scene state errors
	ErrCodeStaleReference Code = "STALE_REFERENCE"
	ErrCodeCorruptState   Code = "CORRUPT_PERSISTED_STATE"
	ErrCodeLocked         Code = "LOCKED"

	// Host callback errors
	ErrCodeSubscriptionCleanup Code = "SUBSCRIPTION_CLEANUP"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a [Coder] with a
// matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// Coder is implemented by error types that carry a code without being an *Error.
type Coder interface {
	Code() Code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error chain holds neither an *Error nor a [Coder].
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
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

// StaleError reports an operation skipped because the node it targets no
// longer exists in the scene.
type StaleError struct {
	NodeID string // Identity of the vanished node
	Op     string // Operation that was skipped
}

// Error implements the error interface.
func (e *StaleError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("stale reference %s: skipped %s", e.NodeID, e.Op)
	}
	return fmt.Sprintf("stale reference %s", e.NodeID)
}

// Code returns the error code for this error type.
func (e *StaleError) Code() Code {
	return ErrCodeStaleReference
}
