// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Argument errors (100-199): Invalid flags, dates, intervals and configuration
//   - Transport errors (200-299): The market data provider could not be reached or refused the request
//   - Market data errors (700-799): The provider answered but the response cannot be used
//   - Output errors (900-999): Reading or writing local files failed
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidInterval, "unsupported interval")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeWriteFailed, "failed to write prices", originalErr)
//
//	// Check the category of an error
//	if errors.GetCategory(err) == errors.CategoryArgument { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var missing *MissingPriceFieldError
	if errors.As(err, &missing) {
		return ErrCodeMissingPriceField
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCategory returns the category of the first coded error in err's chain.
func GetCategory(err error) Category {
	return GetCode(err).Category()
}

// MissingPriceFieldError is returned when a provider response carries none of
// the price fields the caller can use.
type MissingPriceFieldError struct {
	Wanted []string // Fields looked for, in order of preference
	Fields []string // Fields actually present in the response
}

// NewMissingPriceFieldError creates a new MissingPriceFieldError.
func NewMissingPriceFieldError(wanted, fields []string) *MissingPriceFieldError {
	return &MissingPriceFieldError{
		Wanted: wanted,
		Fields: fields,
	}
}

// Error implements the error interface.
func (e *MissingPriceFieldError) Error() string {
	return fmt.Sprintf("[%d] no price column found (wanted one of %s)! Columns: [%s]",
		ErrCodeMissingPriceField, strings.Join(e.Wanted, ", "), strings.Join(e.Fields, ", "))
}

// IsMissingPriceFieldError checks if an error is a MissingPriceFieldError.
// It uses errors.As to check the error chain.
func IsMissingPriceFieldError(err error) bool {
	var missing *MissingPriceFieldError

	return errors.As(err, &missing)
}
