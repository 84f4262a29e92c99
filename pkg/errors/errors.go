// Package errors provides structured error types for debsrc.
//
// Every failure raised while turning a stanza into a source record carries a
// machine-readable [Code]. Codes let the caller decide whether to skip the
// record or halt the run without string matching:
//
//	if errors.Is(err, errors.ErrCodeDuplicateField) {
//	    // ambiguous stanza, skip it
//	}
//
// Errors may be wrapped with fmt.Errorf("...: %w", err); [Is] and [GetCode]
// look through the chain.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes raised by the record core. All of them are fatal to the one
// record being processed and non-fatal to the batch.
const (
	ErrCodeMissingField       Code = "MISSING_MANDATORY_FIELD"
	ErrCodeDuplicateField     Code = "DUPLICATE_FIELD"
	ErrCodeMalformedListEntry Code = "MALFORMED_LIST_ENTRY"
	ErrCodeMalformedFileEntry Code = "MALFORMED_FILE_ENTRY"
	ErrCodeDuplicateFileName  Code = "DUPLICATE_FILE_NAME"
	ErrCodeInconsistentHashes Code = "INCONSISTENT_HASH_SET"
	ErrCodeInvalidSize        Code = "INVALID_SIZE"
	ErrCodeUnknownOperator    Code = "UNKNOWN_CONSTRAINT_OPERATOR"
	ErrCodeTrailingInput      Code = "TRAILING_UNPARSED_INPUT"
	ErrCodeUnrecognizedEnum   Code = "UNRECOGNIZED_ENUM_VALUE"
)

// Error codes raised outside the record core.
const (
	ErrCodeMalformedStanza Code = "MALFORMED_STANZA"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeInternal        Code = "INTERNAL_ERROR"
	ErrCodeUnsupported     Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Field   string // Stanza field involved, if any
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

// ForField creates a new Error attributed to a stanza field.
func ForField(code Code, field, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// Is reports whether err has the given error code.
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

// FieldOf returns the stanza field an error is attributed to, or "".
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
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
