// Package errors provides structured error types for the poststrat application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and library use
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - Dataset-level structural codes (EMPTY_POPULATION, STRATA_MISMATCH, ...)
//   - INTERNAL_ERROR: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidColumn, "missing column: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidColumn) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidColumn Code = "INVALID_COLUMN"
	ErrCodeInvalidBounds Code = "INVALID_BOUNDS"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Dataset-level structural errors. Per-record exclusions are never
	// errors; these fire only when a whole dataset cannot be used.
	ErrCodeEmptyPopulation Code = "EMPTY_POPULATION"
	ErrCodeStrataMismatch  Code = "STRATA_MISMATCH"
	ErrCodeUncoveredStrata Code = "UNCOVERED_STRATA"

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

// coder is satisfied by the typed domain errors below, which carry a
// fixed code instead of an *Error field.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a coded domain
// error with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
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

// EmptyPopulationError reports that a reference dataset retained zero
// records after filtering, so no population profile can be built.
type EmptyPopulationError struct {
	Total int // records seen before filtering
}

// Error implements the error interface.
func (e *EmptyPopulationError) Error() string {
	return fmt.Sprintf("empty population: no valid records remain (of %d read)", e.Total)
}

// Code returns the error code for this error type.
func (e *EmptyPopulationError) Code() Code {
	return ErrCodeEmptyPopulation
}

// UncoveredStrataError reports frame strata that the population profile
// cannot supply a target frequency for.
type UncoveredStrataError struct {
	Strata []string // offending stratum labels, sorted
}

// Error implements the error interface.
func (e *UncoveredStrataError) Error() string {
	return fmt.Sprintf("strata not covered by population profile: %s", strings.Join(e.Strata, ", "))
}

// Code returns the error code for this error type.
func (e *UncoveredStrataError) Code() Code {
	return ErrCodeUncoveredStrata
}

// StrataMismatchError reports a set difference between the frame's strata
// and the profile's strata, fatal unless partial coverage is allowed.
type StrataMismatchError struct {
	MissingFromProfile []string // frame strata absent from the profile, sorted
	MissingFromFrame   []string // profile strata absent from the frame, sorted
}

// Error implements the error interface.
func (e *StrataMismatchError) Error() string {
	var parts []string
	if len(e.MissingFromProfile) > 0 {
		parts = append(parts, fmt.Sprintf("not in profile: %s", strings.Join(e.MissingFromProfile, ", ")))
	}
	if len(e.MissingFromFrame) > 0 {
		parts = append(parts, fmt.Sprintf("not in frame: %s", strings.Join(e.MissingFromFrame, ", ")))
	}
	return "strata mismatch: " + strings.Join(parts, "; ")
}

// Code returns the error code for this error type.
func (e *StrataMismatchError) Code() Code {
	return ErrCodeStrataMismatch
}
