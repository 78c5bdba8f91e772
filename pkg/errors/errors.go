// Package errors provides structured error handling for arrowload
package errors

import (
	"errors"
	"runtime"

	stringpool "github.com/ajitpratap0/arrowload/pkg/strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeSourceOpen means the source path is missing or unreadable
	ErrorTypeSourceOpen ErrorType = "source_open"
	// ErrorTypeSourceFormat means the source is readable but not a columnar batch stream
	ErrorTypeSourceFormat ErrorType = "source_format"
	// ErrorTypeDestinationOpen means the destination connection could not be established
	ErrorTypeDestinationOpen ErrorType = "destination_open"
	// ErrorTypeSchemaMapping means a column's logical type has no storage mapping
	ErrorTypeSchemaMapping ErrorType = "schema_mapping"
	// ErrorTypeSchemaDrift means a later batch disagrees with the first batch's schema
	ErrorTypeSchemaDrift ErrorType = "schema_drift"
	// ErrorTypeTableCreation means the CREATE TABLE statement failed
	ErrorTypeTableCreation ErrorType = "table_creation"
	// ErrorTypeTableDrop is only ever logged
	ErrorTypeTableDrop ErrorType = "table_drop"
	// ErrorTypeStatementExecution means one insert or append call failed
	ErrorTypeStatementExecution ErrorType = "statement_execution"
	// ErrorTypePartialInsert means fewer rows were persisted than were read
	ErrorTypePartialInsert ErrorType = "partial_insert"
	// ErrorTypeInvariantViolation means more rows were persisted than were read
	ErrorTypeInvariantViolation ErrorType = "invariant_violation"
	// ErrorTypeCanceled represents a load aborted through its context
	ErrorTypeCanceled ErrorType = "canceled"

	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeCapability represents capability/feature not supported errors
	ErrorTypeCapability ErrorType = "capability"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value previously attached with WithDetail.
func (e *Error) Detail(key string) (interface{}, bool) {
	if e.Details == nil {
		return nil, false
	}
	v, ok := e.Details[key]
	return v, ok
}

// Fatal reports whether the error aborts a load. Only table drop failures
// are recovered locally.
func (e *Error) Fatal() bool {
	return e.Type != ErrorTypeTableDrop
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: stringpool.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRetryable returns true if the error is retryable. Only transient
// connectivity failures qualify.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the outermost ErrorType in the chain, or ErrorTypeInternal
// for errors that did not originate here.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// As is errors.As re-exported so callers need a single import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
