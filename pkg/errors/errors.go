// Package errors provides the structured error record shared by every cpandas package.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code is the failure taxonomy of an Error
type Code string

const (
	// CodeOK is reported by CodeOf for a nil error
	CodeOK Code = "ok"
	// CodeInvalid covers invalid arguments, schema mismatches and callback failures
	CodeInvalid Code = "invalid"
	// CodeOutOfMemory covers impossible capacity requests
	CodeOutOfMemory Code = "out_of_memory"
	// CodeParse covers malformed input text and corrupt binary files
	CodeParse Code = "parse_error"
	// CodeIO covers failures of the underlying file or stream
	CodeIO Code = "io_error"
)

// Unknown is the coordinate value used when a row or column is not known.
const Unknown = -1

// Error is a structured error with best-effort row/column coordinates
type Error struct {
	Code       Code
	Message    string
	Row        int
	Column     int
	ColumnName string
	Cause      error
	Details    map[string]interface{}
	Stack      []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if loc := e.location(); loc != "" {
		b.WriteString(" (")
		b.WriteString(loc)
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) location() string {
	var parts []string
	if e.Row != Unknown {
		parts = append(parts, fmt.Sprintf("row %d", e.Row))
	}
	switch {
	case e.ColumnName != "" && e.Column != Unknown:
		parts = append(parts, fmt.Sprintf("column %d %q", e.Column, e.ColumnName))
	case e.ColumnName != "":
		parts = append(parts, fmt.Sprintf("column %q", e.ColumnName))
	case e.Column != Unknown:
		parts = append(parts, fmt.Sprintf("column %d", e.Column))
	}
	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// At sets both coordinates
func (e *Error) At(row, column int) *Error {
	e.Row = row
	e.Column = column
	return e
}

// WithRow sets the offending row
func (e *Error) WithRow(row int) *Error {
	e.Row = row
	return e
}

// WithColumn sets the offending column position
func (e *Error) WithColumn(column int) *Error {
	e.Column = column
	return e
}

// WithColumnName sets the offending column name
func (e *Error) WithColumnName(name string) *Error {
	e.ColumnName = name
	return e
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Row:     Unknown,
		Column:  Unknown,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Row:     Unknown,
		Column:  Unknown,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context. Coordinates already
// recorded on a wrapped *Error are carried over.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Code:       code,
			Message:    message,
			Row:        existing.Row,
			Column:     existing.Column,
			ColumnName: existing.ColumnName,
			Cause:      err,
			Stack:      existing.Stack,
		}
	}

	return &Error{
		Code:    code,
		Message: message,
		Row:     Unknown,
		Column:  Unknown,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsCode checks if the error carries the given code
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of err. Errors that did not originate here are
// reported as CodeInvalid.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if !errors.As(err, &e) {
		return CodeInvalid
	}
	return e.Code
}

// Location returns the row and column recorded on err, or Unknown.
func Location(err error) (row, column int) {
	var e *Error
	if !errors.As(err, &e) {
		return Unknown, Unknown
	}
	return e.Row, e.Column
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
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
