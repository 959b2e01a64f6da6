package bibtex

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes parse failures.
type ErrorCode string

const (
	// ErrCodeUnterminatedValue indicates a brace or quote body ran off the input.
	ErrCodeUnterminatedValue ErrorCode = "UNTERMINATED_VALUE"

	// ErrCodeTokenMismatch indicates an expected token was not found.
	ErrCodeTokenMismatch ErrorCode = "TOKEN_MISMATCH"

	// ErrCodeMissingEquals indicates a field name without '='.
	ErrCodeMissingEquals ErrorCode = "MISSING_EQUALS"

	// ErrCodeInvalidValue indicates a bare value that is neither digits nor a month.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeRunawayKey indicates a key that reached end of input.
	ErrCodeRunawayKey ErrorCode = "RUNAWAY_KEY"
)

// remainingLimit caps how much trailing input a ParseError carries.
const remainingLimit = 80

// ParseError reports a grammar violation.
//
// Offset is the byte offset of the failure; Line and Column are 1-based.
// Remaining holds the input from Offset on, truncated for display.
type ParseError struct {
	Code      ErrorCode
	Message   string
	Offset    int
	Line      int
	Column    int
	Remaining string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Remaining == "" {
		return fmt.Sprintf("%s: %s at %d:%d (end of input)", e.Code, e.Message, e.Line, e.Column)
	}
	return fmt.Sprintf("%s: %s at %d:%d near %q", e.Code, e.Message, e.Line, e.Column, e.Remaining)
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ErrorCodeOf returns the ParseError code wrapped in err, or "".
func ErrorCodeOf(err error) ErrorCode {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
