package engine

import (
	"errors"
	"fmt"
)

// RuntimeError reports an event the resolver could not accept.
//
// Missing dependencies and unknown keys are never errors: the first defers
// work, the second resolves to the not-found sentinel. RuntimeError covers
// only malformed calls.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Event is the offending event type.
	Event EventType

	// Marker identifies the affected marker, if any.
	Marker string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidEvent indicates an event with an unknown type or
	// missing payload.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"

	// ErrCodeMissingMarker indicates a marker event without a marker ID.
	ErrCodeMissingMarker RuntimeErrorCode = "MISSING_MARKER"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Marker != "" {
		return fmt.Sprintf("%s: %s (event=%s, marker=%s)", e.Code, e.Message, e.Event, e.Marker)
	}
	return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
}

// IsInvalidEvent returns true if err is a RuntimeError of any code.
// Uses errors.As to handle wrapped errors.
func IsInvalidEvent(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// IsMissingMarker returns true if err reports a marker event without an ID.
func IsMissingMarker(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingMarker
	}
	return false
}

func newInvalidEvent(ev EventType, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidEvent,
		Message: fmt.Sprintf(format, args...),
		Event:   ev,
	}
}

func newMissingMarker(ev EventType) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMissingMarker,
		Message: "marker event requires a marker ID",
		Event:   ev,
	}
}
