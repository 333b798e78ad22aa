package model

import "errors"

// Error categories. Every error returned by the engine wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrValidation covers malformed input: bad dimensions, mass, priority,
	// positions or request arguments.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers unknown item or container ids.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers duplicate ids and overlapping placements.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState covers operations that are not allowed for the
	// current lifecycle state of a record.
	ErrInvalidState = errors.New("invalid state")
	// ErrExhausted means no container can hold an item, even after
	// rearrangement.
	ErrExhausted = errors.New("exhausted")
)

// ErrorKind names an error category.
type ErrorKind string

const (
	KindValidation   ErrorKind = "ValidationError"
	KindNotFound     ErrorKind = "NotFound"
	KindConflict     ErrorKind = "Conflict"
	KindInvalidState ErrorKind = "InvalidState"
	KindExhausted    ErrorKind = "Exhausted"
	KindInternal     ErrorKind = "Internal"
)

// Classify maps err onto its category. Nil errors classify as "".
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrExhausted):
		return KindExhausted
	default:
		return KindInternal
	}
}
