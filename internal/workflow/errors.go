package workflow

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the lifecycle engine matches exactly
// one of these through errors.Is.
var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrStorageFailure = errors.New("storage failure")
)

// Error is a classified workflow failure
type Error struct {
	Kind  error  // one of the Err* kinds above
	Op    string // action or operation that failed
	Field string // offending payload field, set for ErrInvalidInput
	Msg   string
	Err   error // underlying cause, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Forbidden reports that the actor may not perform op on the document
func Forbidden(op, msg string) *Error {
	return &Error{Kind: ErrForbidden, Op: op, Msg: msg}
}

// InvalidState reports that op is not allowed from the document's current stage
func InvalidState(op, msg string) *Error {
	return &Error{Kind: ErrInvalidState, Op: op, Msg: msg}
}

// InvalidInput reports a missing or malformed payload field
func InvalidInput(op, field, msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Op: op, Field: field, Msg: msg}
}

// NotFound reports a missing document, user or reviewer assignment
func NotFound(op, msg string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: msg}
}

// Conflict reports that a concurrent writer got there first
func Conflict(op, msg string) *Error {
	return &Error{Kind: ErrConflict, Op: op, Msg: msg}
}

// StorageFailure wraps an error coming from the persistence layer
func StorageFailure(op string, err error) *Error {
	return &Error{Kind: ErrStorageFailure, Op: op, Msg: "storage failure", Err: err}
}

// KindOf returns the kind of err, or nil when err is not a classified workflow error
func KindOf(err error) error {
	for _, kind := range []error{ErrForbidden, ErrInvalidState, ErrInvalidInput, ErrNotFound, ErrConflict, ErrStorageFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// FieldOf returns the offending field of an ErrInvalidInput, if any
func FieldOf(err error) string {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Field
	}
	return ""
}
