package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrUpstream   = errors.New("upstream error")
	ErrStorage    = errors.New("storage error")
	ErrNotFound   = errors.New("not found")
)

// Error carries the kind, the failing operation, a message safe to show to
// the caller, and the underlying cause if any.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message is the text exposed at the HTTP boundary.
func (e *Error) Message() string {
	if e.Kind == ErrUpstream && e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func validationError(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: msg}
}

func upstreamError(op string, err error) error {
	return &Error{Kind: ErrUpstream, Op: op, Msg: "plant identification failed", Err: err}
}

func storageError(op, msg string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Msg: msg, Err: err}
}

func notFoundError(op, what string) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: what + " not found"}
}
