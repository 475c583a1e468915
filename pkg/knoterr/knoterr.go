// Package knoterr defines the small, fixed error taxonomy spec.md §7
// requires: NotFound, AlreadyExists, KeyTooLong, ReadOnly, Corrupted, Io.
// It follows the corpus's structured-error idiom (a wrapped cause plus a
// programmatically-checkable code and optional key/value context) scaled
// down to the six kinds this store actually needs — no generic
// INVALID_INPUT/INTERNAL taxonomy, since every failure mode here maps
// cleanly onto one of the six.
package knoterr

import (
	"errors"
	"fmt"
)

// Code categorizes a failure the way callers are expected to branch on:
// by kind, not by parsing a message string.
type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeKeyTooLong    Code = "KEY_TOO_LONG"
	CodeReadOnly      Code = "READ_ONLY"
	CodeCorrupted     Code = "CORRUPTED"
	CodeIO            Code = "IO"
)

// Error wraps a cause with a code, a human message, and optional
// debugging details (e.g. the key or slot index involved).
type Error struct {
	code    Code
	message string
	cause   error
	details map[string]any
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap creates an Error that chains an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// WithDetail attaches a key/value pair of debugging context, returning
// the same *Error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Code returns the error's classification code.
func (e *Error) Code() Code { return e.code }

// Details returns the attached debugging context, or nil.
func (e *Error) Details() map[string]any { return e.details }

// CodeOf extracts the Code from err if it (or something in its chain) is
// an *Error, and the zero Code otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Convenience constructors for the six spec.md §7 kinds.

func NotFound(message string) *Error      { return New(CodeNotFound, message) }
func AlreadyExists(message string) *Error { return New(CodeAlreadyExists, message) }
func KeyTooLong(message string) *Error    { return New(CodeKeyTooLong, message) }
func ReadOnly(message string) *Error      { return New(CodeReadOnly, message) }
func Corrupted(message string) *Error     { return New(CodeCorrupted, message) }
func IO(cause error, message string) *Error {
	return Wrap(cause, CodeIO, message)
}
