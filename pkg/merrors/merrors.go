package merrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind string

const (
	Network    Kind = "network"
	Permission Kind = "permission"
	Unfound    Kind = "unfound"
	System     Kind = "system"
	Intern     Kind = "intern"
	Format     Kind = "format"
	Argument   Kind = "argument"
)

// Error is the tagged error carried across thread boundaries by Actions.
// Code holds an OS errno attached with WithCode, or 0; New and Wrap leave
// it at 0.
type Error struct {
	kind Kind
	code int
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap lets errors.Is/errors.As from either stdlib errors or
// github.com/pkg/errors see through to the underlying cause.
func (e *Error) Unwrap() error { return e.err }

// Kind reports the failure class.
func (e *Error) Kind() Kind { return e.kind }

// Code reports the OS errno, or 0 if none applies.
func (e *Error) Code() int { return e.code }

// New creates a tagged error with no underlying cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a stack-trace-carrying cause (via github.com/pkg/errors) to
// a tagged error. Passing a nil err returns nil, so call sites can write
//
//	return merrors.Wrap(merrors.Network, err, "connect %s", addr)
//
// directly after a fallible call without an extra nil check.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		kind: kind,
		msg:  fmt.Sprintf(format, args...),
		err:  errors.WithStack(err),
	}
}

// WithCode attaches an OS errno to a tagged error, returning e for chaining.
func (e *Error) WithCode(code int) *Error {
	e.code = code
	return e
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.kind == kind
	}
	return false
}
