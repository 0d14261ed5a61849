package smt

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind is the closed classification of failures.
type ErrorKind uint8

const (
	// APIError means the caller violated a documented precondition. The
	// session is unaffected.
	APIError ErrorKind = iota + 1
	// UnsupportedError means the request is well formed but the backend does
	// not implement it.
	UnsupportedError
	// InternalError means the backend failed. The session should be abandoned.
	InternalError
)

func (k ErrorKind) String() string {
	switch k {
	case APIError:
		return "APIError"
	case UnsupportedError:
		return "UnsupportedError"
	case InternalError:
		return "InternalError"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error is the only error type returned by the contract.
type Error struct {
	Kind ErrorKind
	// Op names the contract operation that failed, e.g. "pop".
	Op  string
	Msg string

	cause error
}

var (
	// ErrAPI, ErrUnsupported and ErrInternal match any *Error of the same kind
	// under errors.Is.
	ErrAPI         = &Error{Kind: APIError}
	ErrUnsupported = &Error{Kind: UnsupportedError}
	ErrInternal    = &Error{Kind: InternalError}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the native failure an InternalError was built from.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// APIErrorf builds an APIError.
func APIErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: APIError, Msg: fmt.Sprintf(format, args...)}
}

// Unsupportedf builds an UnsupportedError.
func Unsupportedf(format string, args ...interface{}) *Error {
	return &Error{Kind: UnsupportedError, Msg: fmt.Sprintf(format, args...)}
}

// Internalf builds an InternalError without a native cause.
func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: InternalError, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps a native backend failure as an InternalError, recording the
// stack at the point of translation.
func Internal(cause error, msg string) *Error {
	if cause == nil {
		cause = errors.New("backend failure")
	}
	return &Error{Kind: InternalError, Msg: msg, cause: errors.WithStack(cause)}
}

// Classify returns err unchanged when it already carries a kind and wraps it
// as an InternalError otherwise, so no native failure leaves an adapter
// unclassified.
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal(err, msg)
}

// KindOf reports the kind of err.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsAPI reports whether err is an APIError.
func IsAPI(err error) bool {
	return errors.Is(err, ErrAPI)
}

// IsUnsupported reports whether err is an UnsupportedError.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsInternal reports whether err is an InternalError.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func withOp(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			c := *e
			c.Op = op
			return &c
		}
		return err
	}
	c := Internal(err, "unclassified backend error")
	c.Op = op
	return c
}
