package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindCapability
	KindCapacity
	KindUnsupported
	KindInvalidTarget
	KindInvalidState
	KindValidation
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindCapability:
		return "CapabilityError"
	case KindCapacity:
		return "CapacityError"
	case KindUnsupported:
		return "UnsupportedOperationError"
	case KindInvalidTarget:
		return "InvalidTargetError"
	case KindInvalidState:
		return "InvalidStateError"
	case KindValidation:
		return "ValidationError"
	case KindTimeout:
		return "TimeoutError"
	default:
		return "Error"
	}
}

// CodeUnsupportedConference is reported when endpoints are added to a
// conference that was not created with video enabled.
const CodeUnsupportedConference = 102

// Error is the typed error returned by every engine operation.
// errors.Is matches on Kind only, so the sentinels below work as categories.
type Error struct {
	Kind ErrorKind
	Code int
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConfiguration = &Error{Kind: KindConfiguration, Msg: "bad configuration"}
	ErrCapability    = &Error{Kind: KindCapability, Msg: "operation not allowed in current mode"}
	ErrCapacity      = &Error{Kind: KindCapacity, Msg: "capacity exceeded"}
	ErrUnsupported   = &Error{Kind: KindUnsupported, Code: CodeUnsupportedConference, Msg: "unsupported operation"}
	ErrInvalidTarget = &Error{Kind: KindInvalidTarget, Msg: "invalid media target"}
	ErrInvalidState  = &Error{Kind: KindInvalidState, Msg: "entity is no longer usable"}
	ErrValidation    = &Error{Kind: KindValidation, Msg: "invalid input"}
	ErrTimeout       = &Error{Kind: KindTimeout, Msg: "deadline exceeded"}
)

func NewError(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a cause to a new typed error.
func WrapError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: err.Error(), Err: err}
}

// KindOf extracts the kind of a domain error, KindUnknown otherwise.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
