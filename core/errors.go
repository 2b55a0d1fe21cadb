package core

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy.
type Kind string

const (
	// KindConfiguration covers construction-time defects: duplicate names,
	// unresolved labels, invalid field values. Fatal, never handled by OnFail.
	KindConfiguration Kind = "configuration"

	// KindExecution covers a failing action or Wait. Handled per-command
	// through the command's OnFail policy.
	KindExecution Kind = "execution"

	// KindTimeout is an execution failure caused by an expired deadline
	// (Wait timeout, device query timeout).
	KindTimeout Kind = "timeout"

	// KindCapability means every capture provider was exhausted. Fatal for
	// the issuing worker only.
	KindCapability Kind = "capability"

	// KindOutOfRange means a coordinate mapping input fell outside the
	// logical bounds. Handled like an execution failure.
	KindOutOfRange Kind = "out_of_range"
)

// Error is a structured error carrying a kind, a machine-readable code and
// an optional cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause attached.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Cause: cause}
}

// WithMessagef returns a copy of the error with a formatted message.
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Cause: e.Cause}
}

// Predefined errors.
var (
	ErrDuplicateName = &Error{
		Kind:    KindConfiguration,
		Code:    "duplicate_name",
		Message: "command name is not unique within the script",
	}
	ErrUnresolvedLabel = &Error{
		Kind:    KindConfiguration,
		Code:    "unresolved_label",
		Message: "label does not resolve to any command",
	}
	ErrInvalidField = &Error{
		Kind:    KindConfiguration,
		Code:    "invalid_field",
		Message: "command field value out of range",
	}
	ErrDanglingParent = &Error{
		Kind:    KindConfiguration,
		Code:    "dangling_parent",
		Message: "parent id does not reference an enclosing command",
	}
	ErrBadExpression = &Error{
		Kind:    KindConfiguration,
		Code:    "bad_expression",
		Message: "expression does not compile",
	}
	ErrMissingCommand = &Error{
		Kind:    KindConfiguration,
		Code:    "missing_command",
		Message: "cursor points at a command id that does not exist",
	}

	ErrCommandFailed = &Error{
		Kind:    KindExecution,
		Code:    "command_failed",
		Message: "command did not succeed",
	}
	ErrIterationLimit = &Error{
		Kind:    KindExecution,
		Code:    "iteration_limit_exceeded",
		Message: "script-wide iteration cap reached",
	}

	ErrWaitTimeout = &Error{
		Kind:    KindTimeout,
		Code:    "wait_timeout",
		Message: "wait condition not met before timeout",
	}
	ErrQueryTimeout = &Error{
		Kind:    KindTimeout,
		Code:    "query_timeout",
		Message: "device query timed out",
	}

	ErrCaptureExhausted = &Error{
		Kind:    KindCapability,
		Code:    "capture_exhausted",
		Message: "every capture provider failed",
	}

	ErrOutOfRange = &Error{
		Kind:    KindOutOfRange,
		Code:    "coordinate_out_of_range",
		Message: "coordinate outside logical resolution",
	}
)

// KindOf returns the kind of err, or KindExecution for untyped errors.
// Unexpected errors propagate with execution semantics so the run loop
// never swallows them silently.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExecution
}

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsFatal reports whether err must halt the worker regardless of OnFail.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindConfiguration || k == KindCapability
}

// IsRecoverable reports whether err may be resolved by the command's
// OnFail policy. Timeout and out-of-range failures are execution failures.
func IsRecoverable(err error) bool {
	return !IsFatal(err)
}

// IsIterationLimit reports whether err is the script-wide iteration cap.
// The cap halts a run regardless of any OnFail policy.
func IsIterationLimit(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrIterationLimit.Code
}
