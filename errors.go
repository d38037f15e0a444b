package acktracker

import (
	"errors"
	"fmt"
)

// ErrorCode is a high-level error category for the tracker (spec.md §7).
type ErrorCode string

const (
	// ErrCodeWindowExhausted is raised when a static Consecutive
	// container's request_pending finds the ring full. Never escalated
	// past RequestBookmark's (nil, false) return — constructing this
	// value is only done by callers that want to log/compare codes.
	ErrCodeWindowExhausted ErrorCode = "window exhausted"
	// ErrCodeMisuseInvariant marks a programming error: track without a
	// preceding RequestBookmark, ack of a message with no handle,
	// batch_size==0, or a missing on-batch callback. Always surfaces via
	// panic, never a returned error. (drop(n>size) also panics, but from
	// internal/container with a plain string, not an *Error.)
	ErrCodeMisuseInvariant ErrorCode = "misuse invariant"
	// ErrCodeTeardownWithInflight marks a Deinit/Free called while
	// records remain outstanding. Not fatal; see spec.md §7 table for
	// per-variant handling.
	ErrCodeTeardownWithInflight ErrorCode = "teardown with inflight records"
)

// Error is a structured tracker error with enough context to log and
// compare by code (spec.md §7 taxonomy).
type Error struct {
	Op     string    // operation that failed, e.g. "RequestBookmark", "Ack"
	Variant string    // tracker variant, e.g. "consecutive", "batched" ("" if not applicable)
	Code   ErrorCode
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	switch {
	case e.Op != "" && e.Variant != "":
		return fmt.Sprintf("acktracker: %s (op=%s variant=%s)", msg, e.Op, e.Variant)
	case e.Op != "":
		return fmt.Sprintf("acktracker: %s (op=%s)", msg, e.Op)
	default:
		return fmt.Sprintf("acktracker: %s", msg)
	}
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Inner }

// Is compares by Code so callers can do errors.Is(err, &Error{Code: ...}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok || te == nil {
		return false
	}
	return e.Code == te.Code
}

// NewError builds a structured error for the given operation and code.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// newMisuse builds a MisuseInvariant error for the caller to panic with —
// the Go rendering of spec.md §7's "fatal programming error (assert/abort)".
func newMisuse(op, variant, msg string) *Error {
	return &Error{Op: op, Variant: variant, Code: ErrCodeMisuseInvariant, Msg: msg}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
