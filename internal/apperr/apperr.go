// Package apperr defines the tagged error taxonomy shared by every engine
// operation. Each failure carries a Kind so callers can decide
// retry-vs-block-vs-inform without parsing message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. All kinds are recoverable by the caller; none is
// fatal to the process.
type Kind string

const (
	// KindValidation marks malformed input, the caller's fault.
	KindValidation Kind = "validation"
	// KindInvalidTransition marks a state machine violation; current state is
	// left unchanged.
	KindInvalidTransition Kind = "invalid_transition"
	// KindInsufficientInventory marks a deduction that would underflow stock.
	KindInsufficientInventory Kind = "insufficient_inventory"
	// KindIncompleteTasks marks an order completion blocked by open tasks.
	KindIncompleteTasks Kind = "incomplete_tasks"
	// KindOrderLocked marks a task mutation blocked by a completed parent order.
	KindOrderLocked Kind = "order_locked"
	// KindConflict marks concurrent modification detected by version mismatch.
	KindConflict Kind = "conflict"
	// KindNotFound marks a missing entity.
	KindNotFound Kind = "not_found"
	// KindPermission marks an actor role not allowed to perform the operation.
	KindPermission Kind = "permission"
)

// Error is a tagged engine error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain; unclassified errors report an
// empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
