// Package apperr classifies the errors surfaced by the core services so the
// transport layer can map them to status codes without inspecting messages.
package apperr

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// Kind is the class of an error.
type Kind int

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota
	// KindNotFound covers both missing entities and entities hidden by the
	// caller's projection; the two are indistinguishable to non-admins.
	KindNotFound
	// KindForbidden is an authenticated caller lacking the required role.
	KindForbidden
	// KindConflict is a unique-constraint violation or a dependency that
	// prevents deletion.
	KindConflict
	// KindInvalid is a payload failing enum, shape, grammar, length or
	// cross-field validation.
	KindInvalid
	// KindExternalState marks an operation that left the entity store and the
	// object store inconsistent; re-running the operation converges them.
	KindExternalState
	// KindTransient is a database or transport fault the caller may retry.
	KindTransient
)

// Error carries a kind, the failed operation and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so sentinel comparisons work with
// errors.Is across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// NotFound builds a KindNotFound error.
func NotFound(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden builds a KindForbidden error.
func Forbidden(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Invalid builds a KindInvalid error.
func Invalid(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalid, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ExternalState builds a KindExternalState error naming the failed step.
func ExternalState(op, step string, cause error) *Error {
	return &Error{Kind: KindExternalState, Op: op, Msg: "object store step failed: " + step, Err: cause}
}

// Transient wraps a retryable fault.
func Transient(op string, cause error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: cause}
}

// KindOf extracts the Kind of err, walking the wrap chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// HTTPStatus maps a kind to the status code the transport should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindForbidden:
		return fiber.StatusForbidden
	case KindConflict:
		return fiber.StatusConflict
	case KindInvalid:
		return fiber.StatusBadRequest
	case KindExternalState:
		return fiber.StatusBadGateway
	case KindTransient, KindUnknown:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
