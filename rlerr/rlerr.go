// Package rlerr defines the error-kind taxonomy shared by every layer of
// the RLVM core, from the LZSS codec up through the machine.
package rlerr

import "fmt"

// Kind classifies why an operation failed. Callers branch on Kind, not on
// the concrete error type.
type Kind int

const (
	// BadFormat means a codec or parser saw structurally invalid input.
	BadFormat Kind = iota
	// Truncated means input ended before the expected amount was consumed.
	Truncated
	// InvalidWidth means a requested bit-width fell outside 0..64.
	InvalidWidth
	// NotFound means an asset, Gameexe key, or scenario index is missing.
	NotFound
	// TypeMismatch means a Gameexe accessor was used with the wrong type.
	TypeMismatch
	// OutOfRange means a memory bank access or byte-reader seek went out of bounds.
	OutOfRange
	// Undefined means an opcode was invoked with no registered implementation.
	Undefined
	// RuntimeError means expression evaluation or a machine invariant was violated.
	RuntimeError
)

func (k Kind) String() string {
	switch k {
	case BadFormat:
		return "BadFormat"
	case Truncated:
		return "Truncated"
	case InvalidWidth:
		return "InvalidWidth"
	case NotFound:
		return "NotFound"
	case TypeMismatch:
		return "TypeMismatch"
	case OutOfRange:
		return "OutOfRange"
	case Undefined:
		return "Undefined"
	case RuntimeError:
		return "RuntimeError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across package boundaries in
// RLVM. It carries a Kind so callers can recover with errors.As and switch
// on Kind without string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a Kind-tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind-tagged error that wraps an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
		return e.Kind == kind
	}
	return false
}
