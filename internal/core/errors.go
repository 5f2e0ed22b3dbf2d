package core

import (
	"errors"
	"fmt"
)

// InvariantCode categorizes a broken internal-consistency contract.
type InvariantCode string

const (
	// ErrCodeDuplicateExtension indicates an extension kind was attached twice to a Type.
	ErrCodeDuplicateExtension InvariantCode = "DUPLICATE_EXTENSION"

	// ErrCodeDuplicateBody indicates a Body kind was attached twice to a Function.
	ErrCodeDuplicateBody InvariantCode = "DUPLICATE_BODY"

	// ErrCodeMissingBody indicates a derivation source Body is absent.
	ErrCodeMissingBody InvariantCode = "MISSING_BODY"

	// ErrCodeMissingExtension indicates a Type lacks a required extension.
	ErrCodeMissingExtension InvariantCode = "MISSING_EXTENSION"

	// ErrCodeMissingCodeGen indicates a Type used in a Signature has no code-generation extension.
	ErrCodeMissingCodeGen InvariantCode = "MISSING_CODEGEN"

	// ErrCodeMissingOutput indicates an IR recipe did not produce every output.
	ErrCodeMissingOutput InvariantCode = "MISSING_OUTPUT"

	// ErrCodeTypeMismatch indicates a value does not match the declared type.
	ErrCodeTypeMismatch InvariantCode = "TYPE_MISMATCH"

	// ErrCodeArityMismatch indicates a Tuple does not match the Signature it is used with.
	ErrCodeArityMismatch InvariantCode = "ARITY_MISMATCH"

	// ErrCodeUninitializedRead indicates a read of an uninitialized Tuple slot.
	ErrCodeUninitializedRead InvariantCode = "UNINITIALIZED_READ"

	// ErrCodeStateViolation indicates a Tuple was in the wrong initialization state for a call.
	ErrCodeStateViolation InvariantCode = "STATE_VIOLATION"
)

// InvariantError is the panic value for broken invariants.
type InvariantError struct {
	Code    InvariantCode
	Subject string // Type, Function or Tuple the check failed on
	Message string
}

func (e *InvariantError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Fail panics with an InvariantError.
func Fail(code InvariantCode, subject, format string, args ...any) {
	panic(&InvariantError{
		Code:    code,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

// Assert panics with an InvariantError when cond is false.
func Assert(cond bool, code InvariantCode, subject, format string, args ...any) {
	if !cond {
		Fail(code, subject, format, args...)
	}
}

// IsInvariant reports whether v (typically a recovered panic value or an
// error) is an InvariantError with the given code.
func IsInvariant(v any, code InvariantCode) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}
