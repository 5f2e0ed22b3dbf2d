package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/fnjit/internal/core"
)

// RuntimeError is an error detected while preparing or invoking a function.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Function names the function being prepared or invoked.
	Function string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownFunction indicates the registry has no such function.
	ErrCodeUnknownFunction RuntimeErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeInvalidInput indicates an input value is missing, unexpected
	// or cannot be decoded into its parameter type.
	ErrCodeInvalidInput RuntimeErrorCode = "INVALID_INPUT"

	// ErrCodeDerivationFailed indicates a body could not be compiled.
	ErrCodeDerivationFailed RuntimeErrorCode = "DERIVATION_FAILED"

	// ErrCodeInvariantViolation indicates a core invariant panicked during
	// derivation or a call.
	ErrCodeInvariantViolation RuntimeErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeEngineClosed indicates the evaluator was used after Close.
	ErrCodeEngineClosed RuntimeErrorCode = "ENGINE_CLOSED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (function=%s)", e.Code, msg, e.Function)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownFunction returns true if err reports an unknown function.
func IsUnknownFunction(err error) bool { return hasCode(err, ErrCodeUnknownFunction) }

// IsInvalidInput returns true if err reports a bad input value.
func IsInvalidInput(err error) bool { return hasCode(err, ErrCodeInvalidInput) }

// IsDerivationError returns true if err reports a failed compilation.
func IsDerivationError(err error) bool { return hasCode(err, ErrCodeDerivationFailed) }

// IsInvariantViolation returns true if err reports a recovered invariant
// panic.
func IsInvariantViolation(err error) bool { return hasCode(err, ErrCodeInvariantViolation) }

func newUnknownFunctionError(name string, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeUnknownFunction,
		Message:  "function is not registered",
		Function: name,
		Err:      err,
	}
}

func newInvalidInputError(function, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf(format, args...),
		Function: function,
	}
}

func newDerivationError(function string, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeDerivationFailed,
		Message:  "derivation failed",
		Function: function,
		Err:      err,
	}
}

// invariantError converts a recovered panic value. Values that are not
// invariant failures are re-raised.
func invariantError(function string, r any) *RuntimeError {
	err, ok := r.(error)
	var ie *core.InvariantError
	if !ok || !errors.As(err, &ie) {
		panic(r)
	}
	return &RuntimeError{
		Code:     ErrCodeInvariantViolation,
		Message:  "invariant violated",
		Function: function,
		Err:      err,
	}
}
