package jit

import (
	"errors"
	"fmt"
)

// CompileError reports a module the engine could not compile.
type CompileError struct {
	Engine   string
	Module   string
	Function string
	Message  string
	Err      error
}

func (e *CompileError) Error() string {
	subject := e.Module
	if e.Function != "" {
		subject += "/@" + e.Function
	}
	if e.Err != nil {
		return fmt.Sprintf("%s engine: %s: %s: %v", e.Engine, subject, e.Message, e.Err)
	}
	return fmt.Sprintf("%s engine: %s: %s", e.Engine, subject, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompileError reports whether err is (or wraps) a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}
