package tuplecall

import (
	"slices"

	"github.com/roach88/fnjit/internal/core"
)

// ExecutionContext is threaded through every tuple call as the fifth
// pointer. It records the chain of functions currently executing when
// compiled with stack maintenance enabled.
//
// All methods accept a nil receiver; a nil context records nothing.
type ExecutionContext struct {
	stack []string
	calls int
}

// NewExecutionContext creates an empty context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{}
}

// Enter pushes a function name.
func (c *ExecutionContext) Enter(name string) {
	if c == nil {
		return
	}
	c.stack = append(c.stack, name)
	c.calls++
}

// Leave pops the innermost function name.
func (c *ExecutionContext) Leave() {
	if c == nil {
		return
	}
	core.Assert(len(c.stack) > 0, core.ErrCodeStateViolation, "execution context", "leave with empty stack")
	c.stack = c.stack[:len(c.stack)-1]
}

// Stack returns a copy of the current stack, outermost first.
func (c *ExecutionContext) Stack() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.stack)
}

// Depth returns the number of functions currently on the stack.
func (c *ExecutionContext) Depth() int {
	if c == nil {
		return 0
	}
	return len(c.stack)
}

// Calls returns how many times Enter was called.
func (c *ExecutionContext) Calls() int {
	if c == nil {
		return 0
	}
	return c.calls
}
