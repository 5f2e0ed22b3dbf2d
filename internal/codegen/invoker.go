package codegen

import (
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/jit"
	"github.com/roach88/fnjit/internal/tuple"
	"github.com/roach88/fnjit/internal/tuplecall"
)

// compiledTupleCall is the tuple-call body backed by a compiled unit.
type compiledTupleCall struct {
	name    string
	inputs  []*core.Type
	outputs []*core.Type
	fn      tuplecall.Func
	unit    *jit.Compiled
}

// Invoker is the tuple-call body produced by derivation. It owns its
// compiled unit.
type Invoker interface {
	tuplecall.Body
	Close() error
	Compiled() *jit.Compiled
}

func newCompiledTupleCall(fn *core.Function, f tuplecall.Func, unit *jit.Compiled) *compiledTupleCall {
	sig := fn.Signature()
	return &compiledTupleCall{
		name:    fn.Name(),
		inputs:  sig.InputTypes(),
		outputs: sig.OutputTypes(),
		fn:      f,
		unit:    unit,
	}
}

// BodyKind implements core.Body.
func (c *compiledTupleCall) BodyKind() string { return tuplecall.Kind }

// Call implements tuplecall.Body.
func (c *compiledTupleCall) Call(in, out *tuple.Tuple, ctx *tuplecall.ExecutionContext) {
	out.DestructAll()

	core.Assert(in.AllInitialized(), core.ErrCodeStateViolation, c.name, "input %s is not fully initialized", in)
	core.Assert(out.AllUninitialized(), core.ErrCodeStateViolation, c.name, "output %s is not fully uninitialized", out)
	core.Assert(in.Meta().Matches(c.inputs), core.ErrCodeArityMismatch, c.name,
		"input %s does not match the signature", in)
	core.Assert(out.Meta().Matches(c.outputs), core.ErrCodeArityMismatch, c.name,
		"output %s does not match the signature", out)

	c.fn(in.DataPtr(), in.OffsetsPtr(), out.DataPtr(), out.OffsetsPtr(), ctx)

	in.SetAllUninitialized()
	out.SetAllInitialized()
}

// Close releases the compiled unit. Calling the body afterwards panics.
func (c *compiledTupleCall) Close() error {
	return c.unit.Close()
}

// Compiled returns the unit backing the body.
func (c *compiledTupleCall) Compiled() *jit.Compiled {
	return c.unit
}
