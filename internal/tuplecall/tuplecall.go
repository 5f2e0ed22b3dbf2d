package tuplecall

import (
	"unsafe"

	"github.com/roach88/fnjit/internal/tuple"
)

// Kind is the body kind name of tuple-call bodies.
const Kind = "tuple_call"

// Func is the native tuple-call ABI. Offsets are byte offsets into the
// matching data buffer, one per slot in signature order.
type Func func(inData unsafe.Pointer, inOffsets *uint32, outData unsafe.Pointer, outOffsets *uint32, ctx *ExecutionContext)

// Body is a directly callable representation of a Function.
//
// Call requires in to be fully initialized. The previous contents of out
// are destructed before the call. Afterwards in is fully uninitialized and
// out fully initialized.
type Body interface {
	BodyKind() string
	Call(in, out *tuple.Tuple, ctx *ExecutionContext)
}

// BodyFunc adapts a Go function to Body. The function is responsible for
// populating every output slot; state transitions are applied around it.
type BodyFunc func(in, out *tuple.Tuple, ctx *ExecutionContext)

// BodyKind implements core.Body.
func (f BodyFunc) BodyKind() string { return Kind }

// Call implements Body.
func (f BodyFunc) Call(in, out *tuple.Tuple, ctx *ExecutionContext) {
	out.DestructAll()
	f(in, out, ctx)
	in.SetAllUninitialized()
	out.SetAllInitialized()
}
