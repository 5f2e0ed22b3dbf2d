package codegen

import (
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/jit"
)

// Body kind names.
const (
	KindBuildIR  = "build_ir"
	KindCompiled = "compiled"
)

// BuildIRSettings controls how a recipe is expanded.
type BuildIRSettings struct {
	// MaintainStack makes generated wrappers push and pop the function
	// name on the ExecutionContext stack.
	MaintainStack bool

	// Callees maps function names to the compiled routines a recipe may
	// call. A recipe uses these instead of reading the callee's bodies,
	// which another goroutine may be extending at the same time.
	Callees map[string]*ir.NativeFunc
}

// CodeInterface connects a recipe to the values of the function being
// generated.
type CodeInterface struct {
	sig     core.Signature
	inputs  []ir.Value
	outputs []ir.Value
	context ir.Value
}

func newCodeInterface(sig core.Signature, inputs []ir.Value, context ir.Value) *CodeInterface {
	return &CodeInterface{
		sig:     sig,
		inputs:  inputs,
		outputs: make([]ir.Value, len(sig.Outputs())),
		context: context,
	}
}

// Signature returns the signature of the function being generated.
func (ci *CodeInterface) Signature() core.Signature { return ci.sig }

// NumInputs returns the number of inputs.
func (ci *CodeInterface) NumInputs() int { return len(ci.inputs) }

// NumOutputs returns the number of outputs.
func (ci *CodeInterface) NumOutputs() int { return len(ci.outputs) }

// Input returns the value of input i.
func (ci *CodeInterface) Input(i int) ir.Value {
	core.Assert(i >= 0 && i < len(ci.inputs), core.ErrCodeArityMismatch, "code interface",
		"input %d out of range [0, %d)", i, len(ci.inputs))
	return ci.inputs[i]
}

// InputByName returns the value of the named input.
func (ci *CodeInterface) InputByName(name string) ir.Value {
	i := ci.sig.InputIndex(name)
	core.Assert(i >= 0, core.ErrCodeArityMismatch, "code interface", "no input named %q", name)
	return ci.inputs[i]
}

// SetOutput assigns the value of output i.
func (ci *CodeInterface) SetOutput(i int, v ir.Value) {
	core.Assert(i >= 0 && i < len(ci.outputs), core.ErrCodeArityMismatch, "code interface",
		"output %d out of range [0, %d)", i, len(ci.outputs))
	ci.outputs[i] = v
}

// SetOutputByName assigns the value of the named output.
func (ci *CodeInterface) SetOutputByName(name string, v ir.Value) {
	i := ci.sig.OutputIndex(name)
	core.Assert(i >= 0, core.ErrCodeArityMismatch, "code interface", "no output named %q", name)
	ci.outputs[i] = v
}

// Output returns the value assigned to output i, if any.
func (ci *CodeInterface) Output(i int) (ir.Value, bool) {
	v := ci.outputs[i]
	return v, v != nil
}

// Context returns the execution context pointer.
func (ci *CodeInterface) Context() ir.Value { return ci.context }

// checkOutputs asserts every output is set with its declared IR type.
func (ci *CodeInterface) checkOutputs(fnName string, cgs []TypeCodeGen) {
	for i, out := range ci.sig.Outputs() {
		v, ok := ci.Output(i)
		core.Assert(ok, core.ErrCodeMissingOutput, fnName, "output %q was not set", out.Name())
		core.Assert(v.Type().Equal(cgs[i].IRType()), core.ErrCodeTypeMismatch, fnName,
			"output %q is %s, want %s", out.Name(), v.Type(), cgs[i].IRType())
	}
}

// BuildIRBody is a recipe emitting a function's computation as IR.
type BuildIRBody interface {
	BodyKind() string
	BuildIR(b *ir.Builder, ci *CodeInterface, settings BuildIRSettings)
}

// BuildIRFunc adapts a function to BuildIRBody.
type BuildIRFunc func(b *ir.Builder, ci *CodeInterface, settings BuildIRSettings)

// BodyKind implements core.Body.
func (f BuildIRFunc) BodyKind() string { return KindBuildIR }

// BuildIR implements BuildIRBody.
func (f BuildIRFunc) BuildIR(b *ir.Builder, ci *CodeInterface, settings BuildIRSettings) {
	f(b, ci, settings)
}

// CompiledBody is a natively compiled implementation. Native takes the
// input values followed by the execution context pointer and returns a
// struct with one field per output.
type CompiledBody struct {
	Native *ir.NativeFunc
	unit   *jit.Compiled
}

// NewCompiledBody wraps an existing native routine.
func NewCompiledBody(nf *ir.NativeFunc) *CompiledBody {
	return &CompiledBody{Native: nf}
}

// BodyKind implements core.Body.
func (c *CompiledBody) BodyKind() string { return KindCompiled }

// Unit returns the compiled unit backing Native when the body was derived
// by this package, or nil for foreign routines.
func (c *CompiledBody) Unit() *jit.Compiled { return c.unit }

// Close releases the backing unit, if owned.
func (c *CompiledBody) Close() error {
	if c.unit == nil {
		return nil
	}
	return c.unit.Close()
}

// NativeSignature returns the parameter and return types a compiled body
// for sig must have.
func NativeSignature(sig core.Signature) (params []*ir.Type, ret *ir.Type) {
	params = append(irTypes(codeGensOf(sig.InputTypes())), ir.Ptr)
	return params, ir.StructOf(irTypes(codeGensOf(sig.OutputTypes()))...)
}

// AddBuildIRBody attaches a recipe to fn.
func AddBuildIRBody(fn *core.Function, body BuildIRBody) {
	core.AddBody[BuildIRBody](fn, body)
}

// AddCompiledBody attaches a native body to fn.
func AddCompiledBody(fn *core.Function, body *CompiledBody) {
	core.AddBody[*CompiledBody](fn, body)
}
