package codegen

import (
	"fmt"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/jit"
	"github.com/roach88/fnjit/internal/tuplecall"
)

// compiledSuffix names routines produced by DeriveCompiledFromBuildIR.
const compiledSuffix = ".compiled"

// DeriveTupleCallFromBuildIR compiles fn's BuildIRBody into a tuple-call
// body and attaches it. fn must have a BuildIRBody and no tuple-call body.
// On error fn is left unchanged.
func DeriveTupleCallFromBuildIR(fn *core.Function, eng jit.Engine, opts ...Option) error {
	core.AssertDerivable[BuildIRBody, tuplecall.Body](fn)
	body := core.MustBody[BuildIRBody](fn)

	f, unit, err := compileFromBuildIR(fn, body, eng, applyOptions(opts))
	if err != nil {
		return fmt.Errorf("derive tuple call for %s: %w", fn.Name(), err)
	}
	core.AddBody[tuplecall.Body](fn, newCompiledTupleCall(fn, f, unit))
	return nil
}

// DeriveTupleCallFromCompiled wraps fn's CompiledBody in a tuple-call body
// and attaches it. fn must have a CompiledBody and no tuple-call body.
func DeriveTupleCallFromCompiled(fn *core.Function, eng jit.Engine, opts ...Option) error {
	core.AssertDerivable[*CompiledBody, tuplecall.Body](fn)
	native := core.MustBody[*CompiledBody](fn).Native

	f, unit, err := compileFromCompiled(fn, native, eng, applyOptions(opts))
	if err != nil {
		return fmt.Errorf("derive tuple call for %s: %w", fn.Name(), err)
	}
	core.AddBody[tuplecall.Body](fn, newCompiledTupleCall(fn, f, unit))
	return nil
}

// DeriveCompiledFromBuildIR compiles fn's BuildIRBody into a standalone
// native routine with the compiled-body convention and attaches it. The
// routine can be called from other generated code or wrapped later by
// DeriveTupleCallFromCompiled.
func DeriveCompiledFromBuildIR(fn *core.Function, eng jit.Engine, opts ...Option) error {
	core.AssertDerivable[BuildIRBody, *CompiledBody](fn)
	body := core.MustBody[BuildIRBody](fn)
	o := applyOptions(opts)

	sig := fn.Signature()
	outCG := codeGensOf(sig.OutputTypes())
	params, ret := NativeSignature(sig)

	name := fn.Name() + compiledSuffix
	m := ir.NewModule(name)
	native := m.NewFunction(name, ret, params...)
	for i, in := range sig.Inputs() {
		native.Param(i).SetName(in.Name())
	}
	ctx := native.Param(len(params) - 1)
	ctx.SetName("context")

	b := ir.NewBuilder(native)
	inputs := make([]ir.Value, len(sig.Inputs()))
	for i := range inputs {
		inputs[i] = native.Param(i)
	}
	if o.settings.MaintainStack {
		b.Call(enterNative(fn.Name()), ctx)
	}

	ci := newCodeInterface(sig, inputs, ctx)
	body.BuildIR(b, ci, o.settings)
	ci.checkOutputs(fn.Name(), outCG)

	var agg ir.Value = b.ConstZero(ret)
	for i, v := range ci.outputs {
		agg = b.InsertValue(agg, v, i)
	}
	if o.settings.MaintainStack {
		b.Call(leaveNative, ctx)
	}
	b.Ret(agg)

	unit, err := eng.Compile(m, native)
	if err != nil {
		return fmt.Errorf("derive compiled body for %s: %w", fn.Name(), err)
	}
	core.AddBody[*CompiledBody](fn, &CompiledBody{
		Native: &ir.NativeFunc{
			Name:   name,
			Params: params,
			Ret:    ret,
			Impl:   unit.Entry(),
		},
		unit: unit,
	})
	return nil
}
