package codegen

import (
	"unsafe"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/jit"
	"github.com/roach88/fnjit/internal/tuple"
	"github.com/roach88/fnjit/internal/tuplecall"
)

// Tuple-call wrapper parameter indices.
const (
	paramInData = iota
	paramInOffsets
	paramOutData
	paramOutOffsets
	paramContext
)

var tupleCallParamNames = [...]string{"in_data", "in_offsets", "out_data", "out_offsets", "context"}

// Option configures compilation.
type Option func(*options)

type options struct {
	settings BuildIRSettings
}

// WithSettings sets the recipe expansion settings.
func WithSettings(s BuildIRSettings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithMaintainStack enables BuildIRSettings.MaintainStack.
func WithMaintainStack() Option {
	return func(o *options) {
		o.settings.MaintainStack = true
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CompileTupleCall compiles fn into a tuple-call function. It uses the
// BuildIRBody if one is attached, otherwise the CompiledBody. The returned
// unit owns the code; the Func must not be called after the unit is
// closed.
//
// Configuration problems (missing body, missing codegen extension, unset
// or mistyped outputs) panic with an invariant error. Compilation
// failures are returned.
func CompileTupleCall(fn *core.Function, eng jit.Engine, opts ...Option) (tuplecall.Func, *jit.Compiled, error) {
	o := applyOptions(opts)
	if body, ok := core.BodyOf[BuildIRBody](fn); ok {
		return compileFromBuildIR(fn, body, eng, o)
	}
	return compileFromCompiled(fn, core.MustBody[*CompiledBody](fn).Native, eng, o)
}

func compileFromBuildIR(fn *core.Function, body BuildIRBody, eng jit.Engine, o options) (tuplecall.Func, *jit.Compiled, error) {
	return compileTupleCall(fn, eng, o, func(b *ir.Builder, inputs []ir.Value, ctx ir.Value) []ir.Value {
		return expandRecipe(fn, body, b, inputs, ctx, o.settings)
	})
}

func compileFromCompiled(fn *core.Function, native *ir.NativeFunc, eng jit.Engine, o options) (tuplecall.Func, *jit.Compiled, error) {
	return compileTupleCall(fn, eng, o, func(b *ir.Builder, inputs []ir.Value, ctx ir.Value) []ir.Value {
		return callNative(fn, native, b, inputs, ctx)
	})
}

// emitBody produces the output values from the loaded inputs.
type emitBody func(b *ir.Builder, inputs []ir.Value, ctx ir.Value) []ir.Value

func compileTupleCall(fn *core.Function, eng jit.Engine, o options, emit emitBody) (tuplecall.Func, *jit.Compiled, error) {
	sig := fn.Signature()
	inCG := codeGensOf(sig.InputTypes())
	outCG := codeGensOf(sig.OutputTypes())
	checkSlotSizes(fn.Name(), sig.InputTypes(), inCG)
	checkSlotSizes(fn.Name(), sig.OutputTypes(), outCG)

	m := ir.NewModule(fn.Name())
	wrapper := m.NewFunction(fn.Name(), ir.Void, ir.Ptr, ir.Ptr, ir.Ptr, ir.Ptr, ir.Ptr)
	for i, name := range tupleCallParamNames {
		wrapper.Param(i).SetName(name)
	}
	b := ir.NewBuilder(wrapper)
	ctx := wrapper.Param(paramContext)

	inputs := make([]ir.Value, len(inCG))
	for i, cg := range inCG {
		addr := slotAddress(b, wrapper.Param(paramInData), wrapper.Param(paramInOffsets), i)
		inputs[i] = cg.BuildLoadRelocate(b, addr)
	}

	if o.settings.MaintainStack {
		b.Call(enterNative(fn.Name()), ctx)
	}

	outputs := emit(b, inputs, ctx)

	for i, cg := range outCG {
		addr := slotAddress(b, wrapper.Param(paramOutData), wrapper.Param(paramOutOffsets), i)
		cg.BuildStoreRelocate(b, outputs[i], addr)
	}

	if o.settings.MaintainStack {
		b.Call(leaveNative, ctx)
	}
	b.RetVoid()

	unit, err := eng.Compile(m, wrapper)
	if err != nil {
		return nil, nil, err
	}
	return tupleCallFunc(unit.Entry()), unit, nil
}

// slotAddress emits data + offsets[i].
func slotAddress(b *ir.Builder, data, offsets ir.Value, i int) ir.Value {
	off := b.Load(ir.Int32, b.ConstGEP(offsets, ir.Int32, i))
	return b.GEP(data, off)
}

// checkSlotSizes asserts that the IR type of every slot occupies exactly
// the bytes its tuple layout reserves.
func checkSlotSizes(fnName string, types []*core.Type, cgs []TypeCodeGen) {
	for i, t := range types {
		info, ok := core.ExtensionOf[tuple.TypeInfo](t)
		if !ok {
			continue
		}
		core.Assert(info.Size() == cgs[i].IRType().Size(), core.ErrCodeTypeMismatch, fnName,
			"type %s occupies %d bytes but its IR type %s has %d", t, info.Size(), cgs[i].IRType(), cgs[i].IRType().Size())
	}
}

// expandRecipe runs a BuildIRBody against the loaded inputs.
func expandRecipe(fn *core.Function, body BuildIRBody, b *ir.Builder, inputs []ir.Value, ctx ir.Value, settings BuildIRSettings) []ir.Value {
	ci := newCodeInterface(fn.Signature(), inputs, ctx)
	body.BuildIR(b, ci, settings)
	ci.checkOutputs(fn.Name(), codeGensOf(fn.Signature().OutputTypes()))
	return ci.outputs
}

// callNative emits a call into a compiled body and unpacks its result.
func callNative(fn *core.Function, native *ir.NativeFunc, b *ir.Builder, inputs []ir.Value, ctx ir.Value) []ir.Value {
	params, ret := NativeSignature(fn.Signature())
	core.Assert(len(native.Params) == len(params), core.ErrCodeArityMismatch, fn.Name(),
		"native @%s takes %d parameters, want %d", native.Name, len(native.Params), len(params))
	for i, p := range params {
		core.Assert(native.Params[i].Equal(p), core.ErrCodeTypeMismatch, fn.Name(),
			"native @%s parameter %d is %s, want %s", native.Name, i, native.Params[i], p)
	}
	core.Assert(native.Ret.Equal(ret), core.ErrCodeTypeMismatch, fn.Name(),
		"native @%s returns %s, want %s", native.Name, native.Ret, ret)

	args := append(append([]ir.Value(nil), inputs...), ctx)
	result := b.Call(native, args...)
	outputs := make([]ir.Value, len(ret.Fields()))
	for i := range outputs {
		outputs[i] = b.ExtractValue(result, i)
	}
	return outputs
}

// tupleCallFunc adapts a compiled wrapper entry to the tuple-call ABI.
func tupleCallFunc(entry ir.NativeImpl) tuplecall.Func {
	return func(inData unsafe.Pointer, inOffsets *uint32, outData unsafe.Pointer, outOffsets *uint32, ctx *tuplecall.ExecutionContext) {
		entry([]ir.Word{
			ir.PtrWord(inData),
			ir.PtrWord(unsafe.Pointer(inOffsets)),
			ir.PtrWord(outData),
			ir.PtrWord(unsafe.Pointer(outOffsets)),
			ir.PtrWord(unsafe.Pointer(ctx)),
		})
	}
}

// enterNative pushes name on the execution context stack.
func enterNative(name string) *ir.NativeFunc {
	return &ir.NativeFunc{
		Name:   "fnjit.enter." + name,
		Params: []*ir.Type{ir.Ptr},
		Ret:    ir.Void,
		Impl: func(args []ir.Word) ir.Word {
			(*tuplecall.ExecutionContext)(args[0].Ptr).Enter(name)
			return ir.Word{}
		},
	}
}

// leaveNative pops the execution context stack.
var leaveNative = &ir.NativeFunc{
	Name:   "fnjit.leave",
	Params: []*ir.Type{ir.Ptr},
	Ret:    ir.Void,
	Impl: func(args []ir.Word) ir.Word {
		(*tuplecall.ExecutionContext)(args[0].Ptr).Leave()
		return ir.Word{}
	},
}
