package ir

// Builder appends instructions to the end of a function body.
//
// The builder does not validate operand types; Verify does. This keeps IR
// recipes free of error handling while still reporting malformed IR before
// it reaches an engine.
type Builder struct {
	fn *Function
}

// NewBuilder creates a builder appending to fn.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// Function returns the function being built.
func (b *Builder) Function() *Function {
	return b.fn
}

// Module returns the module of the function being built.
func (b *Builder) Module() *Module {
	return b.fn.module
}

func (b *Builder) emit(op Opcode, typ *Type, operands ...Value) *Inst {
	return b.fn.append(&Inst{Op: op, typ: typ, Operands: operands})
}

// ConstInt returns an integer constant.
func (b *Builder) ConstInt(t *Type, v int64) Value {
	return NewConst(t, IntWord(v))
}

// ConstBool returns an i1 constant.
func (b *Builder) ConstBool(v bool) Value {
	return NewConst(Int1, BoolWord(v))
}

// ConstFloat returns a float or double constant.
func (b *Builder) ConstFloat(t *Type, v float64) Value {
	if t.kind == KindFloat32 {
		return NewConst(t, Float32Word(float32(v)))
	}
	return NewConst(t, Float64Word(v))
}

// ConstZero returns the zero value of t.
func (b *Builder) ConstZero(t *Type) Value {
	return NewConst(t, ZeroWord(t))
}

// Add emits a + b.
func (b *Builder) Add(x, y Value) Value { return b.emit(OpAdd, x.Type(), x, y) }

// Sub emits x - y.
func (b *Builder) Sub(x, y Value) Value { return b.emit(OpSub, x.Type(), x, y) }

// Mul emits x * y.
func (b *Builder) Mul(x, y Value) Value { return b.emit(OpMul, x.Type(), x, y) }

// Div emits x / y. Integer division by zero yields zero.
func (b *Builder) Div(x, y Value) Value { return b.emit(OpDiv, x.Type(), x, y) }

// Neg emits -x.
func (b *Builder) Neg(x Value) Value { return b.emit(OpNeg, x.Type(), x) }

// Cmp emits a comparison producing i1.
func (b *Builder) Cmp(pred Predicate, x, y Value) Value {
	in := b.emit(OpCmp, Int1, x, y)
	in.Pred = pred
	return in
}

// Select emits cond ? x : y.
func (b *Builder) Select(cond, x, y Value) Value {
	return b.emit(OpSelect, x.Type(), cond, x, y)
}

// Cast converts x to type to.
func (b *Builder) Cast(x Value, to *Type) Value {
	return b.emit(OpCast, to, x)
}

// GEP emits base + offset, with offset counted in bytes.
func (b *Builder) GEP(base, offset Value) Value {
	return b.emit(OpGEP, Ptr, base, offset)
}

// ConstGEP emits base + index*elem.Size().
func (b *Builder) ConstGEP(base Value, elem *Type, index int) Value {
	return b.GEP(base, b.ConstInt(Int64, int64(index*elem.Size())))
}

// Load emits a load of a value of type t from addr.
func (b *Builder) Load(t *Type, addr Value) Value {
	return b.emit(OpLoad, t, addr)
}

// Store emits a store of v to addr.
func (b *Builder) Store(v, addr Value) {
	b.emit(OpStore, Void, v, addr)
}

// Call emits a call to a native routine, declaring it in the module.
func (b *Builder) Call(nf *NativeFunc, args ...Value) Value {
	b.fn.module.Declare(nf)
	in := b.emit(OpCall, nf.Ret, args...)
	in.Native = nf
	return in
}

// ExtractValue emits the extraction of field index from a struct value.
func (b *Builder) ExtractValue(agg Value, index int) Value {
	typ := Int1 // placeholder for a bad index, reported by Verify
	if fields := agg.Type().fields; index >= 0 && index < len(fields) {
		typ = fields[index]
	}
	in := b.emit(OpExtractValue, typ, agg)
	in.Index = index
	return in
}

// InsertValue emits a copy of agg with field index replaced by v.
func (b *Builder) InsertValue(agg, v Value, index int) Value {
	in := b.emit(OpInsertValue, agg.Type(), agg, v)
	in.Index = index
	return in
}

// RetVoid emits a void return.
func (b *Builder) RetVoid() {
	b.emit(OpRet, Void)
}

// Ret emits a return of v.
func (b *Builder) Ret(v Value) {
	b.emit(OpRet, Void, v)
}
