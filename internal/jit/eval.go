package jit

import (
	"fmt"
	"unsafe"

	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/mem"
)

// normalize sign-extends (or masks, for i1) integer bits to the width of t.
func normalize(t *ir.Type, bits uint64) uint64 {
	switch t.Kind() {
	case ir.KindInt1:
		return bits & 1
	case ir.KindInt8:
		return uint64(int64(int8(bits)))
	case ir.KindInt32:
		return uint64(int64(int32(bits)))
	}
	return bits
}

// arith evaluates add, sub, mul and div. Integer division by zero yields 0.
func arith(op ir.Opcode, t *ir.Type, x, y ir.Word) ir.Word {
	switch t.Kind() {
	case ir.KindFloat32:
		a, b := x.Float32(), y.Float32()
		var r float32
		switch op {
		case ir.OpAdd:
			r = a + b
		case ir.OpSub:
			r = a - b
		case ir.OpMul:
			r = a * b
		case ir.OpDiv:
			r = a / b
		}
		return ir.Float32Word(r)
	case ir.KindFloat64:
		a, b := x.Float64(), y.Float64()
		var r float64
		switch op {
		case ir.OpAdd:
			r = a + b
		case ir.OpSub:
			r = a - b
		case ir.OpMul:
			r = a * b
		case ir.OpDiv:
			r = a / b
		}
		return ir.Float64Word(r)
	}

	a, b := x.Int(), y.Int()
	var r int64
	switch op {
	case ir.OpAdd:
		r = a + b
	case ir.OpSub:
		r = a - b
	case ir.OpMul:
		r = a * b
	case ir.OpDiv:
		if b != 0 {
			r = a / b
		}
	}
	return ir.Word{Bits: normalize(t, uint64(r))}
}

func negate(t *ir.Type, x ir.Word) ir.Word {
	switch t.Kind() {
	case ir.KindFloat32:
		return ir.Float32Word(-x.Float32())
	case ir.KindFloat64:
		return ir.Float64Word(-x.Float64())
	}
	return ir.Word{Bits: normalize(t, uint64(-x.Int()))}
}

func compare(pred ir.Predicate, t *ir.Type, x, y ir.Word) ir.Word {
	var c int
	switch {
	case t.IsFloat():
		a, b := x.Float64(), y.Float64()
		if t.Kind() == ir.KindFloat32 {
			a, b = float64(x.Float32()), float64(y.Float32())
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		case a == b:
			c = 0
		default:
			// NaN: only "ne" holds.
			return ir.BoolWord(pred == ir.PredNE)
		}
	default:
		a, b := x.Int(), y.Int()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	}

	switch pred {
	case ir.PredEQ:
		return ir.BoolWord(c == 0)
	case ir.PredNE:
		return ir.BoolWord(c != 0)
	case ir.PredLT:
		return ir.BoolWord(c < 0)
	case ir.PredLE:
		return ir.BoolWord(c <= 0)
	case ir.PredGT:
		return ir.BoolWord(c > 0)
	case ir.PredGE:
		return ir.BoolWord(c >= 0)
	}
	return ir.BoolWord(false)
}

// convert casts between numeric types. Conversion to i1 tests for
// non-zero; float to integer truncates toward zero.
func convert(from, to *ir.Type, x ir.Word) ir.Word {
	if from.IsFloat() {
		f := x.Float64()
		if from.Kind() == ir.KindFloat32 {
			f = float64(x.Float32())
		}
		switch to.Kind() {
		case ir.KindFloat32:
			return ir.Float32Word(float32(f))
		case ir.KindFloat64:
			return ir.Float64Word(f)
		case ir.KindInt1:
			return ir.BoolWord(f != 0)
		}
		return ir.Word{Bits: normalize(to, uint64(int64(f)))}
	}

	i := x.Int()
	switch to.Kind() {
	case ir.KindFloat32:
		return ir.Float32Word(float32(i))
	case ir.KindFloat64:
		return ir.Float64Word(float64(i))
	case ir.KindInt1:
		return ir.BoolWord(i != 0)
	}
	return ir.Word{Bits: normalize(to, uint64(i))}
}

func selectWord(cond, x, y ir.Word) ir.Word {
	if cond.Bool() {
		return x
	}
	return y
}

func gep(base, off ir.Word) ir.Word {
	return ir.PtrWord(mem.Add(base.Ptr, int(off.Int())))
}

func extract(agg ir.Word, index int) ir.Word {
	return agg.Fields[index]
}

func insert(agg, v ir.Word, index int) ir.Word {
	fields := make([]ir.Word, len(agg.Fields))
	copy(fields, agg.Fields)
	fields[index] = v
	return ir.Word{Fields: fields}
}

// load reads a value of type t from p.
func load(t *ir.Type, p unsafe.Pointer) ir.Word {
	switch t.Kind() {
	case ir.KindInt1:
		return ir.Word{Bits: uint64(mem.Load[uint8](p)) & 1}
	case ir.KindInt8:
		return ir.IntWord(int64(mem.Load[int8](p)))
	case ir.KindInt32:
		return ir.IntWord(int64(mem.Load[int32](p)))
	case ir.KindInt64:
		return ir.IntWord(mem.Load[int64](p))
	case ir.KindFloat32:
		return ir.Word{Bits: uint64(mem.Load[uint32](p))}
	case ir.KindFloat64:
		return ir.Word{Bits: mem.Load[uint64](p)}
	case ir.KindPtr:
		return ir.PtrWord(loadPtr(p))
	case ir.KindStruct:
		fields := make([]ir.Word, len(t.Fields()))
		for i, f := range t.Fields() {
			fields[i] = load(f, mem.Add(p, t.FieldOffset(i)))
		}
		return ir.Word{Fields: fields}
	}
	panic(fmt.Sprintf("jit: load of %s", t))
}

// store writes w, a value of type t, to p.
func store(t *ir.Type, w ir.Word, p unsafe.Pointer) {
	switch t.Kind() {
	case ir.KindInt1:
		mem.Store(p, uint8(w.Bits&1))
	case ir.KindInt8:
		mem.Store(p, int8(w.Int()))
	case ir.KindInt32:
		mem.Store(p, int32(w.Int()))
	case ir.KindInt64:
		mem.Store(p, w.Int())
	case ir.KindFloat32:
		mem.Store(p, uint32(w.Bits))
	case ir.KindFloat64:
		mem.Store(p, w.Bits)
	case ir.KindPtr:
		storePtr(p, w.Ptr)
	case ir.KindStruct:
		for i, f := range t.Fields() {
			store(f, w.Fields[i], mem.Add(p, t.FieldOffset(i)))
		}
	default:
		panic(fmt.Sprintf("jit: store of %s", t))
	}
}

// Pointer-typed slots must be word aligned. Byte buffers are not scanned
// by the garbage collector, so the pointee must be kept alive elsewhere.
func loadPtr(p unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(p)
}

func storePtr(p, v unsafe.Pointer) {
	*(*unsafe.Pointer)(p) = v
}

// evalPure computes the result of a pure instruction from operand words.
// It reports false for instructions it cannot evaluate without memory
// (gep) or side effects.
func evalPure(in *ir.Inst, args []ir.Word) (ir.Word, bool) {
	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		return arith(in.Op, in.Type(), args[0], args[1]), true
	case ir.OpNeg:
		return negate(in.Type(), args[0]), true
	case ir.OpCmp:
		return compare(in.Pred, in.Operands[0].Type(), args[0], args[1]), true
	case ir.OpSelect:
		return selectWord(args[0], args[1], args[2]), true
	case ir.OpCast:
		return convert(in.Operands[0].Type(), in.Type(), args[0]), true
	case ir.OpExtractValue:
		return extract(args[0], in.Index), true
	case ir.OpInsertValue:
		return insert(args[0], args[1], in.Index), true
	}
	return ir.Word{}, false
}
