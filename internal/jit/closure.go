package jit

import (
	"fmt"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
)

// getter produces an operand value from the register file.
type getter func(regs []ir.Word) ir.Word

// step executes one instruction against the register file.
type step func(regs []ir.Word)

func compileClosure(_ *config, fn *ir.Function) (ir.NativeImpl, error) {
	steps := make([]step, 0, len(fn.Body))
	var result getter

	for i, in := range fn.Body {
		if in.Op == ir.OpRet {
			if len(in.Operands) == 1 {
				result = operand(in.Operands[0])
			}
			break
		}
		s, err := compileStep(in)
		if err != nil {
			return nil, fmt.Errorf("inst %d (%s): %w", i, in.Op, err)
		}
		steps = append(steps, s)
	}

	nslots := fn.NumSlots()
	nparams := len(fn.Params)
	name := fn.Name

	return func(args []ir.Word) ir.Word {
		core.Assert(len(args) == nparams, core.ErrCodeArityMismatch, name,
			"expected %d arguments, got %d", nparams, len(args))

		regs := make([]ir.Word, nslots)
		copy(regs, args)
		for _, s := range steps {
			s(regs)
		}
		if result == nil {
			return ir.Word{}
		}
		return result(regs)
	}, nil
}

func operand(v ir.Value) getter {
	switch v := v.(type) {
	case *ir.Const:
		w := v.Word
		return func([]ir.Word) ir.Word { return w }
	case *ir.Param:
		idx := v.Index
		return func(regs []ir.Word) ir.Word { return regs[idx] }
	case *ir.Inst:
		slot := v.Slot()
		return func(regs []ir.Word) ir.Word { return regs[slot] }
	}
	return func([]ir.Word) ir.Word { return ir.Word{} }
}

func operands(in *ir.Inst) []getter {
	gs := make([]getter, len(in.Operands))
	for i, op := range in.Operands {
		gs[i] = operand(op)
	}
	return gs
}

func compileStep(in *ir.Inst) (step, error) {
	dst := in.Slot()
	ops := operands(in)
	t := in.Type()

	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		x, y, op := ops[0], ops[1], in.Op
		if t.Kind() == ir.KindFloat32 && op == ir.OpAdd {
			return func(regs []ir.Word) {
				regs[dst] = ir.Float32Word(x(regs).Float32() + y(regs).Float32())
			}, nil
		}
		return func(regs []ir.Word) {
			regs[dst] = arith(op, t, x(regs), y(regs))
		}, nil

	case ir.OpNeg:
		x := ops[0]
		return func(regs []ir.Word) { regs[dst] = negate(t, x(regs)) }, nil

	case ir.OpCmp:
		x, y, pred, ot := ops[0], ops[1], in.Pred, in.Operands[0].Type()
		return func(regs []ir.Word) { regs[dst] = compare(pred, ot, x(regs), y(regs)) }, nil

	case ir.OpSelect:
		c, x, y := ops[0], ops[1], ops[2]
		return func(regs []ir.Word) {
			if c(regs).Bool() {
				regs[dst] = x(regs)
			} else {
				regs[dst] = y(regs)
			}
		}, nil

	case ir.OpCast:
		x, from := ops[0], in.Operands[0].Type()
		return func(regs []ir.Word) { regs[dst] = convert(from, t, x(regs)) }, nil

	case ir.OpGEP:
		base, off := ops[0], ops[1]
		return func(regs []ir.Word) { regs[dst] = gep(base(regs), off(regs)) }, nil

	case ir.OpLoad:
		addr := ops[0]
		return func(regs []ir.Word) { regs[dst] = load(t, addr(regs).Ptr) }, nil

	case ir.OpStore:
		v, addr, vt := ops[0], ops[1], in.Operands[0].Type()
		return func(regs []ir.Word) { store(vt, v(regs), addr(regs).Ptr) }, nil

	case ir.OpCall:
		impl := in.Native.Impl
		if impl == nil {
			return nil, fmt.Errorf("native @%s has no implementation", in.Native.Name)
		}
		return func(regs []ir.Word) {
			args := make([]ir.Word, len(ops))
			for i, g := range ops {
				args[i] = g(regs)
			}
			w := impl(args)
			if dst >= 0 {
				regs[dst] = w
			}
		}, nil

	case ir.OpExtractValue:
		agg, idx := ops[0], in.Index
		return func(regs []ir.Word) { regs[dst] = extract(agg(regs), idx) }, nil

	case ir.OpInsertValue:
		agg, v, idx := ops[0], ops[1], in.Index
		return func(regs []ir.Word) { regs[dst] = insert(agg(regs), v(regs), idx) }, nil
	}
	return nil, fmt.Errorf("unsupported opcode %s", in.Op)
}
