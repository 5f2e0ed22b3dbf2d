package jit

import (
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
)

func compileInterp(_ *config, fn *ir.Function) (ir.NativeImpl, error) {
	body := fn.Body
	nslots := fn.NumSlots()
	nparams := len(fn.Params)
	name := fn.Name

	return func(args []ir.Word) ir.Word {
		core.Assert(len(args) == nparams, core.ErrCodeArityMismatch, name,
			"expected %d arguments, got %d", nparams, len(args))

		regs := make([]ir.Word, nslots)
		copy(regs, args)
		for _, in := range body {
			ops := make([]ir.Word, len(in.Operands))
			for i, op := range in.Operands {
				ops[i] = valueOf(regs, op)
			}
			if in.Op == ir.OpRet {
				if len(ops) == 0 {
					return ir.Word{}
				}
				return ops[0]
			}
			w := exec(in, ops)
			if in.Slot() >= 0 {
				regs[in.Slot()] = w
			}
		}
		return ir.Word{}
	}, nil
}

func valueOf(regs []ir.Word, v ir.Value) ir.Word {
	switch v := v.(type) {
	case *ir.Const:
		return v.Word
	case *ir.Param:
		return regs[v.Index]
	case *ir.Inst:
		return regs[v.Slot()]
	}
	return ir.Word{}
}

// exec runs one non-terminating instruction on already evaluated operands.
func exec(in *ir.Inst, ops []ir.Word) ir.Word {
	if w, ok := evalPure(in, ops); ok {
		return w
	}
	switch in.Op {
	case ir.OpGEP:
		return gep(ops[0], ops[1])
	case ir.OpLoad:
		return load(in.Type(), ops[0].Ptr)
	case ir.OpStore:
		store(in.Operands[0].Type(), ops[0], ops[1].Ptr)
	case ir.OpCall:
		return in.Native.Impl(ops)
	}
	return ir.Word{}
}
