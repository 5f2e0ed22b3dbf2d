package jit

import "github.com/roach88/fnjit/internal/ir"

// OptimizeStats counts what Optimize changed.
type OptimizeStats struct {
	Folded  int
	Removed int
}

// Optimize folds pure instructions whose operands are all constants, then
// removes pure instructions whose results are unused. It rewrites fn in
// place. Slot numbers are left untouched.
func Optimize(fn *ir.Function) OptimizeStats {
	var stats OptimizeStats

	for _, in := range fn.Body {
		if !in.Op.Pure() || in.Slot() < 0 {
			continue
		}
		args, ok := constOperands(in)
		if !ok {
			continue
		}
		w, ok := evalPure(in, args)
		if !ok {
			continue
		}
		fn.Replace(in, ir.NewConst(in.Type(), w))
		stats.Folded++
	}

	uses := make(map[*ir.Inst]int)
	for _, in := range fn.Body {
		for _, op := range in.Operands {
			if def, ok := op.(*ir.Inst); ok {
				uses[def]++
			}
		}
	}

	dead := make(map[*ir.Inst]bool)
	for i := len(fn.Body) - 1; i >= 0; i-- {
		in := fn.Body[i]
		if !in.Op.Pure() || uses[in] > 0 {
			continue
		}
		dead[in] = true
		for _, op := range in.Operands {
			if def, ok := op.(*ir.Inst); ok {
				uses[def]--
			}
		}
	}

	if len(dead) > 0 {
		kept := fn.Body[:0]
		for _, in := range fn.Body {
			if !dead[in] {
				kept = append(kept, in)
			}
		}
		fn.Body = kept
		stats.Removed = len(dead)
	}
	return stats
}

func constOperands(in *ir.Inst) ([]ir.Word, bool) {
	args := make([]ir.Word, len(in.Operands))
	for i, op := range in.Operands {
		c, ok := op.(*ir.Const)
		if !ok {
			return nil, false
		}
		args[i] = c.Word
	}
	return args, true
}
