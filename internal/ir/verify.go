package ir

import (
	"errors"
	"fmt"
)

// VerifyError reports malformed IR.
type VerifyError struct {
	Module   string
	Function string
	Inst     int // index in the function body, -1 for function-level errors
	Message  string
}

func (e *VerifyError) Error() string {
	if e.Inst >= 0 {
		return fmt.Sprintf("verify %s/@%s: inst %d: %s", e.Module, e.Function, e.Inst, e.Message)
	}
	return fmt.Sprintf("verify %s/@%s: %s", e.Module, e.Function, e.Message)
}

// IsVerifyError reports whether err is (or wraps) a VerifyError.
func IsVerifyError(err error) bool {
	var ve *VerifyError
	return errors.As(err, &ve)
}

// Verify checks every function of m and returns the first problem found.
func Verify(m *Module) error {
	for _, fn := range m.Functions {
		if err := VerifyFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// VerifyFunction checks a single function:
//   - the body ends with exactly one ret matching the return type
//   - every operand is a constant, a parameter of fn or an earlier
//     instruction
//   - operand types match each instruction's rules
//   - called natives are declared in the module
func VerifyFunction(fn *Function) error {
	v := &verifier{fn: fn, defined: make(map[Value]bool)}
	for _, p := range fn.Params {
		v.defined[p] = true
	}

	if len(fn.Body) == 0 {
		return v.fail(-1, "empty body")
	}
	for i, in := range fn.Body {
		if err := v.inst(i, in); err != nil {
			return err
		}
		v.defined[in] = true
	}
	if fn.Body[len(fn.Body)-1].Op != OpRet {
		return v.fail(-1, "body does not end with ret")
	}
	return nil
}

type verifier struct {
	fn      *Function
	defined map[Value]bool
}

func (v *verifier) fail(i int, format string, args ...any) error {
	modName := ""
	if v.fn.module != nil {
		modName = v.fn.module.Name
	}
	return &VerifyError{Module: modName, Function: v.fn.Name, Inst: i, Message: fmt.Sprintf(format, args...)}
}

func (v *verifier) inst(i int, in *Inst) error {
	for j, op := range in.Operands {
		if op == nil {
			return v.fail(i, "%s: operand %d is nil", in.Op, j)
		}
		if _, isConst := op.(*Const); isConst {
			continue
		}
		if !v.defined[op] {
			return v.fail(i, "%s: operand %s used before definition", in.Op, op.Ref())
		}
	}

	want := func(n int) error {
		if len(in.Operands) != n {
			return v.fail(i, "%s: expected %d operands, got %d", in.Op, n, len(in.Operands))
		}
		return nil
	}

	switch in.Op {
	case OpAdd, OpSub, OpMul, OpDiv:
		if err := want(2); err != nil {
			return err
		}
		x, y := in.Operands[0].Type(), in.Operands[1].Type()
		if !x.IsNumeric() || !x.Equal(y) || !x.Equal(in.typ) {
			return v.fail(i, "%s: operand types %s and %s", in.Op, x, y)
		}

	case OpNeg:
		if err := want(1); err != nil {
			return err
		}
		if x := in.Operands[0].Type(); !x.IsNumeric() || !x.Equal(in.typ) {
			return v.fail(i, "neg: operand type %s", x)
		}

	case OpCmp:
		if err := want(2); err != nil {
			return err
		}
		x, y := in.Operands[0].Type(), in.Operands[1].Type()
		if !x.IsNumeric() || !x.Equal(y) {
			return v.fail(i, "cmp: operand types %s and %s", x, y)
		}

	case OpSelect:
		if err := want(3); err != nil {
			return err
		}
		c, x, y := in.Operands[0].Type(), in.Operands[1].Type(), in.Operands[2].Type()
		if c.kind != KindInt1 {
			return v.fail(i, "select: condition type %s", c)
		}
		if !x.Equal(y) {
			return v.fail(i, "select: arm types %s and %s", x, y)
		}

	case OpCast:
		if err := want(1); err != nil {
			return err
		}
		if x := in.Operands[0].Type(); !x.IsNumeric() || !in.typ.IsNumeric() {
			return v.fail(i, "cast: %s to %s", x, in.typ)
		}

	case OpGEP:
		if err := want(2); err != nil {
			return err
		}
		if in.Operands[0].Type().kind != KindPtr {
			return v.fail(i, "gep: base type %s", in.Operands[0].Type())
		}
		if !in.Operands[1].Type().IsInteger() {
			return v.fail(i, "gep: offset type %s", in.Operands[1].Type())
		}

	case OpLoad:
		if err := want(1); err != nil {
			return err
		}
		if in.Operands[0].Type().kind != KindPtr {
			return v.fail(i, "load: address type %s", in.Operands[0].Type())
		}
		if in.typ.kind == KindVoid {
			return v.fail(i, "load: void result")
		}

	case OpStore:
		if err := want(2); err != nil {
			return err
		}
		if in.Operands[0].Type().kind == KindVoid {
			return v.fail(i, "store: void value")
		}
		if in.Operands[1].Type().kind != KindPtr {
			return v.fail(i, "store: address type %s", in.Operands[1].Type())
		}

	case OpCall:
		nf := in.Native
		if nf == nil {
			return v.fail(i, "call: no callee")
		}
		if !v.declared(nf) {
			return v.fail(i, "call: @%s not declared in module", nf.Name)
		}
		if nf.Impl == nil {
			return v.fail(i, "call: @%s has no implementation", nf.Name)
		}
		if err := want(len(nf.Params)); err != nil {
			return err
		}
		for j, p := range nf.Params {
			if !p.Equal(in.Operands[j].Type()) {
				return v.fail(i, "call @%s: argument %d is %s, want %s", nf.Name, j, in.Operands[j].Type(), p)
			}
		}

	case OpExtractValue:
		if err := want(1); err != nil {
			return err
		}
		agg := in.Operands[0].Type()
		if agg.kind != KindStruct || in.Index < 0 || in.Index >= len(agg.fields) {
			return v.fail(i, "extractvalue: index %d of %s", in.Index, agg)
		}

	case OpInsertValue:
		if err := want(2); err != nil {
			return err
		}
		agg := in.Operands[0].Type()
		if agg.kind != KindStruct || in.Index < 0 || in.Index >= len(agg.fields) {
			return v.fail(i, "insertvalue: index %d of %s", in.Index, agg)
		}
		if !agg.fields[in.Index].Equal(in.Operands[1].Type()) {
			return v.fail(i, "insertvalue: field %d is %s, value is %s", in.Index, agg.fields[in.Index], in.Operands[1].Type())
		}

	case OpRet:
		if i != len(v.fn.Body)-1 {
			return v.fail(i, "ret before end of body")
		}
		if v.fn.Ret.kind == KindVoid {
			if err := want(0); err != nil {
				return err
			}
		} else {
			if err := want(1); err != nil {
				return err
			}
			if !in.Operands[0].Type().Equal(v.fn.Ret) {
				return v.fail(i, "ret: %s, function returns %s", in.Operands[0].Type(), v.fn.Ret)
			}
		}

	default:
		return v.fail(i, "unknown opcode %d", in.Op)
	}
	return nil
}

func (v *verifier) declared(nf *NativeFunc) bool {
	if v.fn.module == nil {
		return false
	}
	for _, d := range v.fn.module.Natives {
		if d == nf {
			return true
		}
	}
	return false
}
