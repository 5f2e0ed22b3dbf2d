package ir

import (
	"fmt"
	"strings"
)

// Print renders m in the IR text format:
//
//	; module add
//	declare {float} @native(float, float, ptr)
//
//	define void @add(ptr %in_data, ...) {
//	entry:
//	  %5 = gep ptr %in_offsets, i64 0
//	  ret void
//	}
func Print(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)
	for _, nf := range m.Natives {
		fmt.Fprintf(&sb, "declare %s\n", nf.Signature())
	}
	for _, fn := range m.Functions {
		sb.WriteString("\n")
		sb.WriteString(PrintFunction(fn))
	}
	return sb.String()
}

// PrintFunction renders a single function.
func PrintFunction(fn *Function) string {
	var sb strings.Builder
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = typed(p)
	}
	fmt.Fprintf(&sb, "define %s @%s(%s) {\nentry:\n", fn.Ret, fn.Name, strings.Join(params, ", "))
	for _, in := range fn.Body {
		sb.WriteString("  ")
		sb.WriteString(formatInst(in))
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

func typed(v Value) string {
	return v.Type().String() + " " + v.Ref()
}

func typedList(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = typed(v)
	}
	return strings.Join(parts, ", ")
}

func formatInst(in *Inst) string {
	var body string
	ops := in.Operands
	switch in.Op {
	case OpAdd, OpSub, OpMul, OpDiv:
		body = fmt.Sprintf("%s %s %s, %s", in.Op, in.typ, ops[0].Ref(), ops[1].Ref())
	case OpNeg:
		body = fmt.Sprintf("neg %s %s", in.typ, ops[0].Ref())
	case OpCmp:
		body = fmt.Sprintf("cmp %s %s %s, %s", in.Pred, ops[0].Type(), ops[0].Ref(), ops[1].Ref())
	case OpSelect:
		body = "select " + typedList(ops)
	case OpCast:
		body = fmt.Sprintf("cast %s to %s", typed(ops[0]), in.typ)
	case OpGEP:
		body = "gep " + typedList(ops)
	case OpLoad:
		body = fmt.Sprintf("load %s, %s", in.typ, typed(ops[0]))
	case OpStore:
		body = "store " + typedList(ops)
	case OpCall:
		name := "?"
		if in.Native != nil {
			name = in.Native.Name
		}
		body = fmt.Sprintf("call %s @%s(%s)", in.typ, name, typedList(ops))
	case OpExtractValue:
		body = fmt.Sprintf("extractvalue %s, %d", typedList(ops), in.Index)
	case OpInsertValue:
		body = fmt.Sprintf("insertvalue %s, %d", typedList(ops), in.Index)
	case OpRet:
		if len(ops) == 0 {
			body = "ret void"
		} else {
			body = "ret " + typed(ops[0])
		}
	default:
		body = fmt.Sprintf("%s %s", in.Op, typedList(ops))
	}
	if in.slot >= 0 {
		return in.Ref() + " = " + body
	}
	return body
}
