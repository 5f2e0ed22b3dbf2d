package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"
)

// Word is the runtime representation of an IR value inside an execution
// engine and across native calls.
//
//   - integers are stored sign-extended in Bits (i1 is 0 or 1)
//   - float uses the low 32 bits of Bits, double all 64
//   - ptr uses Ptr
//   - structs use Fields, one Word per field
type Word struct {
	Bits   uint64
	Ptr    unsafe.Pointer
	Fields []Word
}

// IntWord creates an integer Word.
func IntWord(v int64) Word { return Word{Bits: uint64(v)} }

// BoolWord creates an i1 Word.
func BoolWord(b bool) Word {
	if b {
		return Word{Bits: 1}
	}
	return Word{}
}

// Float32Word creates a float Word.
func Float32Word(f float32) Word { return Word{Bits: uint64(math.Float32bits(f))} }

// Float64Word creates a double Word.
func Float64Word(f float64) Word { return Word{Bits: math.Float64bits(f)} }

// PtrWord creates a ptr Word.
func PtrWord(p unsafe.Pointer) Word { return Word{Ptr: p} }

// StructWord creates a struct Word.
func StructWord(fields ...Word) Word { return Word{Fields: fields} }

// Int returns the integer value.
func (w Word) Int() int64 { return int64(w.Bits) }

// Bool returns the i1 value.
func (w Word) Bool() bool { return w.Bits&1 != 0 }

// Float32 returns the float value.
func (w Word) Float32() float32 { return math.Float32frombits(uint32(w.Bits)) }

// Float64 returns the double value.
func (w Word) Float64() float64 { return math.Float64frombits(w.Bits) }

// ZeroWord returns the zero value of t.
func ZeroWord(t *Type) Word {
	if t.kind != KindStruct {
		return Word{}
	}
	fields := make([]Word, len(t.fields))
	for i, f := range t.fields {
		fields[i] = ZeroWord(f)
	}
	return Word{Fields: fields}
}

// FormatWord renders w as an IR literal of type t.
func FormatWord(t *Type, w Word) string {
	switch t.kind {
	case KindInt1:
		return strconv.FormatBool(w.Bool())
	case KindInt8, KindInt32, KindInt64:
		return strconv.FormatInt(w.Int(), 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(w.Float32()), 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(w.Float64(), 'g', -1, 64)
	case KindPtr:
		if w.Ptr == nil {
			return "null"
		}
		return "ptr"
	case KindStruct:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.String() + " " + FormatWord(f, w.Fields[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "void"
}

// Value is an SSA value: a constant, a function parameter or an
// instruction result.
type Value interface {
	Type() *Type
	// Ref renders the value as an operand, e.g. "%3", "%in_data" or "2.5".
	Ref() string
}

// Const is a constant value.
type Const struct {
	typ  *Type
	Word Word
}

// Type implements Value.
func (c *Const) Type() *Type { return c.typ }

// Ref implements Value.
func (c *Const) Ref() string { return FormatWord(c.typ, c.Word) }

// NewConst creates a constant of type t.
func NewConst(t *Type, w Word) *Const {
	return &Const{typ: t, Word: w}
}

// Param is a function parameter.
type Param struct {
	typ   *Type
	name  string
	Index int
}

// Type implements Value.
func (p *Param) Type() *Type { return p.typ }

// Ref implements Value.
func (p *Param) Ref() string {
	if p.name != "" {
		return "%" + p.name
	}
	return "%arg" + strconv.Itoa(p.Index)
}

// Name returns the parameter name.
func (p *Param) Name() string { return p.name }

// SetName names the parameter.
func (p *Param) SetName(name string) { p.name = name }

// Opcode enumerates IR instructions.
type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpCmp
	OpSelect
	OpCast
	OpGEP
	OpLoad
	OpStore
	OpCall
	OpExtractValue
	OpInsertValue
	OpRet
)

var opNames = [...]string{
	OpAdd:          "add",
	OpSub:          "sub",
	OpMul:          "mul",
	OpDiv:          "div",
	OpNeg:          "neg",
	OpCmp:          "cmp",
	OpSelect:       "select",
	OpCast:         "cast",
	OpGEP:          "gep",
	OpLoad:         "load",
	OpStore:        "store",
	OpCall:         "call",
	OpExtractValue: "extractvalue",
	OpInsertValue:  "insertvalue",
	OpRet:          "ret",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// Pure reports whether the instruction has no side effects, so it may be
// folded or removed when unused.
func (op Opcode) Pure() bool {
	switch op {
	case OpStore, OpCall, OpRet, OpLoad:
		return false
	}
	return true
}

// Predicate is the comparison of a cmp instruction.
type Predicate uint8

const (
	PredEQ Predicate = iota
	PredNE
	PredLT
	PredLE
	PredGT
	PredGE
)

var predNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

func (p Predicate) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return "?"
}

// Inst is an instruction. Instructions producing a value have a slot
// number unique within their function; void instructions have slot -1.
type Inst struct {
	Op       Opcode
	Operands []Value
	Pred     Predicate   // cmp
	Index    int         // extractvalue, insertvalue
	Native   *NativeFunc // call
	typ      *Type
	slot     int
}

// Type implements Value.
func (in *Inst) Type() *Type { return in.typ }

// Ref implements Value.
func (in *Inst) Ref() string { return "%" + strconv.Itoa(in.slot) }

// Slot returns the register slot of the result, or -1.
func (in *Inst) Slot() int { return in.slot }

// NativeImpl is the Go entry point of a native routine. It receives one Word
// per parameter and returns the result Word (zero for void).
type NativeImpl func(args []Word) Word

// NativeFunc is an externally compiled routine callable from IR with its own
// argument and return layout.
type NativeFunc struct {
	Name   string
	Params []*Type
	Ret    *Type
	Impl   NativeImpl
}

// Signature renders the declaration, e.g. "{float} @sum(float, float, ptr)".
func (nf *NativeFunc) Signature() string {
	params := make([]string, len(nf.Params))
	for i, p := range nf.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s @%s(%s)", nf.Ret, nf.Name, strings.Join(params, ", "))
}
