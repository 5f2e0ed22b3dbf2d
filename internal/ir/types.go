package ir

import "strings"

// Kind enumerates the IR type kinds.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt1
	KindInt8
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindPtr
	KindStruct
)

// Type is an IR value type. Scalar types are singletons; struct types are
// compared structurally.
type Type struct {
	kind   Kind
	fields []*Type
}

// Predefined scalar types.
var (
	Void    = &Type{kind: KindVoid}
	Int1    = &Type{kind: KindInt1}
	Int8    = &Type{kind: KindInt8}
	Int32   = &Type{kind: KindInt32}
	Int64   = &Type{kind: KindInt64}
	Float32 = &Type{kind: KindFloat32}
	Float64 = &Type{kind: KindFloat64}
	Ptr     = &Type{kind: KindPtr}
)

// StructOf returns a packed struct type with the given field types.
func StructOf(fields ...*Type) *Type {
	return &Type{kind: KindStruct, fields: append([]*Type(nil), fields...)}
}

// Kind returns the type kind.
func (t *Type) Kind() Kind { return t.kind }

// Fields returns the field types of a struct type.
func (t *Type) Fields() []*Type { return t.fields }

// IsInteger reports whether t is i1, i8, i32 or i64.
func (t *Type) IsInteger() bool {
	switch t.kind {
	case KindInt1, KindInt8, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsFloat reports whether t is float or double.
func (t *Type) IsFloat() bool {
	return t.kind == KindFloat32 || t.kind == KindFloat64
}

// IsNumeric reports whether arithmetic is defined on t.
func (t *Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// Size returns the number of bytes a value of t occupies in memory. Struct
// fields are packed without padding.
func (t *Type) Size() int {
	switch t.kind {
	case KindInt1, KindInt8:
		return 1
	case KindInt32, KindFloat32:
		return 4
	case KindInt64, KindFloat64, KindPtr:
		return 8
	case KindStruct:
		n := 0
		for _, f := range t.fields {
			n += f.Size()
		}
		return n
	}
	return 0
}

// FieldOffset returns the byte offset of field i within a struct.
func (t *Type) FieldOffset(i int) int {
	off := 0
	for _, f := range t.fields[:i] {
		off += f.Size()
	}
	return off
}

// Equal reports whether t and o denote the same type.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.kind != o.kind {
		return false
	}
	if t.kind != KindStruct {
		return true
	}
	if len(t.fields) != len(o.fields) {
		return false
	}
	for i := range t.fields {
		if !t.fields[i].Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	switch t.kind {
	case KindVoid:
		return "void"
	case KindInt1:
		return "i1"
	case KindInt8:
		return "i8"
	case KindInt32:
		return "i32"
	case KindInt64:
		return "i64"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindPtr:
		return "ptr"
	case KindStruct:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}
