package stdtypes

import (
	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/mem"
	"github.com/roach88/fnjit/internal/tuple"
)

// Vec3 is the Go representation of fvec3.
type Vec3 = [3]float32

var vec3IR = ir.StructOf(ir.Float32, ir.Float32, ir.Float32)

// Built-in types.
var (
	Float = newPlain("float", ir.Float32, floatCodec)
	Int32 = newPlain("int32", ir.Int32, int32Codec)
	Int64 = newPlain("int64", ir.Int64, int64Codec)
	Bool  = newPlain("bool", ir.Int1, boolCodec)
	FVec3 = newPlain("fvec3", vec3IR, vec3Codec)
)

// Builtins returns the built-in types in declaration order.
func Builtins() []*core.Type {
	return []*core.Type{Float, Int32, Int64, Bool, FVec3}
}

func newPlain[T mem.Plain](name string, irType *ir.Type, c codec[T]) *core.Type {
	t := core.NewType(name)
	core.Extend(t, tuple.Plain[T]())
	core.Extend(t, codegen.TrivialCodeGen(irType))
	core.Extend[ValueCodec](t, c)
	return t
}

// IRType returns the IR type of t, or nil if t has no code generator.
func IRType(t *core.Type) *ir.Type {
	cg, ok := core.ExtensionOf[codegen.TypeCodeGen](t)
	if !ok {
		return nil
	}
	return cg.IRType()
}

// SizeOf returns the tuple slot size of t, or 0 if t has no layout.
func SizeOf(t *core.Type) int {
	info, ok := core.ExtensionOf[tuple.TypeInfo](t)
	if !ok {
		return 0
	}
	return info.Size()
}
