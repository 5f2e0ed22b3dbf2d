package codegen

import (
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
)

// TypeCodeGen is the Type extension describing how values of the type are
// moved between tuple memory and IR values.
type TypeCodeGen interface {
	// IRType is the IR type of a loaded value.
	IRType() *ir.Type

	// BuildLoadCopy loads a value from addr. The source stays owned by the
	// tuple.
	BuildLoadCopy(b *ir.Builder, addr ir.Value) ir.Value

	// BuildLoadRelocate loads a value from addr and takes ownership of it.
	// The caller must not destruct the source slot afterwards.
	BuildLoadRelocate(b *ir.Builder, addr ir.Value) ir.Value

	// BuildStoreRelocate moves v into the uninitialized slot at addr.
	BuildStoreRelocate(b *ir.Builder, v, addr ir.Value)
}

// Trivial is the TypeCodeGen of types without ownership: copy and
// relocation are both a plain load.
type Trivial struct {
	Type *ir.Type
}

// TrivialCodeGen returns the TypeCodeGen for a plain value of IR type t.
func TrivialCodeGen(t *ir.Type) TypeCodeGen {
	return Trivial{Type: t}
}

// IRType implements TypeCodeGen.
func (c Trivial) IRType() *ir.Type { return c.Type }

// BuildLoadCopy implements TypeCodeGen.
func (c Trivial) BuildLoadCopy(b *ir.Builder, addr ir.Value) ir.Value {
	return b.Load(c.Type, addr)
}

// BuildLoadRelocate implements TypeCodeGen.
func (c Trivial) BuildLoadRelocate(b *ir.Builder, addr ir.Value) ir.Value {
	return b.Load(c.Type, addr)
}

// BuildStoreRelocate implements TypeCodeGen.
func (c Trivial) BuildStoreRelocate(b *ir.Builder, v, addr ir.Value) {
	b.Store(v, addr)
}

// codeGenOf returns the TypeCodeGen of t or panics with MISSING_CODEGEN.
func codeGenOf(t *core.Type) TypeCodeGen {
	return core.MustExtension[TypeCodeGen](t, core.ErrCodeMissingCodeGen)
}

// codeGensOf resolves the code generators of every type, failing on the
// first type without one.
func codeGensOf(types []*core.Type) []TypeCodeGen {
	cgs := make([]TypeCodeGen, len(types))
	for i, t := range types {
		cgs[i] = codeGenOf(t)
	}
	return cgs
}

// irTypes projects the IR type of each code generator.
func irTypes(cgs []TypeCodeGen) []*ir.Type {
	types := make([]*ir.Type, len(cgs))
	for i, cg := range cgs {
		types[i] = cg.IRType()
	}
	return types
}
