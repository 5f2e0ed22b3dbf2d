package stdtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/tuple"
)

// ============================================================================
// Extensions
// ============================================================================

func TestBuiltinsCarryAllExtensions(t *testing.T) {
	for _, typ := range Builtins() {
		t.Run(typ.Name(), func(t *testing.T) {
			assert.True(t, core.HasExtension[tuple.TypeInfo](typ))
			assert.True(t, core.HasExtension[codegen.TypeCodeGen](typ))
			assert.True(t, core.HasExtension[ValueCodec](typ))
			assert.Equal(t, SizeOf(typ), IRType(typ).Size(), "slot size matches IR size")
		})
	}
}

func TestIRTypes(t *testing.T) {
	assert.Equal(t, ir.Float32, IRType(Float))
	assert.Equal(t, ir.Int32, IRType(Int32))
	assert.Equal(t, ir.Int64, IRType(Int64))
	assert.Equal(t, ir.Int1, IRType(Bool))
	assert.True(t, IRType(FVec3).Equal(ir.StructOf(ir.Float32, ir.Float32, ir.Float32)))

	assert.Nil(t, IRType(core.NewType("opaque")))
	assert.Zero(t, SizeOf(core.NewType("opaque")))
}

// ============================================================================
// Layout round-trip
// ============================================================================

func TestLayoutRoundTripEveryType(t *testing.T) {
	values := map[*core.Type]any{
		Float: float32(2.5),
		Int32: int32(-7),
		Int64: int64(1) << 40,
		Bool:  true,
		FVec3: Vec3{1, 2, 3},
	}
	types := Builtins()
	tup := tuple.NewFromTypes(types)

	for i, typ := range types {
		require.NoError(t, CodecOf(typ).Set(tup, i, values[typ]))
	}
	require.True(t, tup.AllInitialized())
	for i, typ := range types {
		assert.Equal(t, values[typ], CodecOf(typ).Get(tup, i), typ.Name())
	}
}

// ============================================================================
// Codecs
// ============================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		typ  *core.Type
		in   any
		want any
	}{
		{Float, 2.5, float32(2.5)},
		{Float, 3, float32(3)},
		{Float, " 1.25 ", float32(1.25)},
		{Int32, 42, int32(42)},
		{Int32, 42.0, int32(42)},
		{Int32, "-3", int32(-3)},
		{Int64, uint64(9), int64(9)},
		{Bool, true, true},
		{Bool, "false", false},
		{FVec3, []any{1, 2.5, "3"}, Vec3{1, 2.5, 3}},
		{FVec3, "(1, 0, -1)", Vec3{1, 0, -1}},
		{FVec3, []float64{4, 5, 6}, Vec3{4, 5, 6}},
	}
	for _, tt := range tests {
		got, err := CodecOf(tt.typ).Decode(tt.in)
		require.NoError(t, err, "%s <- %v", tt.typ, tt.in)
		assert.Equal(t, tt.want, got, "%s <- %v", tt.typ, tt.in)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		typ  *core.Type
		in   any
		want string
	}{
		{Float, "abc", "parse float"},
		{Float, true, "cannot use bool as float"},
		{Int32, 1.5, "not an integer"},
		{Int32, int64(1) << 40, "overflows int32"},
		{Bool, 1, "cannot use int as bool"},
		{FVec3, []any{1, 2}, "needs 3 components"},
		{FVec3, []any{1, "x", 3}, "component 1"},
	}
	for _, tt := range tests {
		_, err := CodecOf(tt.typ).Decode(tt.in)
		require.Error(t, err, "%s <- %v", tt.typ, tt.in)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestFormatRoundTrips(t *testing.T) {
	for _, tt := range []struct {
		typ *core.Type
		v   any
	}{
		{Float, float32(0.1)},
		{Int64, int64(-12)},
		{Bool, true},
		{FVec3, Vec3{0.5, -1, 3}},
	} {
		c := CodecOf(tt.typ)
		s := c.Format(tt.v)
		back, err := c.Decode(s)
		require.NoError(t, err, s)
		assert.Equal(t, tt.v, back)
	}
	assert.Equal(t, "0.5,-1,3", CodecOf(FVec3).Format(Vec3{0.5, -1, 3}))
}

func TestWord(t *testing.T) {
	w, err := CodecOf(Float).Word(5.5)
	require.NoError(t, err)
	assert.Equal(t, float32(5.5), w.Float32())

	w, err = CodecOf(FVec3).Word([]any{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, w.Fields, 3)
	assert.Equal(t, float32(3), w.Fields[2].Float32())

	_, err = CodecOf(Bool).Word("maybe")
	require.Error(t, err)
}

func TestCodecOfMissing(t *testing.T) {
	defer func() {
		r := recover()
		assert.True(t, core.IsInvariant(r, core.ErrCodeMissingExtension), "got %v", r)
	}()
	CodecOf(core.NewType("opaque"))
}

// ============================================================================
// Registry
// ============================================================================

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"bool", "float", "fvec3", "int32", "int64"}, r.Names())

	typ, ok := r.Lookup("int")
	require.True(t, ok)
	assert.Same(t, Int32, typ)

	typ, ok = r.Lookup("vec3")
	require.True(t, ok)
	assert.Same(t, FVec3, typ)

	_, ok = r.Lookup("string")
	assert.False(t, ok)

	_, err := r.Resolve("string")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: [bool float fvec3 int32 int64]")

	assert.Len(t, r.Types(), 5)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Float))
	err := r.Register(core.NewType("float"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}
