package tuple

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/mem"
)

func plainType[T mem.Plain](name string) *core.Type {
	typ := core.NewType(name)
	core.Extend(typ, Plain[T]())
	return typ
}

// countingInfo stores an int32 and counts destructor calls.
type countingInfo struct{ destructed *int }

func (countingInfo) Size() int     { return 4 }
func (countingInfo) Trivial() bool { return false }
func (c countingInfo) Destruct(p unsafe.Pointer) {
	*c.destructed++
	mem.Clear(p, 4)
}

func requireInvariant(t *testing.T, code core.InvariantCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic with %s", code)
		assert.True(t, core.IsInvariant(r, code), "expected %s, got %v", code, r)
	}()
	fn()
}

var (
	floatT = plainType[float32]("float")
	intT   = plainType[int32]("int32")
	longT  = plainType[int64]("int64")
	boolT  = plainType[bool]("bool")
	vecT   = plainType[[3]float32]("fvec3")
)

// =============================================================================
// Meta / offsets
// =============================================================================

func TestMeta_OffsetMonotonicity(t *testing.T) {
	types := []*core.Type{floatT, boolT, longT, vecT, intT}
	meta := NewMeta(types)

	offsets := meta.Offsets()
	require.Len(t, offsets, len(types))
	assert.Equal(t, uint32(0), offsets[0])
	for i := 1; i < len(offsets); i++ {
		assert.Greater(t, offsets[i], offsets[i-1], "offset %d must increase", i)
	}

	last := len(types) - 1
	assert.Equal(t, int(offsets[last])+meta.SlotSize(last), meta.Size())
	assert.Equal(t, []uint32{0, 4, 5, 13, 25}, offsets)
	assert.Equal(t, 29, meta.Size())
	assert.True(t, meta.Trivial())
}

func TestMeta_MissingTypeInfoPanics(t *testing.T) {
	bare := core.NewType("opaque")
	requireInvariant(t, core.ErrCodeMissingExtension, func() {
		NewMeta([]*core.Type{floatT, bare})
	})
}

func TestMeta_Matches(t *testing.T) {
	meta := NewMeta([]*core.Type{floatT, intT})
	assert.True(t, meta.Matches([]*core.Type{floatT, intT}))
	assert.False(t, meta.Matches([]*core.Type{intT, floatT}))
	assert.False(t, meta.Matches([]*core.Type{floatT}))
}

func TestMeta_Empty(t *testing.T) {
	meta := NewMeta(nil)
	assert.Equal(t, 0, meta.Len())
	assert.Equal(t, 0, meta.Size())

	tup := New(meta)
	assert.True(t, tup.AllInitialized())
	assert.True(t, tup.AllUninitialized())
	assert.Nil(t, tup.DataPtr())
	assert.Nil(t, tup.OffsetsPtr())
}

// =============================================================================
// Layout round-trip
// =============================================================================

func TestTuple_RoundTripEveryType(t *testing.T) {
	tup := NewFromTypes([]*core.Type{floatT, intT, longT, boolT, vecT})

	Set(tup, 0, float32(2.5))
	Set(tup, 1, int32(-7))
	Set(tup, 2, int64(1)<<40)
	Set(tup, 3, true)
	Set(tup, 4, [3]float32{1, -2, 3.5})

	assert.Equal(t, float32(2.5), Get[float32](tup, 0))
	assert.Equal(t, int32(-7), Get[int32](tup, 1))
	assert.Equal(t, int64(1)<<40, Get[int64](tup, 2))
	assert.True(t, Get[bool](tup, 3))
	assert.Equal(t, [3]float32{1, -2, 3.5}, Get[[3]float32](tup, 4))
	assert.True(t, tup.AllInitialized())
}

func TestTuple_SetWrongSizePanics(t *testing.T) {
	tup := NewFromTypes([]*core.Type{floatT})
	requireInvariant(t, core.ErrCodeTypeMismatch, func() {
		Set(tup, 0, int64(1))
	})
	assert.True(t, tup.AllUninitialized())
}

func TestTuple_ReadUninitializedPanics(t *testing.T) {
	tup := NewFromTypes([]*core.Type{floatT, intT})
	Set(tup, 0, float32(1))

	requireInvariant(t, core.ErrCodeUninitializedRead, func() {
		Get[int32](tup, 1)
	})
}

func TestTuple_OutOfRangePanics(t *testing.T) {
	tup := NewFromTypes([]*core.Type{floatT})
	requireInvariant(t, core.ErrCodeArityMismatch, func() {
		Set(tup, 1, float32(1))
	})
}

// =============================================================================
// Initialization discipline
// =============================================================================

func TestTuple_InitializationDiscipline(t *testing.T) {
	tup := NewFromTypes([]*core.Type{floatT, intT, boolT})

	assert.True(t, tup.AllUninitialized())
	assert.False(t, tup.AllInitialized())

	Set(tup, 0, float32(1))
	Set(tup, 2, false)
	assert.False(t, tup.AllInitialized())
	assert.False(t, tup.AllUninitialized())

	Set(tup, 1, int32(3))
	for i := 0; i < tup.Len(); i++ {
		assert.True(t, tup.IsInitialized(i))
	}
	assert.True(t, tup.AllInitialized())

	tup.DestructAll()
	assert.True(t, tup.AllUninitialized())
}

func TestTuple_BulkTransitionsDoNotTouchStorage(t *testing.T) {
	tup := NewFromTypes([]*core.Type{intT})
	Set(tup, 0, int32(99))

	tup.SetAllUninitialized()
	assert.True(t, tup.AllUninitialized())

	tup.SetAllInitialized()
	assert.Equal(t, int32(99), Get[int32](tup, 0))
}

func TestTuple_ManySlotsBitset(t *testing.T) {
	types := make([]*core.Type, 130)
	for i := range types {
		types[i] = intT
	}
	tup := NewFromTypes(types)

	for i := range types {
		Set(tup, i, int32(i))
	}
	assert.True(t, tup.AllInitialized())
	assert.Equal(t, int32(129), Get[int32](tup, 129))

	tup.DestructAll()
	assert.True(t, tup.AllUninitialized())
}

func TestTuple_DestructorsRunOncePerLiveValue(t *testing.T) {
	destructed := 0
	counted := core.NewType("counted")
	core.Extend[TypeInfo](counted, countingInfo{destructed: &destructed})

	tup := NewFromTypes([]*core.Type{counted, floatT, counted})
	assert.False(t, tup.Meta().Trivial())

	Set(tup, 0, int32(1))
	Set(tup, 2, int32(2))

	// Overwriting an initialized slot destructs the old value.
	Set(tup, 0, int32(3))
	assert.Equal(t, 1, destructed)

	tup.DestructAll()
	assert.Equal(t, 3, destructed)
	assert.True(t, tup.AllUninitialized())
	assert.Equal(t, make([]byte, tup.Meta().Size()),
		mem.Bytes(tup.DataPtr(), tup.Meta().Size()), "destructed slots are zeroed")

	// Nothing is live anymore.
	tup.Destroy()
	assert.Equal(t, 3, destructed)
}

func TestTuple_CopyFrom(t *testing.T) {
	meta := NewMeta([]*core.Type{floatT, intT})
	src := New(meta)
	Set(src, 0, float32(4))
	Set(src, 1, int32(5))

	dst := New(meta)
	dst.CopyFrom(src)
	assert.Equal(t, float32(4), Get[float32](dst, 0))
	assert.Equal(t, int32(5), Get[int32](dst, 1))
}

func TestTuple_RawPointersAddressSlots(t *testing.T) {
	tup := NewFromTypes([]*core.Type{boolT, floatT})
	Set(tup, 1, float32(7.25))

	offsets := unsafe.Slice(tup.OffsetsPtr(), tup.Len())
	p := mem.Add(tup.DataPtr(), int(offsets[1]))
	assert.Equal(t, float32(7.25), mem.Load[float32](p))
}

func TestTuple_String(t *testing.T) {
	tup := NewFromTypes([]*core.Type{floatT, intT})
	Set(tup, 1, int32(1))
	assert.Equal(t, "tuple(float:uninit, int32:init)", tup.String())
}
