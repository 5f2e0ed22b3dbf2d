package tuple

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/mem"
)

// Tuple holds one value per slot of its Meta.
//
// INVARIANTS:
//   - slot count and offsets never change
//   - an initialized slot holds a live value that is destructed before it
//     is overwritten or the Tuple is destroyed
//   - an uninitialized slot is never read
type Tuple struct {
	meta *Meta
	data []byte
	init []uint64
}

// New allocates a Tuple for meta. All slots start uninitialized.
func New(meta *Meta) *Tuple {
	return &Tuple{
		meta: meta,
		data: make([]byte, meta.size),
		init: make([]uint64, (meta.Len()+63)/64),
	}
}

// NewFromTypes allocates a Tuple with a fresh Meta for types.
func NewFromTypes(types []*core.Type) *Tuple {
	return New(NewMeta(types))
}

// Meta returns the tuple layout.
func (t *Tuple) Meta() *Meta {
	return t.meta
}

// Len returns the number of slots.
func (t *Tuple) Len() int {
	return t.meta.Len()
}

// Offsets returns the slot offsets.
func (t *Tuple) Offsets() []uint32 {
	return t.meta.offsets
}

func (t *Tuple) checkIndex(i int) {
	if i < 0 || i >= t.meta.Len() {
		core.Fail(core.ErrCodeArityMismatch, "tuple", "slot %d out of range [0,%d)", i, t.meta.Len())
	}
}

func (t *Tuple) slot(i int) unsafe.Pointer {
	return mem.Add(mem.SlicePtr(t.data), int(t.meta.offsets[i]))
}

// IsInitialized reports whether slot i holds a live value.
func (t *Tuple) IsInitialized(i int) bool {
	t.checkIndex(i)
	return t.init[i/64]&(1<<(uint(i)%64)) != 0
}

func (t *Tuple) setInitialized(i int, v bool) {
	if v {
		t.init[i/64] |= 1 << (uint(i) % 64)
	} else {
		t.init[i/64] &^= 1 << (uint(i) % 64)
	}
}

func (t *Tuple) initializedCount() int {
	n := 0
	for _, w := range t.init {
		n += bits.OnesCount64(w)
	}
	return n
}

// AllInitialized reports whether every slot holds a live value. A Tuple
// without slots is both all initialized and all uninitialized.
func (t *Tuple) AllInitialized() bool {
	return t.initializedCount() == t.meta.Len()
}

// AllUninitialized reports whether no slot holds a live value.
func (t *Tuple) AllUninitialized() bool {
	return t.initializedCount() == 0
}

// SetAllInitialized marks every slot initialized without touching storage.
// Used after the storage has been filled by relocation.
func (t *Tuple) SetAllInitialized() {
	for i := 0; i < t.meta.Len(); i++ {
		t.setInitialized(i, true)
	}
}

// SetAllUninitialized marks every slot uninitialized without running
// destructors. Used after ownership of the values has been relocated out.
func (t *Tuple) SetAllUninitialized() {
	clear(t.init)
}

// DestructAll destructs every initialized slot, zeroes its storage and
// marks all slots uninitialized.
func (t *Tuple) DestructAll() {
	for i := 0; i < t.meta.Len(); i++ {
		if t.IsInitialized(i) {
			p := t.slot(i)
			t.meta.infos[i].Destruct(p)
			mem.Clear(p, t.meta.SlotSize(i))
			t.setInitialized(i, false)
		}
	}
}

// Destroy releases all live values. The Tuple may be reused afterwards.
func (t *Tuple) Destroy() {
	t.DestructAll()
}

// DataPtr exposes the raw buffer for the tuple-call convention.
func (t *Tuple) DataPtr() unsafe.Pointer {
	return mem.SlicePtr(t.data)
}

// OffsetsPtr exposes the raw offset table for the tuple-call convention.
func (t *Tuple) OffsetsPtr() *uint32 {
	return (*uint32)(mem.SlicePtr(t.meta.offsets))
}

// CopyFrom copies every slot of src into t. Both tuples must share the same
// trivially copyable layout and src must be fully initialized.
func (t *Tuple) CopyFrom(src *Tuple) {
	core.Assert(t.meta.Matches(src.meta.types), core.ErrCodeArityMismatch, "tuple", "copy between different layouts")
	core.Assert(t.meta.trivial, core.ErrCodeTypeMismatch, "tuple", "copy of non-trivial layout")
	core.Assert(src.AllInitialized(), core.ErrCodeUninitializedRead, "tuple", "copy from partially initialized tuple")
	copy(t.data, src.data)
	t.SetAllInitialized()
}

// String describes the slot states, e.g. "tuple(float:init, int32:uninit)".
func (t *Tuple) String() string {
	s := "tuple("
	for i, typ := range t.meta.types {
		if i > 0 {
			s += ", "
		}
		state := "uninit"
		if t.IsInitialized(i) {
			state = "init"
		}
		s += fmt.Sprintf("%s:%s", typ.Name(), state)
	}
	return s + ")"
}

func (t *Tuple) checkSize(i, size int) {
	if got := t.meta.SlotSize(i); got != size {
		core.Fail(core.ErrCodeTypeMismatch, t.meta.types[i].Name(),
			"slot %d holds %d bytes, accessor uses %d", i, got, size)
	}
}

// Set stores v in slot i. An initialized slot is destructed first.
func Set[T mem.Plain](t *Tuple, i int, v T) {
	t.checkIndex(i)
	t.checkSize(i, mem.SizeOf[T]())
	if t.IsInitialized(i) {
		t.meta.infos[i].Destruct(t.slot(i))
	}
	mem.Store(t.slot(i), v)
	t.setInitialized(i, true)
}

// Get returns a copy of the value in slot i.
func Get[T mem.Plain](t *Tuple, i int) T {
	t.checkIndex(i)
	t.checkSize(i, mem.SizeOf[T]())
	if !t.IsInitialized(i) {
		core.Fail(core.ErrCodeUninitializedRead, t.meta.types[i].Name(), "slot %d is uninitialized", i)
	}
	return mem.Load[T](t.slot(i))
}
