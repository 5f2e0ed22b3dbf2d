package tuple

import (
	"github.com/roach88/fnjit/internal/core"
)

// Meta is the layout shared by every Tuple built for the same type list:
// per-slot TypeInfo, byte offsets and total size.
type Meta struct {
	types   []*core.Type
	infos   []TypeInfo
	offsets []uint32
	size    int
	trivial bool
}

// NewMeta computes the layout for types. Every type must carry a TypeInfo
// extension.
func NewMeta(types []*core.Type) *Meta {
	m := &Meta{
		types:   append([]*core.Type(nil), types...),
		infos:   make([]TypeInfo, len(types)),
		offsets: make([]uint32, len(types)),
		trivial: true,
	}

	cursor := 0
	for i, typ := range types {
		info := core.MustExtension[TypeInfo](typ, core.ErrCodeMissingExtension)
		m.infos[i] = info
		m.offsets[i] = uint32(cursor)
		cursor += info.Size()
		if !info.Trivial() {
			m.trivial = false
		}
	}
	m.size = cursor
	return m
}

// Len returns the number of slots.
func (m *Meta) Len() int {
	return len(m.types)
}

// Types returns the slot types in order.
func (m *Meta) Types() []*core.Type {
	return m.types
}

// Offsets returns the byte offset of every slot.
func (m *Meta) Offsets() []uint32 {
	return m.offsets
}

// Size returns the total buffer size in bytes.
func (m *Meta) Size() int {
	return m.size
}

// SlotSize returns the size of slot i in bytes.
func (m *Meta) SlotSize(i int) int {
	return m.infos[i].Size()
}

// Trivial reports whether every slot type is trivially copyable.
func (m *Meta) Trivial() bool {
	return m.trivial
}

// Matches reports whether the layout was built for exactly these types.
func (m *Meta) Matches(types []*core.Type) bool {
	if len(types) != len(m.types) {
		return false
	}
	for i, typ := range types {
		if m.types[i] != typ {
			return false
		}
	}
	return true
}
