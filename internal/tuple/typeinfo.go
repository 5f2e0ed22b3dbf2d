package tuple

import (
	"unsafe"

	"github.com/roach88/fnjit/internal/mem"
)

// TypeInfo is the Type extension describing how a value is laid out in a
// Tuple and how it is destroyed.
type TypeInfo interface {
	// Size is the number of bytes a value occupies in the buffer.
	Size() int
	// Trivial reports that values have no destructor and may be copied
	// bytewise.
	Trivial() bool
	// Destruct releases the value stored at p. The bytes are not read again
	// until a new value is written.
	Destruct(p unsafe.Pointer)
}

// PlainInfo is the TypeInfo of a trivially copyable value of type T.
type PlainInfo[T mem.Plain] struct{}

// Size implements TypeInfo.
func (PlainInfo[T]) Size() int { return mem.SizeOf[T]() }

// Trivial implements TypeInfo.
func (PlainInfo[T]) Trivial() bool { return true }

// Destruct implements TypeInfo.
func (PlainInfo[T]) Destruct(unsafe.Pointer) {}

// Plain returns the TypeInfo for T.
func Plain[T mem.Plain]() TypeInfo {
	return PlainInfo[T]{}
}
