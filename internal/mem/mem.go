package mem

import "unsafe"

// Plain is the set of value types that may live in byte-addressed storage.
// None of them contain Go pointers, so the garbage collector never needs to
// scan tuple buffers.
type Plain interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 |
		~float32 | ~float64 | ~[2]float32 | ~[3]float32 | ~[4]float32
}

// Add returns p advanced by off bytes.
func Add(p unsafe.Pointer, off int) unsafe.Pointer {
	return unsafe.Add(p, off)
}

// Bytes views n bytes starting at p.
func Bytes(p unsafe.Pointer, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// Load reads a T from p.
func Load[T Plain](p unsafe.Pointer) T {
	var v T
	copy(Bytes(unsafe.Pointer(&v), int(unsafe.Sizeof(v))), Bytes(p, int(unsafe.Sizeof(v))))
	return v
}

// Store writes v to p.
func Store[T Plain](p unsafe.Pointer, v T) {
	copy(Bytes(p, int(unsafe.Sizeof(v))), Bytes(unsafe.Pointer(&v), int(unsafe.Sizeof(v))))
}

// Clear zeroes n bytes at p.
func Clear(p unsafe.Pointer, n int) {
	clear(Bytes(p, n))
}

// SizeOf reports the storage size of T.
func SizeOf[T Plain]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// SlicePtr returns the address of the first element of s, or nil when s is
// empty.
func SlicePtr[T any](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}
