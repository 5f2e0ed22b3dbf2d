// Package tuple implements the per-call heterogeneous value container used
// by the tuple-call convention.
//
// A Tuple stores one value per parameter in a contiguous byte buffer. A
// shared offset table (Meta) gives each slot's byte offset, and a bitset
// tracks which slots hold live values. Offsets are the running sum of each
// type's size in parameter order. There is no padding.
//
// Tuples are owned by a single call frame and must not be shared between
// goroutines.
package tuple
