// Package mem centralizes the unsafe pointer arithmetic used by tuples and
// execution engines.
//
// Every read and write goes through byte copies, so addresses computed from
// tuple offsets never need to be aligned for the value type. No other
// package in this module converts between unsafe.Pointer and typed pointers
// for tuple storage.
package mem
