// Package core defines the typed function model: Types with open
// extensions, Signatures of named parameters, and Functions carrying a set
// of interchangeable Bodies.
//
// core imports nothing internal. Backends (tuple, codegen, tuplecall) attach
// their capabilities through Composition without core knowing about them.
//
// Broken invariants (attaching a capability twice, deriving a body whose
// source is missing, reading an uninitialized tuple slot) are programming
// errors. They panic with *InvariantError instead of returning an error.
package core
