// Package engine implements the fnjit evaluator.
//
// The evaluator turns functions in a library.Registry into callable code on
// demand and invokes them with loosely typed values:
//
//  1. Prepare resolves the function and walks its call dependencies,
//     callees first. Recipes that are called get a CompiledBody
//     (DeriveCompiledFromBuildIR); the function itself gets a tuple-call
//     body from its BuildIR or Compiled body.
//  2. Invoke decodes inputs with each parameter type's codec into a
//     Tuple, calls the tuple-call body and decodes the output Tuple.
//  3. With a store configured, each derived unit and each call is logged
//     with a seq from the logical Clock.
//
// Derivation of a given function is serialized by a per-function lock, so
// concurrent first calls compile once. Compiled bodies are immutable and
// run concurrently.
//
// Invariant panics raised by the core during derivation or a call are
// recovered at this boundary and returned as RuntimeError values with
// code INVARIANT_VIOLATION. Other panics propagate.
//
// Run and Submit provide a FIFO request loop on top of Invoke for callers
// that feed work from several goroutines. Replay re-runs logged calls and
// reports any output that changed.
package engine
