// Package jit is the execution engine behind the tuple-call compiler.
//
// An Engine turns a verified ir.Module plus an entry function into a
// Compiled unit whose Entry is an ordinary Go function taking one ir.Word
// per parameter. Two engines are provided:
//
//   - "closure" (default): folds constants, removes dead pure
//     instructions, then compiles every instruction into a Go closure
//     with operands resolved ahead of time.
//   - "interp": walks the instruction list on every call. No
//     optimization; useful as a reference when debugging generated IR.
//
// Both engines share one definition of instruction semantics (eval.go),
// so a module produces the same results on either.
//
// A Compiled unit owns its code. Close is idempotent; calling Entry after
// Close panics with a STATE_VIOLATION invariant error.
package jit
