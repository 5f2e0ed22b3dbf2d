// Package ir provides the intermediate representation emitted by the
// tuple-call compiler and consumed by execution engines.
//
// This package contains the IR model only. Backends import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - One basic block per function. Control flow is expressed with select.
//   - Pointers are untyped; address arithmetic (gep) is in bytes.
//   - Values are in SSA form: every instruction result is defined once,
//     before any use.
//   - The IR is built with Builder and checked with Verify before any
//     engine compiles it. Malformed IR is reported as *VerifyError.
package ir
