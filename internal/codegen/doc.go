// Package codegen compiles Function bodies down to tuple-call bodies.
//
// Three body kinds take part:
//
//   - BuildIRBody: a recipe that emits IR for the function given symbolic
//     inputs and produces symbolic outputs.
//   - *CompiledBody: an already compiled native routine taking the input
//     values plus the execution context and returning a struct of outputs.
//   - tuplecall.Body: the uniform, directly callable form.
//
// CompileTupleCall wraps either of the first two in a function with the
// tuple-call signature. Inputs are loaded by relocation through each
// Type's TypeCodeGen extension, outputs stored the same way. The
// Derive* functions run the compiler and attach the result to the
// Function exactly once.
package codegen
