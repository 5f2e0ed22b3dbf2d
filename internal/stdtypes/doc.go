// Package stdtypes provides the built-in value types.
//
// Every type carries three extensions:
//
//   - tuple.TypeInfo: size and destructor for tuple layout
//   - codegen.TypeCodeGen: IR type plus load/store generation
//   - ValueCodec: conversion from decoded config values (YAML, CUE, HCL,
//     command-line strings) into tuple slots and IR constants
//
// Types are looked up by name through a Registry.
package stdtypes
