// Package tuplecall defines the uniform calling contract every function
// implementation is invoked through.
//
// A tuple call moves values in and out of byte-addressed Tuples:
//
//	fn(inData, inOffsets, outData, outOffsets, ctx)
//
// Slot i of the input lives at inData + inOffsets[i]; outputs likewise.
// Inputs are relocated into the callee, which leaves the input Tuple
// uninitialized and the output Tuple initialized.
package tuplecall
