// Package harness runs function scenarios against every execution engine.
//
// A scenario loads function definitions, invokes them with fixed inputs
// and checks the outputs, the failures and the log the evaluator leaves
// behind. Each engine gets a fresh registry, an in-memory store, a
// deterministic clock and sequential IDs, so the trace of a scenario is
// identical across engines and across runs.
//
// # Scenario Format
//
//	name: blend
//	description: "clamped interpolation"
//	functions:
//	  - functions/math.cue
//	engines: [closure, interp]   # default: all engines
//	tolerance: 0.0001            # default: 1e-6
//	cases:
//	  - invoke: mix01
//	    inputs: { a: 0, b: 10, t: 0.25 }
//	    expect:
//	      outputs: { y: 2.5 }
//	  - invoke: mix01
//	    inputs: { a: 0 }
//	    expect:
//	      error: missing input
//	assertions:
//	  - type: trace_contains
//	    function: mix01
//	    inputs: { t: 0.25 }
//	  - type: compiled
//	    function: lerp
//	    kind: compiled
//
// Function paths are relative to the scenario file.
//
// # Assertion Types
//
//   - trace_contains: an invocation of function with matching inputs was logged
//   - trace_order: the functions were first invoked in the given order
//   - trace_count: function was invoked exactly count times
//   - compiled: a body of the given kind was derived for function
//
// # Golden Files
//
// RunWithGolden compares the trace of every engine against one golden file
// in testdata/golden. AssertGoldenIR does the same for the IR text of a
// derived unit. Regenerate with:
//
//	go test ./internal/harness -update
package harness
