package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/fnjit/internal/library"
	"github.com/roach88/fnjit/internal/stdtypes"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventInvocation:
			fmt.Fprintf(&buf, "  [%d] call %s %s\n", event.Seq, event.Function, formatValues(event.Inputs))
		case EventCompilation:
			fmt.Fprintf(&buf, "  [%d] derive %s (%s)\n", event.Seq, event.Function, event.Kind)
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to the registry the scenario
// ran against, used to format expected inputs like logged ones.
type AssertionContext struct {
	Registry *library.Registry
}

// formatInput renders an expected input value with the codec of the
// function's input parameter. Unknown names fall back to fmt.Sprint.
func (actx *AssertionContext) formatInput(function, input string, v any) string {
	if actx == nil || actx.Registry == nil {
		return fmt.Sprint(v)
	}
	fn, ok := actx.Registry.Lookup(function)
	if !ok {
		return fmt.Sprint(v)
	}
	sig := fn.Signature()
	idx := sig.InputIndex(input)
	if idx < 0 {
		return fmt.Sprint(v)
	}
	return stdtypes.CodecOf(sig.Inputs()[idx].Type()).Format(v)
}

// assertTraceContains checks if the trace contains an invocation of the
// function whose logged inputs include the expected ones.
func assertTraceContains(trace []TraceEvent, assertion Assertion, actx *AssertionContext) error {
	want := make(map[string]string, len(assertion.Inputs))
	for name, v := range assertion.Inputs {
		want[name] = actx.formatInput(assertion.Function, name, v)
	}

	for _, event := range trace {
		if event.Type == EventInvocation && event.Function == assertion.Function && matchInputs(event.Inputs, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("function %s with inputs %s", assertion.Function, formatValues(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that functions were first invoked in the given
// order. Other invocations may come in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		if _, seen := positions[event.Function]; !seen {
			positions[event.Function] = i + 1 // 1-indexed for readability
		}
	}

	for _, fn := range assertion.Functions {
		if positions[fn] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all functions invoked: %v", assertion.Functions),
				Actual:   fmt.Sprintf("missing function: %s", fn),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Functions); i++ {
		prev := assertion.Functions[i-1]
		curr := assertion.Functions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("functions in order: %v", assertion.Functions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the function was invoked exactly Count times,
// failed calls included.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Function == assertion.Function {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d invocations of %s", assertion.Count, assertion.Function),
			Actual:   fmt.Sprintf("%d invocations", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCompiled checks that a body of the given kind was derived for the
// function.
func assertCompiled(trace []TraceEvent, assertion Assertion) error {
	var kinds []string
	for _, event := range trace {
		if event.Type != EventCompilation || event.Function != assertion.Function {
			continue
		}
		if event.Kind == assertion.Kind {
			return nil
		}
		kinds = append(kinds, event.Kind)
	}

	actual := "no compilations"
	if len(kinds) > 0 {
		actual = "compiled as " + strings.Join(kinds, ", ")
	}
	return &AssertionError{
		Type:     AssertCompiled,
		Expected: fmt.Sprintf("%s compiled as %s", assertion.Function, assertion.Kind),
		Actual:   actual,
		Trace:    trace,
	}
}

// matchInputs reports whether actual contains every entry of expected.
func matchInputs(actual, expected map[string]string) bool {
	for name, want := range expected {
		got, ok := actual[name]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// formatValues renders a value map as {k=v, ...} with sorted keys.
func formatValues(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + values[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// EvaluateAssertions runs all assertions against the result's trace and
// returns the messages of those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion, actx)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertCompiled:
			err = assertCompiled(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
