package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/roach88/fnjit/internal/compiler"
	"github.com/roach88/fnjit/internal/engine"
	"github.com/roach88/fnjit/internal/library"
	"github.com/roach88/fnjit/internal/stdtypes"
	"github.com/roach88/fnjit/internal/store"
	"github.com/roach88/fnjit/internal/testutil"
)

// Harness runs a scenario on one execution engine.
type Harness struct {
	reg    *library.Registry
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	ids    *testutil.SequentialIDs
	logger *slog.Logger
}

// Run executes scenario on each of its engines and returns one result
// per engine, in engine order. An error means the scenario could not be
// run at all; failed cases and assertions are reported in the results.
func Run(scenario *Scenario) ([]*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) ([]*Result, error) {
	defs, err := loadFunctions(scenario.Functions)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(scenario.engines()))
	for _, name := range scenario.engines() {
		result, err := runEngine(ctx, scenario, defs, name)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// Passed reports whether every result passed.
func Passed(results []*Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func loadFunctions(paths []string) ([]compiler.FunctionDef, error) {
	var defs []compiler.FunctionDef
	for _, p := range paths {
		loaded, err := compiler.LoadPath(p)
		if err != nil {
			return nil, fmt.Errorf("load functions: %w", err)
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

func runEngine(ctx context.Context, scenario *Scenario, defs []compiler.FunctionDef, engineName string) (*Result, error) {
	h, err := newHarness(defs, engineName)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	result := NewResult(engineName)
	if err := h.executeCases(ctx, scenario.Cases, scenario.tolerance(), result); err != nil {
		return nil, fmt.Errorf("failed to execute cases: %w", err)
	}
	if err := h.collectTrace(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to collect trace: %w", err)
	}

	actx := &AssertionContext{Registry: h.reg}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// newHarness builds an isolated registry, store and evaluator.
func newHarness(defs []compiler.FunctionDef, engineName string) (*Harness, error) {
	reg := library.NewRegistry(stdtypes.Default())
	if err := library.RegisterHost(reg); err != nil {
		return nil, fmt.Errorf("register host functions: %w", err)
	}
	if err := reg.AddAll(defs); err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	h := &Harness{
		reg:    reg,
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		ids:    testutil.NewSequentialIDs("id"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.engine, err = engine.New(reg,
		engine.WithEngine(engineName),
		engine.WithStore(st),
		engine.WithClock(h.clock),
		engine.WithIDGenerator(h.ids),
		engine.WithLogger(h.logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}
	return h, nil
}

// Close releases the evaluator and the store.
func (h *Harness) Close() error {
	engErr := h.engine.Close()
	if err := h.store.Close(); err != nil {
		return err
	}
	return engErr
}

// executeCases invokes each case in order and checks its expectation.
// Mismatches are recorded on result; the returned error is reserved for
// a cancelled context.
func (h *Harness) executeCases(ctx context.Context, cases []Case, tol float64, result *Result) error {
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := h.engine.Invoke(ctx, c.Invoke, c.Inputs)
		if c.Expect != nil && c.Expect.Error != "" {
			switch {
			case err == nil:
				result.AddError(fmt.Sprintf("cases[%d] %s: expected error containing %q, got outputs %v",
					i, c.Invoke, c.Expect.Error, res.Formatted))
			case !strings.Contains(err.Error(), c.Expect.Error):
				result.AddError(fmt.Sprintf("cases[%d] %s: expected error containing %q, got %q",
					i, c.Invoke, c.Expect.Error, err.Error()))
			}
			continue
		}
		if err != nil {
			result.AddError(fmt.Sprintf("cases[%d] %s: unexpected error: %v", i, c.Invoke, err))
			continue
		}
		if c.Expect == nil {
			continue
		}
		for _, msg := range h.compareOutputs(c.Invoke, c.Expect.Outputs, res.Outputs, tol) {
			result.AddError(fmt.Sprintf("cases[%d] %s: %s", i, c.Invoke, msg))
		}
	}
	return nil
}

// compareOutputs decodes each expected value with its output's codec and
// compares it against the actual value. Only listed outputs are checked.
func (h *Harness) compareOutputs(function string, want map[string]any, got map[string]any, tol float64) []string {
	fn, ok := h.reg.Lookup(function)
	if !ok {
		return []string{fmt.Sprintf("unknown function %q", function)}
	}
	sig := fn.Signature()

	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var msgs []string
	for _, name := range names {
		idx := sig.OutputIndex(name)
		if idx < 0 {
			msgs = append(msgs, fmt.Sprintf("unknown output %q", name))
			continue
		}
		codec := stdtypes.CodecOf(sig.Outputs()[idx].Type())
		expected, err := codec.Decode(want[name])
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("output %q: bad expected value: %v", name, err))
			continue
		}
		if !valuesClose(expected, got[name], tol) {
			msgs = append(msgs, fmt.Sprintf("output %q: expected %s, got %s",
				name, codec.Format(expected), codec.Format(got[name])))
		}
	}
	return msgs
}

// valuesClose compares two decoded values; floats and vector components
// may differ by tol.
func valuesClose(want, got any, tol float64) bool {
	switch w := want.(type) {
	case float32:
		g, ok := got.(float32)
		return ok && floatClose(w, g, tol)
	case stdtypes.Vec3:
		g, ok := got.(stdtypes.Vec3)
		if !ok {
			return false
		}
		for i := range w {
			if !floatClose(w[i], g[i], tol) {
				return false
			}
		}
		return true
	default:
		return want == got
	}
}

func floatClose(a, b float32, tol float64) bool {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.IsNaN(float64(a)) && math.IsNaN(float64(b))
	}
	return math.Abs(float64(a)-float64(b)) <= tol
}

// collectTrace reads the evaluator's log back from the store, merging
// compilations and invocations by seq.
func (h *Harness) collectTrace(ctx context.Context, result *Result) error {
	comps, err := h.store.ListCompilations(ctx, "")
	if err != nil {
		return err
	}
	for _, c := range comps {
		full, err := h.store.ReadCompilation(ctx, c.ID)
		if err != nil {
			return err
		}
		result.AddCompilationTrace(full)
		result.IR[irKey(full.Function, full.Kind)] = full.IR
	}

	invs, err := h.store.ListInvocations(ctx, "", 0)
	if err != nil {
		return err
	}
	for _, inv := range invs {
		result.AddInvocationTrace(inv)
	}

	result.sortTrace()
	return nil
}
