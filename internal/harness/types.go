package harness

import (
	"sort"

	"github.com/roach88/fnjit/internal/store"
)

// Trace event types.
const (
	EventCompilation = "compilation"
	EventInvocation  = "invocation"
)

// TraceEvent is one logged record: a derived body or an invocation.
// Engine names and fingerprints are left out so that the same scenario
// produces the same trace on every engine.
type TraceEvent struct {
	Type        string            `json:"type"`
	ID          string            `json:"id"`
	Function    string            `json:"function"`
	Kind        string            `json:"kind,omitempty"`
	Compilation string            `json:"compilation,omitempty"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Error       string            `json:"error,omitempty"`
	Seq         int64             `json:"seq"`
}

// Result is the outcome of a scenario on one engine.
type Result struct {
	// Engine is the execution engine the scenario ran on.
	Engine string `json:"engine"`

	// Pass is true when every case and assertion held.
	Pass bool `json:"pass"`

	// Trace holds compilations and invocations ordered by seq.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// IR maps "function/kind" to the IR text of each derived unit.
	IR map[string]string `json:"-"`
}

// NewResult creates a new passing result for engine.
func NewResult(engine string) *Result {
	return &Result{
		Engine: engine,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		IR:     make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCompilationTrace adds a compilation record to the trace.
func (r *Result) AddCompilationTrace(c store.Compilation) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventCompilation,
		ID:       c.ID,
		Function: c.Function,
		Kind:     c.Kind,
		Seq:      c.Seq,
	})
}

// AddInvocationTrace adds an invocation record to the trace.
func (r *Result) AddInvocationTrace(inv store.Invocation) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:        EventInvocation,
		ID:          inv.ID,
		Function:    inv.Function,
		Compilation: inv.CompilationID,
		Inputs:      inv.Inputs,
		Outputs:     inv.Outputs,
		Error:       inv.Error,
		Seq:         inv.Seq,
	})
}

// sortTrace orders the trace by seq.
func (r *Result) sortTrace() {
	sort.SliceStable(r.Trace, func(i, j int) bool {
		return r.Trace[i].Seq < r.Trace[j].Seq
	})
}

// irKey is the key of a unit in Result.IR.
func irKey(function, kind string) string {
	return function + "/" + kind
}
