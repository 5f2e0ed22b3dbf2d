package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/jit"
	"github.com/roach88/fnjit/internal/library"
	"github.com/roach88/fnjit/internal/stdtypes"
	"github.com/roach88/fnjit/internal/store"
	"github.com/roach88/fnjit/internal/tuple"
	"github.com/roach88/fnjit/internal/tuplecall"
)

// Engine is the evaluator. It derives bodies on demand for functions in a
// registry and invokes them with loosely typed values.
//
// Thread-safety model:
//   - Prepare, Invoke and Submit: safe from any goroutine
//   - derivation of one function is serialized across every evaluator
//     sharing the registry; other functions proceed
//   - Run: must be called from exactly one goroutine
type Engine struct {
	reg   *library.Registry
	jit   jit.Engine
	log   *slog.Logger
	store *store.Store
	clock Sequencer
	ids   IDGenerator

	engineName    string
	optimize      bool
	maintainStack bool

	// Bodies resolved by derivation. Calls go through these rather than
	// the Function's own body set, which derivation may be extending.
	mu      sync.Mutex
	bodies  map[string]tuplecall.Body // tuple-call body per function
	natives map[string]*ir.NativeFunc // compiled routine per callee
	units   map[string]*jit.Compiled  // tuple-call unit per function
	owned   []*jit.Compiled           // units derived by this engine
	logged  map[string]bool           // unit IDs written to the store
	closed  bool

	queue *requestQueue
}

// Option configures an Engine.
type Option func(*Engine)

// WithEngine selects the execution engine by name (see jit.Names).
// Default: jit.DefaultEngine.
func WithEngine(name string) Option {
	return func(e *Engine) {
		e.engineName = name
	}
}

// WithLogger sets the logger for derivations and failures.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithStore logs every compilation and invocation to s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithClock sets the logical clock. Use ResumeClock to continue a store.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator for invocation and unit IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMaintainStack makes derived code push and pop function names on the
// execution context's call stack.
func WithMaintainStack() Option {
	return func(e *Engine) {
		e.maintainStack = true
	}
}

// WithoutOptimizer disables IR optimization in the execution engine.
func WithoutOptimizer() Option {
	return func(e *Engine) {
		e.optimize = false
	}
}

// New creates an evaluator over reg.
func New(reg *library.Registry, opts ...Option) (*Engine, error) {
	e := &Engine{
		reg:        reg,
		log:        slog.Default(),
		clock:      NewClock(),
		ids:        UUIDv7Generator{},
		engineName: jit.DefaultEngine,
		optimize:   true,
		bodies:     make(map[string]tuplecall.Body),
		natives:    make(map[string]*ir.NativeFunc),
		units:      make(map[string]*jit.Compiled),
		logged:     make(map[string]bool),
		queue:      newRequestQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}

	jitOpts := []jit.Option{
		jit.WithLogger(e.log),
		jit.WithIDGenerator(e.ids.Generate),
	}
	if !e.optimize {
		jitOpts = append(jitOpts, jit.WithoutOptimizer())
	}
	eng, err := jit.New(e.engineName, jitOpts...)
	if err != nil {
		return nil, fmt.Errorf("create evaluator: %w", err)
	}
	e.jit = eng
	return e, nil
}

// Registry returns the function registry.
func (e *Engine) Registry() *library.Registry { return e.reg }

// EngineName returns the name of the execution engine in use.
func (e *Engine) EngineName() string { return e.jit.Name() }

// Clock returns the engine's logical clock.
func (e *Engine) Clock() Sequencer { return e.clock }

// Unit returns the compiled unit behind name's tuple-call body, once
// Prepare has run.
func (e *Engine) Unit(name string) (*jit.Compiled, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.units[name]
	return u, ok
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return &RuntimeError{Code: ErrCodeEngineClosed, Message: "evaluator is closed"}
	}
	return nil
}

// codegenOptions returns the options for deriving a body of name. The
// compiled routines of everything name calls are passed in explicitly.
func (e *Engine) codegenOptions(name string) []codegen.Option {
	deps := e.reg.Dependencies(name)

	e.mu.Lock()
	callees := make(map[string]*ir.NativeFunc, len(deps))
	for _, d := range deps {
		if nf, ok := e.natives[d.Name()]; ok {
			callees[d.Name()] = nf
		}
	}
	e.mu.Unlock()

	return []codegen.Option{codegen.WithSettings(codegen.BuildIRSettings{
		MaintainStack: e.maintainStack,
		Callees:       callees,
	})}
}

func (e *Engine) cachedBody(name string) (tuplecall.Body, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bodies[name]
	return b, ok
}

// Prepare derives everything name needs to be invoked: compiled bodies for
// the recipes it calls, callees first, then a tuple-call body for name
// itself. Each derivation happens at most once; concurrent callers wait.
func (e *Engine) Prepare(ctx context.Context, name string) (*core.Function, error) {
	fn, _, err := e.prepare(ctx, name)
	return fn, err
}

func (e *Engine) prepare(ctx context.Context, name string) (*core.Function, tuplecall.Body, error) {
	if err := e.checkOpen(); err != nil {
		return nil, nil, err
	}
	fn, err := e.reg.Resolve(name)
	if err != nil {
		return nil, nil, newUnknownFunctionError(name, err)
	}
	if body, ok := e.cachedBody(fn.Name()); ok {
		return fn, body, nil
	}

	for _, dep := range e.reg.Dependencies(name) {
		if err := e.derive(ctx, dep, codegen.KindCompiled); err != nil {
			return nil, nil, err
		}
	}
	if err := e.derive(ctx, fn, tuplecall.Kind); err != nil {
		return nil, nil, err
	}
	body, _ := e.cachedBody(fn.Name())
	return fn, body, nil
}

// derive attaches a body of the given kind to fn unless one exists, and
// caches the result on e. fn's bodies are only touched under its
// registry derivation lock.
func (e *Engine) derive(ctx context.Context, fn *core.Function, kind string) (err error) {
	mu := e.reg.DerivationLock(fn.Name())
	mu.Lock()
	defer mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = invariantError(fn.Name(), r)
			e.log.Error("derivation failed",
				"function", fn.Name(),
				"kind", kind,
				"error", err,
			)
		}
	}()

	var unit *jit.Compiled
	switch kind {
	case codegen.KindCompiled:
		if body, ok := core.BodyOf[*codegen.CompiledBody](fn); ok {
			// Host routine, or derived by another evaluator on the registry.
			e.mu.Lock()
			e.natives[fn.Name()] = body.Native
			e.mu.Unlock()
			return nil
		}
		if err := codegen.DeriveCompiledFromBuildIR(fn, e.jit, e.codegenOptions(fn.Name())...); err != nil {
			e.log.Error("derivation failed", "function", fn.Name(), "kind", kind, "error", err)
			return newDerivationError(fn.Name(), err)
		}
		body := core.MustBody[*codegen.CompiledBody](fn)
		e.mu.Lock()
		e.natives[fn.Name()] = body.Native
		e.mu.Unlock()
		unit = body.Unit()

	default:
		if body, ok := core.BodyOf[tuplecall.Body](fn); ok {
			// Derived earlier, possibly by another evaluator on the same registry.
			e.mu.Lock()
			e.bodies[fn.Name()] = body
			if inv, ok := body.(codegen.Invoker); ok {
				if _, seen := e.units[fn.Name()]; !seen {
					e.units[fn.Name()] = inv.Compiled()
				}
			}
			e.mu.Unlock()
			return nil
		}
		var derr error
		if core.HasBody[codegen.BuildIRBody](fn) {
			derr = codegen.DeriveTupleCallFromBuildIR(fn, e.jit, e.codegenOptions(fn.Name())...)
		} else {
			derr = codegen.DeriveTupleCallFromCompiled(fn, e.jit, e.codegenOptions(fn.Name())...)
		}
		if derr != nil {
			e.log.Error("derivation failed", "function", fn.Name(), "kind", kind, "error", derr)
			return newDerivationError(fn.Name(), derr)
		}
		body := core.MustBody[tuplecall.Body](fn)
		e.mu.Lock()
		e.bodies[fn.Name()] = body
		e.mu.Unlock()
		unit = body.(codegen.Invoker).Compiled()
	}

	e.recordCompilation(ctx, fn.Name(), kind, unit)
	return nil
}

func (e *Engine) recordCompilation(ctx context.Context, function, kind string, unit *jit.Compiled) {
	e.mu.Lock()
	e.owned = append(e.owned, unit)
	if kind == tuplecall.Kind {
		e.units[function] = unit
	}
	e.mu.Unlock()

	e.log.Info("derived body",
		"function", function,
		"kind", kind,
		"engine", unit.Engine(),
		"unit", unit.ID(),
	)
	if e.store == nil {
		return
	}

	err := e.store.WriteCompilation(ctx, store.Compilation{
		ID:          unit.ID(),
		Function:    function,
		Kind:        kind,
		Engine:      unit.Engine(),
		Fingerprint: unit.Fingerprint(),
		IR:          unit.IR(),
		Seq:         e.clock.Next(),
	})
	if err != nil {
		// The body is usable; only the log entry is lost.
		e.log.Warn("compilation not logged", "function", function, "unit", unit.ID(), "error", err)
		return
	}
	e.mu.Lock()
	e.logged[unit.ID()] = true
	e.mu.Unlock()
}

// compilationID returns the logged unit behind name's tuple-call body, or
// "" when it was not logged by this engine.
func (e *Engine) compilationID(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if u, ok := e.units[name]; ok && e.logged[u.ID()] {
		return u.ID()
	}
	return ""
}

// Result is the outcome of one invocation.
type Result struct {
	ID            string
	Function      string
	CompilationID string
	Seq           int64
	Outputs       map[string]any    // decoded Go values, e.g. float32
	Formatted     map[string]string // Outputs rendered by their codecs
}

// Invoke calls name with inputs keyed by parameter name. Values may be
// anything the parameter type's codec decodes: numbers, bools, strings or
// lists for vectors. Every input must be present and no others.
//
// When a store is configured the call is logged, failed or not.
func (e *Engine) Invoke(ctx context.Context, name string, inputs map[string]any) (Result, error) {
	res, formattedIn, err := e.evaluate(ctx, name, inputs)
	if res.Function == "" {
		// never reached a registered function; nothing to log
		return Result{}, err
	}
	e.logInvocation(ctx, res, formattedIn, err)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// evaluate runs one call without logging it. res.Function is set once the
// function has been resolved and prepared.
func (e *Engine) evaluate(ctx context.Context, name string, inputs map[string]any) (res Result, formattedIn map[string]string, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, nil, err
	}
	fn, body, err := e.prepare(ctx, name)
	if err != nil {
		return Result{}, nil, err
	}

	res = Result{
		ID:            e.ids.Generate(),
		Function:      fn.Name(),
		CompilationID: e.compilationID(fn.Name()),
		Seq:           e.clock.Next(),
	}

	in, formattedIn, err := decodeInputs(fn, inputs)
	if err != nil {
		return res, formattedIn, err
	}
	res.Outputs, res.Formatted, err = e.call(fn, body, in)
	return res, formattedIn, err
}

func decodeInputs(fn *core.Function, inputs map[string]any) (*tuple.Tuple, map[string]string, error) {
	sig := fn.Signature()
	formatted := make(map[string]string, len(inputs))

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		formatted[name] = fmt.Sprint(inputs[name])
		if sig.InputIndex(name) < 0 {
			return nil, formatted, newInvalidInputError(fn.Name(), "unknown input %q", name)
		}
	}

	in := tuple.NewFromTypes(sig.InputTypes())
	for i, p := range sig.Inputs() {
		raw, ok := inputs[p.Name()]
		if !ok {
			return nil, formatted, newInvalidInputError(fn.Name(), "missing input %q", p.Name())
		}
		codec := stdtypes.CodecOf(p.Type())
		v, err := codec.Decode(raw)
		if err != nil {
			return nil, formatted, newInvalidInputError(fn.Name(), "input %q: %v", p.Name(), err)
		}
		formatted[p.Name()] = codec.Format(v)
		if err := codec.Set(in, i, v); err != nil {
			return nil, formatted, newInvalidInputError(fn.Name(), "input %q: %v", p.Name(), err)
		}
	}
	return in, formatted, nil
}

// call runs body, fn's resolved tuple-call body. Invariant panics are
// returned as errors.
func (e *Engine) call(fn *core.Function, body tuplecall.Body, in *tuple.Tuple) (outputs map[string]any, formatted map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = invariantError(fn.Name(), r)
			e.log.Error("invocation failed", "function", fn.Name(), "error", err)
		}
	}()

	sig := fn.Signature()
	out := tuple.NewFromTypes(sig.OutputTypes())
	ectx := tuplecall.NewExecutionContext()
	body.Call(in, out, ectx)

	outputs = make(map[string]any, out.Len())
	formatted = make(map[string]string, out.Len())
	for i, p := range sig.Outputs() {
		codec := stdtypes.CodecOf(p.Type())
		v := codec.Get(out, i)
		outputs[p.Name()] = v
		formatted[p.Name()] = codec.Format(v)
	}
	out.DestructAll()

	e.log.Debug("invoked",
		"function", fn.Name(),
		"calls", ectx.Calls(),
	)
	return outputs, formatted, nil
}

func (e *Engine) logInvocation(ctx context.Context, res Result, inputs map[string]string, callErr error) {
	if e.store == nil {
		return
	}
	inv := store.Invocation{
		ID:            res.ID,
		Function:      res.Function,
		CompilationID: res.CompilationID,
		Inputs:        inputs,
		Outputs:       res.Formatted,
		Seq:           res.Seq,
	}
	if callErr != nil {
		inv.Outputs = nil
		inv.Error = callErr.Error()
	}
	if err := e.store.WriteInvocation(ctx, inv); err != nil {
		e.log.Warn("invocation not logged", "function", res.Function, "id", res.ID, "error", err)
	}
}

// Close stops the request loop and releases every compiled unit this
// engine derived. Functions in the registry keep their bodies; calling one
// whose unit was released fails with INVARIANT_VIOLATION.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	owned := e.owned
	e.owned = nil
	e.mu.Unlock()

	e.queue.Close()

	var errs []error
	for _, u := range owned {
		if err := u.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
