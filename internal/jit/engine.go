package jit

import (
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
)

// Engine names.
const (
	EngineClosure = "closure"
	EngineInterp  = "interp"
)

// DefaultEngine is used when New is called with an empty name.
const DefaultEngine = EngineClosure

// Engine compiles an IR module into an invocable unit.
type Engine interface {
	// Name returns the engine name as accepted by New.
	Name() string

	// Compile verifies m and compiles entry, which must be one of m's
	// functions. Malformed IR is reported as a CompileError wrapping an
	// *ir.VerifyError.
	Compile(m *ir.Module, entry *ir.Function) (*Compiled, error)
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	optimize bool
	logger   *slog.Logger
	newID    func() string
}

// WithoutOptimizer disables constant folding and dead-code elimination in
// the closure engine. The interpreter never optimizes.
func WithoutOptimizer() Option {
	return func(c *config) {
		c.optimize = false
	}
}

// WithLogger sets the logger for compile events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithIDGenerator overrides how compiled unit IDs are produced.
// Tests use this for deterministic IDs.
func WithIDGenerator(gen func() string) Option {
	return func(c *config) {
		c.newID = gen
	}
}

func newUnitID() string {
	return uuid.Must(uuid.NewV7()).String()
}

type backend func(cfg *config, fn *ir.Function) (ir.NativeImpl, error)

var backends = map[string]backend{
	EngineClosure: compileClosure,
	EngineInterp:  compileInterp,
}

// Names returns the available engine names in sorted order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the engine registered under name. An empty name selects
// DefaultEngine.
func New(name string, opts ...Option) (Engine, error) {
	if name == "" {
		name = DefaultEngine
	}
	be, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, Names())
	}
	cfg := &config{
		optimize: true,
		logger:   slog.Default(),
		newID:    newUnitID,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &engine{name: name, cfg: cfg, backend: be}, nil
}

type engine struct {
	name    string
	cfg     *config
	backend backend
}

func (e *engine) Name() string { return e.name }

func (e *engine) Compile(m *ir.Module, entry *ir.Function) (*Compiled, error) {
	if entry == nil || m.Function(entry.Name) != entry {
		return nil, &CompileError{Engine: e.name, Module: m.Name, Message: "entry function is not part of the module"}
	}
	if err := ir.Verify(m); err != nil {
		return nil, &CompileError{Engine: e.name, Module: m.Name, Function: entry.Name, Message: "verification failed", Err: err}
	}

	text := ir.Print(m)
	fingerprint := ir.Fingerprint(m)

	if e.cfg.optimize && e.name == EngineClosure {
		stats := Optimize(entry)
		e.cfg.logger.Debug("optimized function",
			"module", m.Name,
			"function", entry.Name,
			"folded", stats.Folded,
			"removed", stats.Removed,
		)
	}

	impl, err := e.backend(e.cfg, entry)
	if err != nil {
		return nil, &CompileError{Engine: e.name, Module: m.Name, Function: entry.Name, Message: "code generation failed", Err: err}
	}

	c := &Compiled{
		id:          e.cfg.newID(),
		engine:      e.name,
		module:      m.Name,
		function:    entry.Name,
		fingerprint: fingerprint,
		text:        text,
		impl:        impl,
	}
	e.cfg.logger.Debug("compiled module",
		"engine", e.name,
		"module", m.Name,
		"unit", c.id,
		"fingerprint", fingerprint[:12],
	)
	return c, nil
}

// Compiled is an executable unit produced by an Engine.
type Compiled struct {
	id          string
	engine      string
	module      string
	function    string
	fingerprint string
	text        string
	impl        ir.NativeImpl
	closed      atomic.Bool
}

// ID returns the unit ID (a UUIDv7 unless overridden).
func (c *Compiled) ID() string { return c.id }

// Engine returns the name of the engine that produced the unit.
func (c *Compiled) Engine() string { return c.engine }

// Function returns the entry function name.
func (c *Compiled) Function() string { return c.function }

// Fingerprint returns the canonical fingerprint of the source module.
func (c *Compiled) Fingerprint() string { return c.fingerprint }

// IR returns the printed source module, as it was before optimization.
func (c *Compiled) IR() string { return c.text }

// Entry returns the callable entry point.
func (c *Compiled) Entry() ir.NativeImpl {
	return func(args []ir.Word) ir.Word {
		if c.closed.Load() {
			core.Fail(core.ErrCodeStateViolation, c.module, "call into closed compiled unit %s", c.id)
		}
		return c.impl(args)
	}
}

// Closed reports whether Close has been called.
func (c *Compiled) Closed() bool { return c.closed.Load() }

// Close releases the unit. It is safe to call more than once.
func (c *Compiled) Close() error {
	c.closed.Store(true)
	return nil
}
