package library

import (
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/compiler"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/tuplecall"
)

type entry struct {
	name   string
	fn     *core.Function
	recipe *Recipe // nil for host functions
}

// Registry holds the functions available for invocation and for call
// steps, indexed by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tree  *btree.BTreeG[entry]
	types compiler.TypeLookup

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewRegistry creates an empty registry resolving type names with types.
func NewRegistry(types compiler.TypeLookup) *Registry {
	return &Registry{
		tree: btree.NewG[entry](8, func(a, b entry) bool {
			return a.name < b.name
		}),
		types: types,
		locks: make(map[string]*sync.Mutex),
	}
}

// DerivationLock returns the mutex that serializes attaching bodies to the
// named function. Every evaluator sharing the registry takes it before
// reading or extending the function's bodies.
func (r *Registry) DerivationLock(name string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	mu, ok := r.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[name] = mu
	}
	return mu
}

// Types returns the type lookup used for definitions.
func (r *Registry) Types() compiler.TypeLookup { return r.types }

// AddFunction registers a function built in Go, typically one with a
// CompiledBody wrapping a host routine.
func (r *Registry) AddFunction(fn *core.Function) error {
	return r.insert(entry{name: fn.Name(), fn: fn})
}

// Add validates def, builds its recipe and registers the resulting
// function. Callees must already be registered.
func (r *Registry) Add(def compiler.FunctionDef) (*core.Function, error) {
	if errs := compiler.Validate(&def, r.types); len(errs) > 0 {
		return nil, compiler.ValidationErrors(errs)
	}
	recipe, err := NewRecipe(def, r.types, r.Lookup)
	if err != nil {
		return nil, err
	}

	fn := core.NewFunction(recipe.Signature(), def.Name)
	codegen.AddBuildIRBody(fn, recipe)
	if err := r.insert(entry{name: def.Name, fn: fn, recipe: recipe}); err != nil {
		return nil, err
	}
	return fn, nil
}

// AddAll registers a set of definitions that may call each other. They are
// validated together, checked for call cycles and added callees first.
// On error nothing from defs is registered.
func (r *Registry) AddAll(defs []compiler.FunctionDef) error {
	if err := compiler.ValidateAll(defs, r.types); err != nil {
		return err
	}
	order, err := compiler.CallOrder(defs)
	if err != nil {
		return err
	}

	byName := make(map[string]compiler.FunctionDef, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	var added []string
	for _, name := range order {
		if _, err := r.Add(byName[name]); err != nil {
			r.remove(added...)
			return err
		}
		added = append(added, name)
	}
	return nil
}

func (r *Registry) insert(e entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tree.Get(entry{name: e.name}); ok {
		return fmt.Errorf("function %q already registered", e.name)
	}
	r.tree.ReplaceOrInsert(e)
	return nil
}

func (r *Registry) remove(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.tree.Delete(entry{name: name})
	}
}

// Lookup returns the named function.
func (r *Registry) Lookup(name string) (*core.Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tree.Get(entry{name: name})
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Resolve looks up name or returns an error listing the known functions.
func (r *Registry) Resolve(name string) (*core.Function, error) {
	if fn, ok := r.Lookup(name); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown function %q (known: %v)", name, r.Names())
}

// Recipe returns the recipe of a function loaded from a definition.
func (r *Registry) Recipe(name string) (*Recipe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tree.Get(entry{name: name})
	if !ok || e.recipe == nil {
		return nil, false
	}
	return e.recipe, true
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, r.tree.Len())
	r.tree.Ascend(func(e entry) bool {
		names = append(names, e.name)
		return true
	})
	return names
}

// Functions returns the registered functions sorted by name.
func (r *Registry) Functions() []*core.Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fns := make([]*core.Function, 0, r.tree.Len())
	r.tree.Ascend(func(e entry) bool {
		fns = append(fns, e.fn)
		return true
	})
	return fns
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}

// Dependencies returns the functions name calls, directly or transitively,
// ordered so that every function comes after its own callees. name itself
// is not included.
func (r *Registry) Dependencies(name string) []*core.Function {
	var order []*core.Function
	seen := map[string]bool{name: true}

	var visit func(string)
	visit = func(n string) {
		recipe, ok := r.Recipe(n)
		if !ok {
			return
		}
		for _, s := range recipe.steps {
			if s.callee == nil || seen[s.callee.Name()] {
				continue
			}
			seen[s.callee.Name()] = true
			visit(s.callee.Name())
			order = append(order, s.callee)
		}
	}
	visit(name)
	return order
}

// MostConcrete returns the kind of fn's most directly callable body:
// tuple_call, then compiled, then build_ir. It returns "" when fn has none
// of these.
func MostConcrete(fn *core.Function) string {
	switch {
	case core.HasBody[tuplecall.Body](fn):
		return tuplecall.Kind
	case core.HasBody[*codegen.CompiledBody](fn):
		return codegen.KindCompiled
	case core.HasBody[codegen.BuildIRBody](fn):
		return codegen.KindBuildIR
	}
	return ""
}
