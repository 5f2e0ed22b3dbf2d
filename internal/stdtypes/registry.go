package stdtypes

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fnjit/internal/core"
)

type typeEntry struct {
	name string
	typ  *core.Type
}

// Registry indexes Types by name in sorted order. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[typeEntry]
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tree: btree.NewG[typeEntry](8, func(a, b typeEntry) bool {
			return a.name < b.name
		}),
		aliases: make(map[string]string),
	}
}

// Default returns a new registry holding the built-in types and the
// aliases int (int32), float32 (float) and vec3 (fvec3).
func Default() *Registry {
	r := NewRegistry()
	for _, t := range Builtins() {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	r.Alias("int", Int32.Name())
	r.Alias("float32", Float.Name())
	r.Alias("vec3", FVec3.Name())
	return r
}

// Register adds t under its name.
func (r *Registry) Register(t *core.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tree.Get(typeEntry{name: t.Name()}); ok {
		return fmt.Errorf("type %q already registered", t.Name())
	}
	r.tree.ReplaceOrInsert(typeEntry{name: t.Name(), typ: t})
	return nil
}

// Alias makes alias resolve to the type registered as target.
func (r *Registry) Alias(alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[norm.NFC.String(alias)] = norm.NFC.String(target)
}

// Lookup resolves a type name or alias.
func (r *Registry) Lookup(name string) (*core.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = norm.NFC.String(name)
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	e, ok := r.tree.Get(typeEntry{name: name})
	if !ok {
		return nil, false
	}
	return e.typ, true
}

// Resolve looks up name or returns an error listing the known types.
func (r *Registry) Resolve(name string) (*core.Type, error) {
	if t, ok := r.Lookup(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q (known: %v)", name, r.Names())
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, r.tree.Len())
	r.tree.Ascend(func(e typeEntry) bool {
		names = append(names, e.name)
		return true
	})
	return names
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []*core.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*core.Type, 0, r.tree.Len())
	r.tree.Ascend(func(e typeEntry) bool {
		types = append(types, e.typ)
		return true
	})
	return types
}
