// Package builtins maps well-known runtime values to stable names and back.
//
// The codec never serializes a registered value structurally: it writes
// the name and resolves it again on the decoding side. Both sides must
// populate their registries the same way, which Default guarantees for
// realms built from the same engine version.
package builtins

import (
	"fmt"

	"github.com/dop251/goja"
)

// Registry is a bidirectional name ↔ value table.
//
// A value may be reachable under several names (Number.parseInt and
// parseInt are the same function); NameOf returns the first name it was
// registered under, ValueOf resolves every name.
type Registry struct {
	objects map[*goja.Object]string
	symbols map[*goja.Symbol]string
	values  map[string]goja.Value
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		objects: make(map[*goja.Object]string),
		symbols: make(map[*goja.Symbol]string),
		values:  make(map[string]goja.Value),
	}
}

// Register adds name → v. Only objects and symbols carry identity, so any
// other value is rejected, as is a name that is already taken.
func (r *Registry) Register(name string, v goja.Value) error {
	if name == "" {
		return fmt.Errorf("builtin name must not be empty")
	}
	if _, exists := r.values[name]; exists {
		return fmt.Errorf("builtin %q already registered", name)
	}

	switch val := v.(type) {
	case *goja.Object:
		if _, named := r.objects[val]; !named {
			r.objects[val] = name
		}
	case *goja.Symbol:
		if _, named := r.symbols[val]; !named {
			r.symbols[val] = name
		}
	default:
		return fmt.Errorf("builtin %q: only objects and symbols can be registered", name)
	}

	r.values[name] = v
	r.order = append(r.order, name)
	return nil
}

// NameOf returns the name v was first registered under.
func (r *Registry) NameOf(v goja.Value) (string, bool) {
	switch val := v.(type) {
	case *goja.Object:
		name, ok := r.objects[val]
		return name, ok
	case *goja.Symbol:
		name, ok := r.symbols[val]
		return name, ok
	}
	return "", false
}

// ValueOf returns the value registered under name.
func (r *Registry) ValueOf(name string) (goja.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
