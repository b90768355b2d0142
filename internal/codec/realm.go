package codec

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/roach88/capsule/internal/builtins"
	"github.com/roach88/capsule/internal/closure"
	"github.com/roach88/capsule/internal/engine"
	"github.com/roach88/capsule/internal/graph"
)

// thunkFactory builds placeholder callables. The placeholder forwards
// calls and construction to cell.impl, which the decoder fills once the
// real implementation has been synthesized. Placeholders for functions
// without a prototype (arrows, methods) are methods themselves, so they
// carry no prototype attribute and refuse construction the same way.
const thunkFactory = `(function (cell, constructible) {
	if (!constructible) {
		return ({ thunk() { return cell.impl.apply(this, arguments); } }).thunk;
	}
	return function () {
		if (new.target) {
			return Reflect.construct(cell.impl, arguments, new.target);
		}
		return cell.impl.apply(this, arguments);
	};
})`

// Realm is the context values are serialized from and reconstructed into:
// one engine, its builtin registry, and the table of placeholders the
// decoder has produced.
//
// A Realm is not safe for concurrent use.
type Realm struct {
	engine     *engine.Engine
	registry   *builtins.Registry
	closureKey string
	logger     *slog.Logger

	makeThunk goja.Callable

	// thunks remembers, for every placeholder the decoder created, the
	// source it was synthesized from and a live snapshot accessor over
	// its captured variables. The encoder consults it so decoded
	// functions serialize as their original source, not as the
	// placeholder's. Entries live as long as the realm; a Decode that
	// fails drops the ones it added.
	thunks map[*goja.Object]*thunk
}

type thunk struct {
	cell     *goja.Object
	source   string
	snapshot goja.Value

	// home is the home object of a shorthand member, and owned whether
	// it has been tied to the object the member was installed on.
	home  *goja.Object
	owned bool
}

// Option configures a Realm.
type Option func(*Realm)

// WithEngine uses e instead of a fresh engine.
func WithEngine(e *engine.Engine) Option {
	return func(r *Realm) {
		r.engine = e
	}
}

// WithRegistry uses reg instead of the default registry for the engine.
func WithRegistry(reg *builtins.Registry) Option {
	return func(r *Realm) {
		r.registry = reg
	}
}

// WithClosureKey sets the name of the closure-snapshot attribute.
// Default: closure.Key.
func WithClosureKey(key string) Option {
	return func(r *Realm) {
		r.closureKey = key
	}
}

// WithLogger sets the realm logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Realm) {
		r.logger = logger
	}
}

// NewRealm creates a Realm. Unless overridden by options it owns a fresh
// engine, a registry populated from that engine's globals, and installs
// the capture helper under the default closure key.
func NewRealm(opts ...Option) (*Realm, error) {
	r := &Realm{
		closureKey: closure.Key,
		thunks:     make(map[*goja.Object]*thunk),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if r.engine == nil {
		e, err := engine.New(engine.WithLogger(r.logger))
		if err != nil {
			return nil, err
		}
		r.engine = e
	}

	// The registry is populated before anything is installed into the
	// global scope, so helpers never become builtins.
	if r.registry == nil {
		reg, err := builtins.Default(r.engine)
		if err != nil {
			return nil, fmt.Errorf("populate builtins: %w", err)
		}
		r.registry = reg
	}

	if err := closure.Install(r.engine, r.closureKey); err != nil {
		return nil, fmt.Errorf("install %s helper: %w", closure.HelperName, err)
	}

	factory, err := r.engine.Run("thunk.js", thunkFactory)
	if err != nil {
		return nil, err
	}
	makeThunk, ok := goja.AssertFunction(factory)
	if !ok {
		return nil, fmt.Errorf("thunk factory is not callable")
	}
	r.makeThunk = makeThunk

	return r, nil
}

// Engine returns the realm's engine.
func (r *Realm) Engine() *engine.Engine { return r.engine }

// Runtime returns the realm's goja runtime.
func (r *Realm) Runtime() *goja.Runtime { return r.engine.Runtime() }

// Registry returns the realm's builtin registry.
func (r *Realm) Registry() *builtins.Registry { return r.registry }

// ClosureKey returns the closure-snapshot attribute name.
func (r *Realm) ClosureKey() string { return r.closureKey }

// Eval runs a script in the realm and returns its completion value.
func (r *Realm) Eval(name, src string) (goja.Value, error) {
	return r.engine.Run(name, src)
}

// Serialize encodes v into a fresh Graph.
func (r *Realm) Serialize(v goja.Value) (*graph.Graph, error) {
	return NewEncoder(r).Encode(v)
}

// Decode reconstructs the value rooted at g.Root.
func (r *Realm) Decode(g *graph.Graph) (goja.Value, error) {
	return NewDecoder(r).Decode(g)
}

// Marshal serializes v and renders the wire format.
func (r *Realm) Marshal(v goja.Value) ([]byte, error) {
	g, err := r.Serialize(v)
	if err != nil {
		return nil, err
	}
	return graph.Marshal(g)
}

// Unmarshal parses a wire payload and reconstructs its root value.
func (r *Realm) Unmarshal(data []byte) (goja.Value, error) {
	g, err := graph.Parse(data)
	if err != nil {
		return nil, err
	}
	return r.Decode(g)
}

// newThunk returns a fresh placeholder and its empty indirection cell.
func (r *Realm) newThunk(constructible bool) (*goja.Object, *goja.Object, error) {
	cell := r.Runtime().NewObject()
	v, err := r.makeThunk(goja.Undefined(), cell, r.Runtime().ToValue(constructible))
	if err != nil {
		return nil, nil, err
	}
	return v.(*goja.Object), cell, nil
}

// lookupThunk returns the decoder record of fn, if fn is a placeholder.
func (r *Realm) lookupThunk(fn *goja.Object) (*thunk, bool) {
	t, ok := r.thunks[fn]
	return t, ok
}
