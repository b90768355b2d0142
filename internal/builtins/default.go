package builtins

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/roach88/capsule/internal/engine"
)

// Global functions registered under their own name.
var globalFunctions = []string{
	"parseInt", "parseFloat", "isNaN", "isFinite",
	"encodeURI", "encodeURIComponent", "decodeURI", "decodeURIComponent",
	"escape", "unescape", "eval",
}

// Namespace objects: registered with their members, no prototype walk.
var namespaces = []string{"Math", "JSON", "Reflect"}

// Constructors: registered with their static members, their prototype and
// the prototype's members. Names missing from the runtime are skipped.
var constructors = []string{
	"Object", "Function", "Array", "String", "Number", "Boolean", "Symbol", "BigInt",
	"Date", "RegExp",
	"Error", "EvalError", "RangeError", "ReferenceError", "SyntaxError", "TypeError", "URIError", "AggregateError",
	"Map", "Set", "WeakMap", "WeakSet", "WeakRef", "Promise", "Proxy",
	"ArrayBuffer", "DataView",
	"Int8Array", "Uint8Array", "Uint8ClampedArray", "Int16Array", "Uint16Array",
	"Int32Array", "Uint32Array", "Float32Array", "Float64Array", "BigInt64Array", "BigUint64Array",
}

// Intrinsics with no global binding, reached through expressions.
var hidden = []struct {
	name string
	expr string
}{
	{"TypedArray", "Object.getPrototypeOf(Int8Array)"},
	{"GeneratorFunction", "Object.getPrototypeOf(function* () {}).constructor"},
	{"AsyncFunction", "Object.getPrototypeOf(async function () {}).constructor"},
	{"Generator", "Object.getPrototypeOf(function* () {}).prototype"},
	{"IteratorPrototype", "Object.getPrototypeOf(Object.getPrototypeOf([][Symbol.iterator]()))"},
	{"ArrayIteratorPrototype", "Object.getPrototypeOf([][Symbol.iterator]())"},
}

// Default returns a registry populated from e's well-known globals.
func Default(e *engine.Engine) (*Registry, error) {
	r := New()
	if err := Populate(r, e); err != nil {
		return nil, err
	}
	return r, nil
}

// Populate registers e's well-known globals into r by path:
// "parseInt", "Object.prototype", "Math.max", "Symbol.iterator", and
// accessor halves as "Map.prototype.size#get".
//
// Populate must run before user code so that no script-installed value
// is mistaken for a builtin.
func Populate(r *Registry, e *engine.Engine) error {
	rt := e.Runtime()
	p := &populator{r: r, e: e}

	if err := p.add("globalThis", rt.GlobalObject()); err != nil {
		return err
	}

	for _, name := range globalFunctions {
		if v := rt.Get(name); v != nil {
			if err := p.add(name, v); err != nil {
				return err
			}
		}
	}

	for _, name := range namespaces {
		obj, ok := rt.Get(name).(*goja.Object)
		if !ok {
			continue
		}
		if err := p.walk(name, obj, false); err != nil {
			return err
		}
	}

	for _, name := range constructors {
		obj, ok := rt.Get(name).(*goja.Object)
		if !ok {
			continue
		}
		if err := p.walk(name, obj, true); err != nil {
			return err
		}
	}

	for _, h := range hidden {
		v, err := e.Run(h.name+".js", h.expr)
		if err != nil {
			e.Logger().Debug("intrinsic unavailable", "name", h.name, "error", err)
			continue
		}
		obj, ok := v.(*goja.Object)
		if !ok {
			continue
		}
		if err := p.walk(h.name, obj, true); err != nil {
			return err
		}
	}

	e.Logger().Debug("builtins registered", "count", r.Len())
	return nil
}

type populator struct {
	r *Registry
	e *engine.Engine
}

// add registers v under name unless v is a primitive or name is taken.
func (p *populator) add(name string, v goja.Value) error {
	switch v.(type) {
	case *goja.Object, *goja.Symbol:
	default:
		return nil
	}
	if _, taken := p.r.ValueOf(name); taken {
		return nil
	}
	return p.r.Register(name, v)
}

// walk registers obj under path, then its members; withPrototype also
// registers path.prototype and its members.
func (p *populator) walk(path string, obj *goja.Object, withPrototype bool) error {
	if err := p.add(path, obj); err != nil {
		return err
	}
	if err := p.members(path, obj); err != nil {
		return err
	}
	if !withPrototype {
		return nil
	}

	prop, ok, err := p.e.OwnProperty(obj, "prototype")
	if err != nil {
		return fmt.Errorf("%s.prototype: %w", path, err)
	}
	if !ok || prop.Accessor {
		return nil
	}
	proto, ok := prop.Value.(*goja.Object)
	if !ok {
		return nil
	}
	protoPath := path + ".prototype"
	if err := p.add(protoPath, proto); err != nil {
		return err
	}
	return p.members(protoPath, proto)
}

// members registers the object- and symbol-valued own attributes of obj.
func (p *populator) members(path string, obj *goja.Object) error {
	props, err := p.e.OwnProperties(obj)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, prop := range props {
		if prop.Name == "prototype" {
			continue
		}
		member := path + "." + prop.Name
		if prop.Accessor {
			if err := p.add(member+"#get", prop.Get); err != nil {
				return err
			}
			if err := p.add(member+"#set", prop.Set); err != nil {
				return err
			}
			continue
		}
		if err := p.add(member, prop.Value); err != nil {
			return err
		}
	}
	return nil
}
