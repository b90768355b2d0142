// Package closure implements the closure-snapshot convention.
//
// A function exposes what it captured through a non-enumerable own
// attribute (Key by default) holding a zero-argument function. Calling it
// returns a plain object mapping captured-variable names to their current
// values. Functions without the attribute capture nothing.
//
// The attribute is normally produced by a build-time source transform.
// Install provides the same thing at run time as the capture(fn, snapshot)
// script helper.
package closure

import (
	"github.com/dop251/goja"

	"github.com/roach88/capsule/internal/engine"
)

// Key is the default name of the snapshot attribute.
const Key = "__closure__"

// HelperName is the global under which Install exposes the capture helper.
const HelperName = "capture"

// Accessor returns the snapshot function fn carries under key, or nil when
// it carries none. A non-callable attribute counts as none.
func Accessor(e *engine.Engine, fn *goja.Object, key string) (goja.Value, error) {
	prop, ok, err := e.OwnProperty(fn, key)
	if err != nil || !ok {
		return nil, err
	}

	holder := prop.Value
	if prop.Accessor {
		if holder, err = e.Call(prop.Get, fn); err != nil {
			return nil, err
		}
	}
	if !engine.IsCallable(holder) {
		return nil, nil
	}
	return holder, nil
}

// Snapshot calls fn's snapshot function and returns the mapping it
// produces, or nil when fn carries no snapshot function. Exceptions thrown
// by the snapshot function are returned as errors.
func Snapshot(e *engine.Engine, fn *goja.Object, key string) (goja.Value, error) {
	accessor, err := Accessor(e, fn, key)
	if err != nil || accessor == nil {
		return nil, err
	}
	return e.Call(accessor, fn)
}

// Attach installs accessor as fn's snapshot function: non-enumerable,
// non-writable and configurable, so ordinary enumeration never sees it.
func Attach(fn *goja.Object, key string, accessor goja.Value) error {
	return fn.DefineDataProperty(key, accessor, goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

// Install defines the global capture(fn, snapshot) helper, which attaches
// snapshot to fn under key and returns fn:
//
//	let count = 0;
//	const inc = capture(() => ++count, () => ({count}));
func Install(e *engine.Engine, key string) error {
	rt := e.Runtime()
	return rt.Set(HelperName, func(call goja.FunctionCall) goja.Value {
		fn, ok := call.Argument(0).(*goja.Object)
		if !ok || !engine.IsCallable(fn) {
			panic(rt.NewTypeError("%s: first argument must be a function", HelperName))
		}
		accessor := call.Argument(1)
		if !engine.IsCallable(accessor) {
			panic(rt.NewTypeError("%s: second argument must be a function", HelperName))
		}
		if err := Attach(fn, key, accessor); err != nil {
			panic(err)
		}
		return fn
	})
}
