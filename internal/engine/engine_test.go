package engine

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New()
	require.NoError(t, err)
	return e
}

func mustObject(t *testing.T, e *Engine, src string) *goja.Object {
	t.Helper()
	v, err := e.Run("test.js", src)
	require.NoError(t, err)
	obj, ok := v.(*goja.Object)
	require.True(t, ok, "%s did not evaluate to an object", src)
	return obj
}

func mustValue(t *testing.T, e *Engine, src string) goja.Value {
	t.Helper()
	v, err := e.Run("test.js", src)
	require.NoError(t, err)
	return v
}

func TestEngine_Run(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Run("sum.js", "1 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Export())

	_, err = e.Run("bad.js", "let = ;")
	assert.ErrorContains(t, err, "compile bad.js")

	_, err = e.Run("throw.js", "throw new Error('boom')")
	assert.ErrorContains(t, err, "boom")
}

func TestEngine_IntrinsicsSurviveOverwrite(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Run("clobber.js", `
		Array.isArray = () => false;
		Object.getOwnPropertyDescriptor = () => undefined;
		Function.prototype.toString = () => "nope";
	`)
	require.NoError(t, err)

	arr := mustObject(t, e, "[1, 2]")
	isArr, err := e.IsArray(arr)
	require.NoError(t, err)
	assert.True(t, isArr)

	props, err := e.OwnProperties(mustObject(t, e, "({a: 1})"))
	require.NoError(t, err)
	require.Len(t, props, 1)

	src, err := e.FunctionSource(mustObject(t, e, "(function f(x) { return x })"))
	require.NoError(t, err)
	assert.Equal(t, "function f(x) { return x }", src)
}

func TestEngine_OwnProperties(t *testing.T) {
	e := newTestEngine(t)
	obj := mustObject(t, e, `
		const o = {b: 1, a: 2, 1: 'one'};
		Object.defineProperty(o, 'hidden', {value: 3, writable: false, enumerable: false, configurable: true});
		Object.defineProperty(o, 'acc', {get() { return 4 }, enumerable: true, configurable: false});
		o[Symbol('s')] = 5;
		o;
	`)

	props, err := e.OwnProperties(obj)
	require.NoError(t, err)

	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"1", "b", "a", "hidden", "acc"}, names)

	assert.True(t, props[1].Plain())

	hidden := props[3]
	assert.False(t, hidden.Plain())
	assert.False(t, hidden.Accessor)
	require.NotNil(t, hidden.Writable)
	assert.False(t, *hidden.Writable)
	assert.False(t, hidden.Enumerable)
	assert.True(t, hidden.Configurable)
	assert.Equal(t, int64(3), hidden.Value.Export())

	acc := props[4]
	assert.True(t, acc.Accessor)
	assert.Nil(t, acc.Writable)
	assert.True(t, IsCallable(acc.Get))
	assert.True(t, goja.IsUndefined(acc.Set))
	assert.True(t, acc.Enumerable)
	assert.False(t, acc.Configurable)
}

func TestEngine_OwnPropertyMissing(t *testing.T) {
	e := newTestEngine(t)
	_, ok, err := e.OwnProperty(mustObject(t, e, "({})"), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_OwnPropertiesProxyTrap(t *testing.T) {
	e := newTestEngine(t)
	obj := mustObject(t, e, `new Proxy({}, {ownKeys() { throw new Error('trap') }})`)

	_, err := e.OwnProperties(obj)
	assert.ErrorContains(t, err, "trap")
}

func TestEngine_DateAndRegExp(t *testing.T) {
	e := newTestEngine(t)

	d, err := e.NewDate("2024-02-29T12:34:56.789Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29T12:34:56.789Z", e.DateText(d))

	invalid, err := e.NewDate("not a date")
	require.NoError(t, err)
	assert.Equal(t, InvalidDate, e.DateText(invalid))

	re, err := e.NewRegExp("a+b", "gi")
	require.NoError(t, err)
	text, err := e.RegExpText(re)
	require.NoError(t, err)
	assert.Equal(t, "/a+b/gi", text)

	_, err = e.NewRegExp("(", "")
	assert.Error(t, err)
}

func TestEngine_Symbols(t *testing.T) {
	e := newTestEngine(t)

	sym, ok := mustValue(t, e, `Symbol("tag")`).(*goja.Symbol)
	require.True(t, ok)
	desc, ok := e.SymbolDescription(sym)
	assert.True(t, ok)
	assert.Equal(t, "tag", desc)

	empty, _ := mustValue(t, e, `Symbol("")`).(*goja.Symbol)
	desc, ok = e.SymbolDescription(empty)
	assert.True(t, ok)
	assert.Equal(t, "", desc)

	bare, _ := mustValue(t, e, `Symbol()`).(*goja.Symbol)
	_, ok = e.SymbolDescription(bare)
	assert.False(t, ok)

	made, err := e.NewSymbol(nil)
	require.NoError(t, err)
	_, ok = e.SymbolDescription(made)
	assert.False(t, ok)

	text := "x"
	made, err = e.NewSymbol(&text)
	require.NoError(t, err)
	desc, ok = e.SymbolDescription(made)
	assert.True(t, ok)
	assert.Equal(t, "x", desc)

	// The captured constructor survives user code replacing it.
	mustValue(t, e, `Symbol = function () { return 1; }`)
	made, err = e.NewSymbol(nil)
	require.NoError(t, err)
	assert.NotNil(t, made)
}

func TestEngine_NewFunction(t *testing.T) {
	e := newTestEngine(t)

	fn, err := e.NewFunction([]string{"a", "b"}, "return a * b;")
	require.NoError(t, err)

	res, err := e.Call(fn, nil, e.Runtime().ToValue(6), e.Runtime().ToValue(7))
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Export())

	_, err = e.NewFunction(nil, "return (;")
	assert.Error(t, err)
}

func TestEngine_Call(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Call(e.Runtime().ToValue(1), nil)
	assert.ErrorIs(t, err, ErrNotCallable)

	thrower := mustObject(t, e, "(() => { throw new TypeError('bad') })")
	_, err = e.Call(thrower, nil)
	var ex *goja.Exception
	assert.ErrorAs(t, err, &ex)
}

func TestCompiles(t *testing.T) {
	assert.True(t, Compiles("(x => x)"))
	assert.True(t, Compiles("(class A {})"))
	assert.False(t, Compiles("(m() {})"))
	assert.False(t, Compiles("(get x() { return 1 })"))
}
