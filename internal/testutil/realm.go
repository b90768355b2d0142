package testutil

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capsule/internal/codec"
	"github.com/roach88/capsule/internal/graph"
)

// NewRealm creates a codec realm or fails the test.
func NewRealm(t testing.TB, opts ...codec.Option) *codec.Realm {
	t.Helper()
	r, err := codec.NewRealm(opts...)
	require.NoError(t, err)
	return r
}

// Eval runs src in r and returns its completion value.
func Eval(t testing.TB, r *codec.Realm, src string) goja.Value {
	t.Helper()
	v, err := r.Eval(t.Name()+".js", src)
	require.NoError(t, err, "eval %q", src)
	return v
}

// Encode evaluates src in r and serializes the result.
func Encode(t testing.TB, r *codec.Realm, src string) *graph.Graph {
	t.Helper()
	g, err := r.Serialize(Eval(t, r, src))
	require.NoError(t, err)
	return g
}

// RoundTrip evaluates src in a fresh realm, pushes the result through the
// wire format, and decodes it into a second fresh realm. The decoded value
// is bound to the global "value" in that realm so assertions can be
// written in script.
func RoundTrip(t testing.TB, src string) (*codec.Realm, goja.Value) {
	t.Helper()

	source := NewRealm(t)
	data, err := source.Marshal(Eval(t, source, src))
	require.NoError(t, err)

	target := NewRealm(t)
	v, err := target.Unmarshal(data)
	require.NoError(t, err, "decode %s", data)
	require.NoError(t, target.Runtime().Set("value", v))
	return target, v
}

// Check evaluates a boolean script expression in r and requires it to
// hold.
func Check(t testing.TB, r *codec.Realm, expr string) {
	t.Helper()
	v := Eval(t, r, expr)
	require.True(t, v.ToBoolean(), "expected %s to hold", expr)
}
