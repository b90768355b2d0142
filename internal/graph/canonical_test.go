package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"html stays literal", "<a&b>", `"<a&b>"`},
		{"int", int64(-100), "-100"},
		{"float", 1.5, "1.5"},
		{"large float", 1e21, "1e+21"},
		{"small float", 1e-7, "1e-7"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := marshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := marshalCanonical(math.Inf(1))
	assert.Error(t, err)
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// UTF-16 order: 0xD800 (surrogate of U+10000) sorts before 0xE000.
	obj := map[string]any{
		"\uE000":     int64(1),
		"\U00010000": int64(2),
	}

	result, err := marshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed, err := marshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := marshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalGraph(t *testing.T) {
	result, err := MarshalCanonical(objectGraph())
	require.NoError(t, err)

	expected := `{"data":[` +
		`{"descriptions":[["hidden",{"configurable":false,"enumerable":false,"value":3,"writable":false}]],` +
		`"kind":"object","prototype":1,"refs":[["n",2],["self",0]]},` +
		`{"kind":"builtin","name":"Object.prototype"},` +
		`{"kind":"primitive","type":"number","value":1},` +
		`{"kind":"primitive","type":"string","value":"x"}` +
		`],"root":0}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalSpecialNumbers(t *testing.T) {
	g := &Graph{Data: []Record{Number(math.NaN())}}
	result, err := MarshalCanonical(g)
	require.NoError(t, err)
	assert.Contains(t, string(result), `"value":"NaN"`)
}

func TestID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a, err := ID(objectGraph())
		require.NoError(t, err)
		b, err := ID(objectGraph())
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("attribute order matters", func(t *testing.T) {
		g := objectGraph()
		swapped := NewAttrs()
		swapped.Set("self", 0)
		swapped.Set("n", 2)
		obj := g.Data[0].(Object)
		obj.Refs = swapped
		g.Data[0] = obj

		assert.NotEqual(t, MustID(objectGraph()), MustID(g))
	})

	t.Run("distinguishes kinds", func(t *testing.T) {
		date := &Graph{Data: []Record{Date{Value: "x"}}}
		regex := &Graph{Data: []Record{Regex{Value: "x"}}}
		assert.NotEqual(t, MustID(date), MustID(regex))
	})

	t.Run("domain separation", func(t *testing.T) {
		data := []byte("same")
		assert.NotEqual(t, hashWithDomain(DomainGraph, data), hashWithDomain("other/v1", data))
	})

	t.Run("unfilled slot", func(t *testing.T) {
		g := New()
		g.Reserve()
		_, err := ID(g)
		assert.Error(t, err)
		assert.Panics(t, func() { MustID(g) })
	})
}
