package graph

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// objectGraph is {n: 1, self: <cycle>} with a non-enumerable, read-only
// "hidden" attribute.
func objectGraph() *Graph {
	refs := NewAttrs()
	refs.Set("n", 2)
	refs.Set("self", 0)
	descs := NewDescriptors()
	descs.Set("hidden", Descriptor{Value: Ref(3), Writable: Flag(false)})

	return &Graph{
		Root: 0,
		Data: []Record{
			Object{Prototype: 1, Refs: refs, Descriptions: descs},
			Builtin{Name: "Object.prototype"},
			Int(1),
			String("x"),
		},
	}
}

func functionGraph() *Graph {
	env := NewAttrs()
	env.Set("y", 4)

	return &Graph{
		Root: 0,
		Data: []Record{
			Function{Source: `(x) => x < y && "<ok>"`, Closure: 1, Prototype: 3},
			Object{Prototype: 2, Refs: env},
			Null(),
			Builtin{Name: "Function.prototype"},
			Int(2),
		},
	}
}

func TestMarshalGolden(t *testing.T) {
	g := newGolden(t)

	t.Run("object_graph", func(t *testing.T) {
		data, err := MarshalIndent(objectGraph())
		require.NoError(t, err)
		g.Assert(t, "object_graph", data)
	})

	t.Run("function_graph", func(t *testing.T) {
		data, err := MarshalIndent(functionGraph())
		require.NoError(t, err)
		g.Assert(t, "function_graph", data)
	})
}

func TestMarshalCompact(t *testing.T) {
	data, err := Marshal(objectGraph())
	require.NoError(t, err)

	expected := `{"root":0,"data":[` +
		`{"kind":"object","prototype":1,"refs":{"n":2,"self":0},"descriptions":{"hidden":{"value":3,"configurable":false,"writable":false,"enumerable":false}}},` +
		`{"kind":"builtin","name":"Object.prototype"},` +
		`{"kind":"primitive","value":1},` +
		`{"kind":"primitive","value":"x"}]}`
	assert.Equal(t, expected, string(data))
}

func TestMarshalRoundTrip(t *testing.T) {
	for name, build := range map[string]func() *Graph{
		"object":   objectGraph,
		"function": functionGraph,
	} {
		t.Run(name, func(t *testing.T) {
			first, err := Marshal(build())
			require.NoError(t, err)

			parsed, err := Parse(first)
			require.NoError(t, err)

			second, err := Marshal(parsed)
			require.NoError(t, err)
			assert.Equal(t, string(first), string(second))
		})
	}
}

func TestPrimitiveWire(t *testing.T) {
	tests := []struct {
		name string
		rec  Primitive
		wire string
	}{
		{"undefined", Undefined(), `{"kind":"primitive"}`},
		{"null", Null(), `{"kind":"primitive","value":null}`},
		{"true", Bool(true), `{"kind":"primitive","value":true}`},
		{"string", String("a<b"), `{"kind":"primitive","value":"a<b"}`},
		{"int", Int(42), `{"kind":"primitive","value":42}`},
		{"fraction", Number(1.5), `{"kind":"primitive","value":1.5}`},
		{"infinity", Number(math.Inf(1)), `{"kind":"primitive","type":"number","value":"Infinity"}`},
		{"negative infinity", Number(math.Inf(-1)), `{"kind":"primitive","type":"number","value":"-Infinity"}`},
		{"bigint", BigInt("12345678901234567890"), `{"kind":"primitive","type":"bigint","value":"12345678901234567890"}`},
		{"symbol", Symbol("tag"), `{"kind":"primitive","type":"symbol","value":"tag"}`},
		{"empty symbol", Symbol(""), `{"kind":"primitive","type":"symbol","value":""}`},
		{"undescribed symbol", UndescribedSymbol(), `{"kind":"primitive","type":"symbol","value":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := marshalRecord(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.wire, string(raw))

			back, err := unmarshalRecord(0, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.rec, back)
		})
	}
}

func TestPrimitiveWireSpecialNumbers(t *testing.T) {
	t.Run("NaN", func(t *testing.T) {
		raw, err := marshalRecord(Number(math.NaN()))
		require.NoError(t, err)
		assert.Equal(t, `{"kind":"primitive","type":"number","value":"NaN"}`, string(raw))

		back, err := unmarshalRecord(0, raw)
		require.NoError(t, err)
		f, ok := back.(Primitive).Float()
		require.True(t, ok)
		assert.True(t, math.IsNaN(f))
	})

	t.Run("negative zero", func(t *testing.T) {
		raw, err := marshalRecord(Number(math.Copysign(0, -1)))
		require.NoError(t, err)
		assert.Equal(t, `{"kind":"primitive","type":"number","value":"-0"}`, string(raw))

		back, err := unmarshalRecord(0, raw)
		require.NoError(t, err)
		f, ok := back.(Primitive).Float()
		require.True(t, ok)
		assert.True(t, f == 0 && math.Signbit(f))
	})
}

func TestUnmarshalPrimitiveLenient(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want Primitive
	}{
		{"integral float literal", `{"kind":"primitive","value":3.0}`, Int(3)},
		{"typed number literal", `{"kind":"primitive","type":"number","value":7}`, Int(7)},
		{"explicit undefined", `{"kind":"primitive","type":"undefined"}`, Undefined()},
		{"explicit string", `{"kind":"primitive","type":"string","value":"s"}`, String("s")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := unmarshalRecord(0, []byte(tt.wire))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec)
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"root":0,"data":[{"kind":"weakmap"}]}`))
		require.Error(t, err)
		assert.True(t, IsUnrecognizedKind(err))

		var de *DeserializationError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "weakmap", de.Kind)
		assert.Equal(t, 0, de.Index)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"data":[]}`))
		assert.ErrorContains(t, err, "missing root")
	})

	t.Run("missing prototype", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"root":0,"data":[{"kind":"object","refs":{},"descriptions":{}}]}`))
		assert.ErrorContains(t, err, `missing "prototype"`)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"root":0,"data":[{"kind":"function","closure":0,"prototype":0}]}`))
		assert.ErrorContains(t, err, `missing "source"`)
	})

	t.Run("composite primitive", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"root":0,"data":[{"kind":"primitive","value":[1]}]}`))
		assert.Error(t, err)
	})

	t.Run("unknown number literal", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"root":0,"data":[{"kind":"primitive","type":"number","value":"Huge"}]}`))
		assert.ErrorContains(t, err, "unknown number literal")
	})

	t.Run("unfilled slot", func(t *testing.T) {
		g := New()
		g.Reserve()
		_, err := Marshal(g)
		assert.ErrorContains(t, err, "unfilled")
	})
}

func TestParseChecksIndices(t *testing.T) {
	t.Run("root out of range", func(t *testing.T) {
		_, err := Parse([]byte(`{"root":3,"data":[{"kind":"primitive"}]}`))
		require.Error(t, err)
		assert.True(t, IsInvalidIndex(err))
	})

	t.Run("array element out of range", func(t *testing.T) {
		_, err := Parse([]byte(`{"root":0,"data":[{"kind":"array","refs":[0,9]}]}`))
		require.Error(t, err)
		assert.True(t, IsInvalidIndex(err))
	})

	t.Run("descriptor getter out of range", func(t *testing.T) {
		payload := `{"root":0,"data":[{"kind":"object","prototype":0,"refs":{},` +
			`"descriptions":{"g":{"get":5,"configurable":true,"enumerable":true}}}]}`
		_, err := Parse([]byte(payload))
		require.Error(t, err)
		assert.True(t, IsInvalidIndex(err))
	})

	t.Run("missing buckets default to empty", func(t *testing.T) {
		g, err := Parse([]byte(`{"root":0,"data":[{"kind":"object","prototype":0}]}`))
		require.NoError(t, err)
		obj := g.Data[0].(Object)
		assert.Equal(t, 0, obj.Refs.Len())
		assert.Equal(t, 0, obj.Descriptions.Len())
	})
}
