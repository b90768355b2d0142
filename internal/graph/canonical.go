package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON of g for hashing.
// This is the ONLY serialization that should be used for content IDs.
//
// Differences from the wire format:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Numbers use ECMAScript formatting
//  5. refs/descriptions become [name, value] pair lists, so attribute
//     order still contributes to identity after key sorting
func MarshalCanonical(g *Graph) ([]byte, error) {
	tree, err := canonicalTree(g)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(tree)
}

func canonicalTree(g *Graph) (map[string]any, error) {
	data := make([]any, len(g.Data))
	for i, r := range g.Data {
		rec, err := canonicalRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		data[i] = rec
	}
	return map[string]any{
		"root": int64(g.Root),
		"data": data,
	}, nil
}

func canonicalRecord(r Record) (map[string]any, error) {
	switch rec := r.(type) {
	case Primitive:
		out := map[string]any{"kind": string(KindPrimitive), "type": string(rec.Type)}
		switch v := rec.Value.(type) {
		case nil:
		case float64:
			if name, ok := specialNumber(v); ok {
				out["value"] = name
			} else {
				out["value"] = v
			}
		default:
			out["value"] = v
		}
		return out, nil
	case Array:
		refs := make([]any, len(rec.Refs))
		for i, idx := range rec.Refs {
			refs[i] = int64(idx)
		}
		return map[string]any{"kind": string(KindArray), "refs": refs}, nil
	case Object:
		return map[string]any{
			"kind":         string(KindObject),
			"prototype":    int64(rec.Prototype),
			"refs":         canonicalAttrs(rec.Refs),
			"descriptions": canonicalDescriptors(rec.Descriptions),
		}, nil
	case Function:
		return map[string]any{
			"kind":         string(KindFunction),
			"source":       rec.Source,
			"closure":      int64(rec.Closure),
			"prototype":    int64(rec.Prototype),
			"refs":         canonicalAttrs(rec.Refs),
			"descriptions": canonicalDescriptors(rec.Descriptions),
		}, nil
	case Builtin:
		return map[string]any{"kind": string(KindBuiltin), "name": rec.Name}, nil
	case Date:
		return map[string]any{"kind": string(KindDate), "value": rec.Value}, nil
	case Regex:
		return map[string]any{"kind": string(KindRegex), "value": rec.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported record type %T", r)
	}
}

func canonicalAttrs(a *Attrs) []any {
	out := make([]any, 0, a.Len())
	for name, idx := range a.All() {
		out = append(out, []any{name, int64(idx)})
	}
	return out
}

func canonicalDescriptors(d *Descriptors) []any {
	out := make([]any, 0, d.Len())
	for name, desc := range d.All() {
		m := map[string]any{
			"configurable": desc.Configurable,
			"enumerable":   desc.Enumerable,
		}
		if desc.Get != nil {
			m["get"] = int64(*desc.Get)
		}
		if desc.Set != nil {
			m["set"] = int64(*desc.Set)
		}
		if desc.Value != nil {
			m["value"] = int64(*desc.Value)
		}
		if desc.Writable != nil {
			m["writable"] = *desc.Writable
		}
		out = append(out, []any{name, m})
	}
	return out
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case float64:
		return marshalCanonicalNumber(val)
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalNumber formats f the way ECMAScript Number.prototype.toString
// does, as RFC 8785 requires.
func marshalCanonicalNumber(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number in canonical JSON: %v", f)
	}
	if f == 0 {
		return []byte("0"), nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go writes e-07 / e+21; ECMAScript writes e-7 / e+21.
	mant, exp, _ := bytes.Cut([]byte(s), []byte("e"))
	sign := exp[0]
	digits := bytes.TrimLeft(exp[1:], "0")
	out := append(append([]byte{}, mant...), 'e', sign)
	return append(out, digits...), nil
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization. Only control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	result := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	// encoding/json escapes U+2028 and U+2029 for JavaScript embedding;
	// RFC 8785 writes them literally.
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving \\u2028 (an escaped backslash followed by text) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}
		// An escape sequence: either \uXXXX or a two-byte escape.
		if i+5 < len(data) && data[i+1] == 'u' && string(data[i+2:i+5]) == "202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
		if i+1 < len(data) {
			out = append(out, data[i+1])
			i++
		}
	}
	return out
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's native string comparison uses UTF-8 bytes, which orders
// supplementary-plane characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
