package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Wire shapes. Every record is a flat JSON object tagged by "kind".

type wireGraph struct {
	Root *int              `json:"root"`
	Data []json.RawMessage `json:"data"`
}

type wireHead struct {
	Kind Kind `json:"kind"`
}

// wirePrimitive omits "value" for undefined. "type" is written only when
// the JSON literal alone cannot carry the value (NaN, bigint, symbol...).
type wirePrimitive struct {
	Kind  Kind            `json:"kind"`
	Type  PrimitiveType   `json:"type,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type wireArray struct {
	Kind Kind  `json:"kind"`
	Refs []int `json:"refs"`
}

type wireObject struct {
	Kind         Kind         `json:"kind"`
	Prototype    *int         `json:"prototype"`
	Refs         *Attrs       `json:"refs"`
	Descriptions *Descriptors `json:"descriptions"`
}

type wireFunction struct {
	Kind         Kind         `json:"kind"`
	Source       *string      `json:"source"`
	Closure      *int         `json:"closure"`
	Prototype    *int         `json:"prototype"`
	Refs         *Attrs       `json:"refs"`
	Descriptions *Descriptors `json:"descriptions"`
}

type wireBuiltin struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

type wireText struct {
	Kind  Kind    `json:"kind"`
	Value *string `json:"value"`
}

// Marshal encodes g in wire format without HTML escaping, so function
// source text keeps its arrows and comparisons verbatim.
func Marshal(g *Graph) ([]byte, error) {
	return marshalNoEscape(g, "")
}

// MarshalIndent is like Marshal with two-space indentation.
func MarshalIndent(g *Graph) ([]byte, error) {
	return marshalNoEscape(g, "  ")
}

// Unmarshal decodes a wire payload. It does not validate indices; use
// Parse for that.
func Unmarshal(data []byte) (*Graph, error) {
	g := &Graph{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Parse decodes a wire payload and checks every index. The first
// validation failure is returned as an INVALID_INDEX error.
func Parse(data []byte) (*Graph, error) {
	g, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := CheckIndices(g); err != nil {
		return nil, err
	}
	return g, nil
}

// MarshalJSON implements json.Marshaler for Graph.
func (g *Graph) MarshalJSON() ([]byte, error) {
	data := make([]json.RawMessage, len(g.Data))
	for i, r := range g.Data {
		raw, err := marshalRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		data[i] = raw
	}
	root := g.Root
	return marshalNoEscape(wireGraph{Root: &root, Data: data}, "")
}

// UnmarshalJSON implements json.Unmarshaler for Graph.
// Records with an unknown kind fail with an UNRECOGNIZED_KIND error.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Root == nil {
		return fmt.Errorf("graph: missing root")
	}

	records := make([]Record, len(w.Data))
	for i, raw := range w.Data {
		r, err := unmarshalRecord(i, raw)
		if err != nil {
			return err
		}
		records[i] = r
	}

	g.Root = *w.Root
	g.Data = records
	return nil
}

func marshalRecord(r Record) ([]byte, error) {
	switch rec := r.(type) {
	case Primitive:
		w, err := toWirePrimitive(rec)
		if err != nil {
			return nil, err
		}
		return marshalNoEscape(w, "")
	case Array:
		refs := rec.Refs
		if refs == nil {
			refs = []int{}
		}
		return marshalNoEscape(wireArray{Kind: KindArray, Refs: refs}, "")
	case Object:
		proto := rec.Prototype
		return marshalNoEscape(wireObject{
			Kind:         KindObject,
			Prototype:    &proto,
			Refs:         orEmptyAttrs(rec.Refs),
			Descriptions: orEmptyDescriptors(rec.Descriptions),
		}, "")
	case Function:
		source, closure, proto := rec.Source, rec.Closure, rec.Prototype
		return marshalNoEscape(wireFunction{
			Kind:         KindFunction,
			Source:       &source,
			Closure:      &closure,
			Prototype:    &proto,
			Refs:         orEmptyAttrs(rec.Refs),
			Descriptions: orEmptyDescriptors(rec.Descriptions),
		}, "")
	case Builtin:
		return marshalNoEscape(wireBuiltin{Kind: KindBuiltin, Name: rec.Name}, "")
	case Date:
		v := rec.Value
		return marshalNoEscape(wireText{Kind: KindDate, Value: &v}, "")
	case Regex:
		v := rec.Value
		return marshalNoEscape(wireText{Kind: KindRegex, Value: &v}, "")
	case nil:
		return nil, fmt.Errorf("unfilled record slot")
	default:
		return nil, fmt.Errorf("unsupported record type %T", r)
	}
}

func unmarshalRecord(idx int, raw json.RawMessage) (Record, error) {
	var head wireHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("record %d: %w", idx, err)
	}

	switch head.Kind {
	case KindPrimitive:
		var w wirePrimitive
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		p, err := fromWirePrimitive(w)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		return p, nil

	case KindArray:
		var w wireArray
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		return Array{Refs: w.Refs}, nil

	case KindObject:
		var w wireObject
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		if w.Prototype == nil {
			return nil, missingField(idx, "prototype")
		}
		return Object{
			Prototype:    *w.Prototype,
			Refs:         orEmptyAttrs(w.Refs),
			Descriptions: orEmptyDescriptors(w.Descriptions),
		}, nil

	case KindFunction:
		var w wireFunction
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		switch {
		case w.Source == nil:
			return nil, missingField(idx, "source")
		case w.Closure == nil:
			return nil, missingField(idx, "closure")
		case w.Prototype == nil:
			return nil, missingField(idx, "prototype")
		}
		return Function{
			Source:       *w.Source,
			Closure:      *w.Closure,
			Prototype:    *w.Prototype,
			Refs:         orEmptyAttrs(w.Refs),
			Descriptions: orEmptyDescriptors(w.Descriptions),
		}, nil

	case KindBuiltin:
		var w wireBuiltin
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		return Builtin{Name: w.Name}, nil

	case KindDate, KindRegex:
		var w wireText
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		if w.Value == nil {
			return nil, missingField(idx, "value")
		}
		if head.Kind == KindDate {
			return Date{Value: *w.Value}, nil
		}
		return Regex{Value: *w.Value}, nil

	default:
		return nil, NewUnrecognizedKindError(idx, string(head.Kind))
	}
}

func missingField(idx int, field string) error {
	return fmt.Errorf("record %d: missing %q", idx, field)
}

func orEmptyAttrs(a *Attrs) *Attrs {
	if a == nil {
		return NewAttrs()
	}
	return a
}

func orEmptyDescriptors(d *Descriptors) *Descriptors {
	if d == nil {
		return NewDescriptors()
	}
	return d
}

// specialNumber names the float values JSON has no literal for.
func specialNumber(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	case f == 0 && math.Signbit(f):
		return "-0", true
	}
	return "", false
}

func parseSpecialNumber(s string) (float64, bool) {
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	case "-0":
		return math.Copysign(0, -1), true
	}
	return 0, false
}

func toWirePrimitive(p Primitive) (wirePrimitive, error) {
	w := wirePrimitive{Kind: KindPrimitive}
	var err error

	switch p.Type {
	case TypeUndefined:
		return w, nil
	case TypeNull:
		w.Value = json.RawMessage("null")
	case TypeBoolean, TypeString:
		w.Value, err = marshalNoEscape(p.Value, "")
	case TypeNumber:
		switch v := p.Value.(type) {
		case int64:
			w.Value = json.RawMessage(strconv.FormatInt(v, 10))
		case float64:
			if name, ok := specialNumber(v); ok {
				w.Type = TypeNumber
				w.Value, err = marshalNoEscape(name, "")
			} else {
				w.Value, err = marshalNoEscape(v, "")
			}
		default:
			return w, fmt.Errorf("number primitive holds %T", p.Value)
		}
	case TypeSymbol:
		w.Type = p.Type
		if p.Value == nil {
			w.Value = json.RawMessage("null")
		} else {
			w.Value, err = marshalNoEscape(p.Value, "")
		}
	case TypeBigInt:
		w.Type = p.Type
		w.Value, err = marshalNoEscape(p.Value, "")
	default:
		return w, fmt.Errorf("unknown primitive type %q", p.Type)
	}
	return w, err
}

func fromWirePrimitive(w wirePrimitive) (Primitive, error) {
	switch w.Type {
	case "":
		if w.Value == nil {
			return Undefined(), nil
		}
		return decodeLiteral(w.Value)
	case TypeUndefined:
		return Undefined(), nil
	case TypeNull, TypeBoolean, TypeString:
		return decodeLiteral(w.Value)
	case TypeNumber:
		var name string
		if err := json.Unmarshal(w.Value, &name); err == nil {
			f, ok := parseSpecialNumber(name)
			if !ok {
				return Primitive{}, fmt.Errorf("unknown number literal %q", name)
			}
			return Number(f), nil
		}
		return decodeLiteral(w.Value)
	case TypeSymbol:
		if w.Value == nil || bytes.Equal(bytes.TrimSpace(w.Value), []byte("null")) {
			return UndescribedSymbol(), nil
		}
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Primitive{}, fmt.Errorf("%s primitive: %w", w.Type, err)
		}
		return Symbol(s), nil
	case TypeBigInt:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Primitive{}, fmt.Errorf("%s primitive: %w", w.Type, err)
		}
		return Primitive{Type: w.Type, Value: s}, nil
	default:
		return Primitive{}, fmt.Errorf("unknown primitive type %q", w.Type)
	}
}

// decodeLiteral maps a plain JSON scalar to a primitive, dispatching on the
// first byte of the literal.
func decodeLiteral(data json.RawMessage) (Primitive, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Primitive{}, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case 'n':
		return Null(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return Primitive{}, err
		}
		return Bool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Primitive{}, err
		}
		return String(s), nil
	case '[', '{':
		return Primitive{}, fmt.Errorf("primitive value must be a scalar")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return Primitive{}, err
		}
		f, err := n.Float64()
		if err != nil {
			return Primitive{}, fmt.Errorf("invalid number %q: %w", n, err)
		}
		return Number(f), nil
	}
}

func marshalNoEscape(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
