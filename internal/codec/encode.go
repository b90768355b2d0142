package codec

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/dop251/goja"

	"github.com/roach88/capsule/internal/closure"
	"github.com/roach88/capsule/internal/engine"
	"github.com/roach88/capsule/internal/graph"
)

// Encoder flattens a value graph into a graph.Graph.
//
// Identity tables live for one Encode call. Every object is registered
// under its reserved index before any of its children are visited, so
// cycles resolve to the reserved index instead of recursing.
type Encoder struct {
	realm *Realm

	g          *graph.Graph
	objects    map[*goja.Object]int
	symbols    map[*goja.Symbol]int
	primitives map[primitiveKey]int
}

// primitiveKey identifies a primitive by value: equal primitives share a
// record.
type primitiveKey struct {
	typ  graph.PrimitiveType
	text string
}

// NewEncoder returns an encoder for values of r.
func NewEncoder(r *Realm) *Encoder {
	return &Encoder{realm: r}
}

// Encode serializes v. The only errors are script exceptions raised while
// walking: a throwing snapshot accessor, or a proxy trap.
func (enc *Encoder) Encode(v goja.Value) (*graph.Graph, error) {
	enc.g = graph.New()
	enc.objects = make(map[*goja.Object]int)
	enc.symbols = make(map[*goja.Symbol]int)
	enc.primitives = make(map[primitiveKey]int)

	var root int
	err := enc.realm.engine.Try(func() error {
		var err error
		root, err = enc.encode(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	enc.g.Root = root

	enc.realm.logger.Debug("graph encoded", "records", enc.g.Len(), "root", root)
	return enc.g, nil
}

func (enc *Encoder) encode(v goja.Value) (int, error) {
	if v == nil {
		v = goja.Undefined()
	}

	switch val := v.(type) {
	case *goja.Object:
		if idx, ok := enc.objects[val]; ok {
			return idx, nil
		}
		idx := enc.g.Reserve()
		enc.objects[val] = idx
		if err := enc.object(idx, val); err != nil {
			return 0, err
		}
		return idx, nil

	case *goja.Symbol:
		if idx, ok := enc.symbols[val]; ok {
			return idx, nil
		}
		idx := enc.g.Reserve()
		enc.symbols[val] = idx
		if name, ok := enc.realm.registry.NameOf(val); ok {
			enc.g.Fill(idx, graph.Builtin{Name: name})
		} else if desc, ok := enc.realm.engine.SymbolDescription(val); ok {
			enc.g.Fill(idx, graph.Symbol(desc))
		} else {
			enc.g.Fill(idx, graph.UndescribedSymbol())
		}
		return idx, nil
	}

	p := primitiveOf(v)
	key := primitiveKey{typ: p.Type, text: fmt.Sprint(p.Value)}
	if idx, ok := enc.primitives[key]; ok {
		return idx, nil
	}
	idx := enc.g.Append(p)
	enc.primitives[key] = idx
	return idx, nil
}

// object classifies obj and fills its reserved slot.
func (enc *Encoder) object(idx int, obj *goja.Object) error {
	e := enc.realm.engine

	if name, ok := enc.realm.registry.NameOf(obj); ok {
		enc.g.Fill(idx, graph.Builtin{Name: name})
		return nil
	}

	isArray, err := e.IsArray(obj)
	if err != nil {
		return err
	}
	switch {
	case isArray:
		return enc.array(idx, obj)
	case engine.IsCallable(obj):
		return enc.function(idx, obj)
	case obj.ClassName() == "Date":
		enc.g.Fill(idx, graph.Date{Value: e.DateText(obj)})
		return nil
	case obj.ClassName() == "RegExp":
		text, err := e.RegExpText(obj)
		if err != nil {
			return err
		}
		enc.g.Fill(idx, graph.Regex{Value: text})
		return nil
	}

	var protoIdx int
	if proto := obj.Prototype(); proto != nil {
		protoIdx, err = enc.encode(proto)
	} else {
		protoIdx, err = enc.encode(goja.Null())
	}
	if err != nil {
		return err
	}

	refs, descs, err := enc.attributes(obj)
	if err != nil {
		return err
	}
	enc.g.Fill(idx, graph.Object{Prototype: protoIdx, Refs: refs, Descriptions: descs})
	return nil
}

// array encodes elements 0..length-1; holes read as undefined.
func (enc *Encoder) array(idx int, arr *goja.Object) error {
	var length int64
	if l := arr.Get("length"); l != nil {
		length = l.ToInteger()
	}
	refs := make([]int, 0, length)
	for i := int64(0); i < length; i++ {
		el, err := enc.encode(arr.Get(strconv.FormatInt(i, 10)))
		if err != nil {
			return err
		}
		refs = append(refs, el)
	}
	enc.g.Fill(idx, graph.Array{Refs: refs})
	return nil
}

func (enc *Encoder) function(idx int, fn *goja.Object) error {
	source, snapshot, err := enc.functionParts(fn)
	if err != nil {
		return err
	}

	closureIdx, err := enc.encode(snapshot)
	if err != nil {
		return err
	}
	protoIdx, err := enc.encode(fn.Get("prototype"))
	if err != nil {
		return err
	}
	refs, descs, err := enc.attributes(fn)
	if err != nil {
		return err
	}

	enc.g.Fill(idx, graph.Function{
		Source:       source,
		Closure:      closureIdx,
		Prototype:    protoIdx,
		Refs:         refs,
		Descriptions: descs,
	})
	return nil
}

// functionParts returns fn's reconstructible source and its closure
// snapshot. Placeholders produced by the decoder answer from the realm's
// thunk table; everything else from its own text and snapshot attribute.
func (enc *Encoder) functionParts(fn *goja.Object) (string, goja.Value, error) {
	e := enc.realm.engine

	if t, ok := enc.realm.lookupThunk(fn); ok {
		snapshot, err := e.Call(t.snapshot, fn)
		if err != nil {
			return "", nil, err
		}
		return t.source, snapshot, nil
	}

	text, err := e.FunctionSource(fn)
	if err != nil {
		return "", nil, err
	}
	snapshot, err := closure.Snapshot(e, fn, enc.realm.closureKey)
	if err != nil {
		return "", nil, err
	}
	if snapshot == nil {
		snapshot = e.Runtime().NewObject()
	}
	return normalizeSource(text), snapshot, nil
}

// attributes splits the own string-keyed attributes of obj: plain data
// attributes into refs, everything else into descriptions. The closure
// snapshot attribute is skipped.
func (enc *Encoder) attributes(obj *goja.Object) (*graph.Attrs, *graph.Descriptors, error) {
	props, err := enc.realm.engine.OwnProperties(obj)
	if err != nil {
		return nil, nil, err
	}

	refs := graph.NewAttrs()
	descs := graph.NewDescriptors()
	for _, p := range props {
		if p.Name == enc.realm.closureKey {
			continue
		}

		if p.Plain() {
			idx, err := enc.encode(p.Value)
			if err != nil {
				return nil, nil, err
			}
			refs.Set(p.Name, idx)
			continue
		}

		d := graph.Descriptor{
			Configurable: p.Configurable,
			Enumerable:   p.Enumerable,
			Writable:     p.Writable,
		}
		if p.Accessor {
			// A half is recorded when defined; an accessor with neither
			// still records its (undefined) getter to stay an accessor.
			if !goja.IsUndefined(p.Get) || goja.IsUndefined(p.Set) {
				idx, err := enc.encode(p.Get)
				if err != nil {
					return nil, nil, err
				}
				d.Get = graph.Ref(idx)
			}
			if !goja.IsUndefined(p.Set) {
				idx, err := enc.encode(p.Set)
				if err != nil {
					return nil, nil, err
				}
				d.Set = graph.Ref(idx)
			}
		} else {
			idx, err := enc.encode(p.Value)
			if err != nil {
				return nil, nil, err
			}
			d.Value = graph.Ref(idx)
		}
		descs.Set(p.Name, d)
	}
	return refs, descs, nil
}

// primitiveOf converts a non-object, non-symbol value.
func primitiveOf(v goja.Value) graph.Primitive {
	switch {
	case goja.IsUndefined(v):
		return graph.Undefined()
	case goja.IsNull(v):
		return graph.Null()
	}

	switch x := v.Export().(type) {
	case bool:
		return graph.Bool(x)
	case string:
		return graph.String(x)
	case int64:
		return graph.Int(x)
	case float64:
		return graph.Number(x)
	case *big.Int:
		return graph.BigInt(x.String())
	}
	return graph.String(v.String())
}
