package codec

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/roach88/capsule/internal/graph"
)

// Decoder rebuilds live values from a graph.Graph.
//
// The memo table lives for one Decode call. Arrays, objects and
// functions are published to it before their children are decoded, so a
// reference back to a value under construction resolves to that same
// value.
type Decoder struct {
	realm *Realm

	g    *graph.Graph
	memo map[int]goja.Value

	// chained holds object records whose prototype chain is known to end.
	chained map[int]bool

	// placed lists the placeholders this call registered with the realm.
	placed []*goja.Object
}

// NewDecoder returns a decoder producing values in r.
func NewDecoder(r *Realm) *Decoder {
	return &Decoder{realm: r}
}

// Decode reconstructs the value rooted at g.Root. Errors are
// *graph.DeserializationError; no partial value is returned with one.
func (d *Decoder) Decode(g *graph.Graph) (goja.Value, error) {
	d.g = g
	d.memo = make(map[int]goja.Value)
	d.chained = make(map[int]bool)
	d.placed = nil

	var root goja.Value
	err := d.realm.engine.Try(func() error {
		var err error
		root, err = d.decode(g.Root)
		return err
	})
	if err != nil {
		for _, p := range d.placed {
			delete(d.realm.thunks, p)
		}
		var de *graph.DeserializationError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, graph.NewSynthesisError(-1, err)
	}

	d.realm.logger.Debug("graph decoded", "records", g.Len(), "root", g.Root)
	return root, nil
}

func (d *Decoder) decode(idx int) (goja.Value, error) {
	if v, ok := d.memo[idx]; ok {
		return v, nil
	}

	rec, err := d.g.At(idx)
	if err != nil {
		return nil, err
	}

	switch r := rec.(type) {
	case graph.Primitive:
		v, err := d.primitive(idx, r)
		if err != nil {
			return nil, err
		}
		d.memo[idx] = v
		return v, nil
	case graph.Array:
		return d.array(idx, r)
	case graph.Object:
		return d.object(idx, r)
	case graph.Function:
		return d.function(idx, r)
	case graph.Builtin:
		v, ok := d.realm.registry.ValueOf(r.Name)
		if !ok {
			return nil, graph.NewUnknownBuiltinError(idx, r.Name)
		}
		d.memo[idx] = v
		return v, nil
	case graph.Date:
		v, err := d.realm.engine.NewDate(r.Value)
		if err != nil {
			return nil, graph.NewSynthesisError(idx, err)
		}
		d.memo[idx] = v
		return v, nil
	case graph.Regex:
		v, err := d.regex(r.Value)
		if err != nil {
			return nil, graph.NewSynthesisError(idx, err)
		}
		d.memo[idx] = v
		return v, nil
	case nil:
		return nil, graph.NewUnrecognizedKindError(idx, "")
	default:
		return nil, graph.NewUnrecognizedKindError(idx, string(rec.Kind()))
	}
}

func (d *Decoder) primitive(idx int, p graph.Primitive) (goja.Value, error) {
	rt := d.realm.Runtime()

	switch p.Type {
	case graph.TypeUndefined:
		return goja.Undefined(), nil
	case graph.TypeNull:
		return goja.Null(), nil
	case graph.TypeBoolean:
		b, _ := p.Value.(bool)
		return rt.ToValue(b), nil
	case graph.TypeString:
		s, _ := p.Value.(string)
		return rt.ToValue(s), nil
	case graph.TypeNumber:
		switch n := p.Value.(type) {
		case int64:
			return rt.ToValue(n), nil
		case float64:
			return rt.ToValue(n), nil
		}
		return nil, graph.NewSynthesisError(idx, fmt.Errorf("number primitive holds %T", p.Value))
	case graph.TypeBigInt:
		digits, _ := p.Value.(string)
		n, ok := new(big.Int).SetString(digits, 10)
		if !ok {
			return nil, graph.NewSynthesisError(idx, fmt.Errorf("invalid bigint %q", digits))
		}
		return rt.ToValue(n), nil
	case graph.TypeSymbol:
		var desc *string
		if text, ok := p.Value.(string); ok {
			desc = &text
		}
		sym, err := d.realm.engine.NewSymbol(desc)
		if err != nil {
			return nil, graph.NewSynthesisError(idx, err)
		}
		return sym, nil
	}
	return nil, graph.NewSynthesisError(idx, fmt.Errorf("unknown primitive type %q", p.Type))
}

func (d *Decoder) array(idx int, r graph.Array) (goja.Value, error) {
	arr := d.realm.Runtime().NewArray()
	d.memo[idx] = arr

	for i, ref := range r.Refs {
		el, err := d.decode(ref)
		if err != nil {
			return nil, err
		}
		if err := arr.DefineDataProperty(strconv.Itoa(i), el, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

func (d *Decoder) object(idx int, r graph.Object) (goja.Value, error) {
	if !d.chained[idx] {
		if loop := graph.PrototypeLoop(d.g, idx); loop != nil {
			return nil, graph.NewPrototypeCycleError(idx, loop)
		}
		d.chained[idx] = true
	}

	proto, err := d.decode(r.Prototype)
	if err != nil {
		return nil, err
	}
	// The prototype's own attributes may already have led back here.
	if v, ok := d.memo[idx]; ok {
		return v, nil
	}

	protoObj, _ := proto.(*goja.Object)
	obj := d.realm.Runtime().CreateObject(protoObj)
	d.memo[idx] = obj

	if err := d.attributes(obj, r.Refs, r.Descriptions); err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *Decoder) function(idx int, r graph.Function) (goja.Value, error) {
	placeholder, cell, err := d.realm.newThunk(d.constructible(r))
	if err != nil {
		return nil, graph.NewSynthesisError(idx, err)
	}
	d.memo[idx] = placeholder

	snapshot, err := d.decode(r.Closure)
	if err != nil {
		return nil, err
	}
	names, values, err := d.captured(snapshot)
	if err != nil {
		return nil, err
	}

	impl, accessor, home, err := d.synthesize(r.Source, names, values)
	if err != nil {
		return nil, graph.NewSynthesisError(idx, err)
	}

	proto, err := d.decode(r.Prototype)
	if err != nil {
		return nil, err
	}
	if !goja.IsUndefined(proto) {
		// Class constructors have a read-only prototype; their instances
		// take the prototype from the placeholder (new.target) instead.
		if err := impl.Set("prototype", proto); err != nil {
			d.realm.logger.Debug("prototype not rebound", "record", idx, "error", err)
		}
		if err := placeholder.Set("prototype", proto); err != nil {
			return nil, err
		}
	}

	if err := cell.Set("impl", impl); err != nil {
		return nil, err
	}
	d.realm.thunks[placeholder] = &thunk{cell: cell, source: r.Source, snapshot: accessor, home: home}
	d.placed = append(d.placed, placeholder)
	d.realm.logger.Debug("placeholder filled", "record", idx, "captured", len(names))

	if err := d.attributes(placeholder, r.Refs, r.Descriptions); err != nil {
		return nil, err
	}
	return placeholder, nil
}

// constructible reports whether r records a prototype. The record is
// only peeked at; decoding it may lead back to r.
func (d *Decoder) constructible(r graph.Function) bool {
	rec, err := d.g.At(r.Prototype)
	if err != nil {
		return true
	}
	p, ok := rec.(graph.Primitive)
	return !ok || p.Type != graph.TypeUndefined
}

// captured lists the snapshot's own enumerable names in insertion order
// together with their values.
func (d *Decoder) captured(snapshot goja.Value) ([]string, []goja.Value, error) {
	obj, ok := snapshot.(*goja.Object)
	if !ok {
		return nil, nil, nil
	}
	names := obj.Keys()
	values := make([]goja.Value, len(names))
	for i, name := range names {
		values[i] = obj.Get(name)
	}
	return names, values, nil
}

// synthesize builds the implementation from source with names bound to
// values, and a live accessor over the same bindings. home is the
// implementation's home object for shorthand members, nil otherwise.
func (d *Decoder) synthesize(source string, names []string, values []goja.Value) (impl *goja.Object, accessor goja.Value, home *goja.Object, err error) {
	e := d.realm.engine

	factory, err := e.NewFunction(names, synthesisBody(source, names))
	if err != nil {
		return nil, nil, nil, err
	}
	res, err := e.Call(factory, nil, values...)
	if err != nil {
		return nil, nil, nil, err
	}

	pair, ok := res.(*goja.Object)
	if !ok {
		return nil, nil, nil, fmt.Errorf("synthesis returned %s", res)
	}
	first := pair.Get("0")
	if _, member := homeSource(source); member {
		inner, ok := first.(*goja.Object)
		if !ok {
			return nil, nil, nil, fmt.Errorf("member synthesis returned %s", first)
		}
		first = inner.Get("0")
		home, _ = inner.Get("1").(*goja.Object)
	}
	impl, ok = first.(*goja.Object)
	if !ok {
		return nil, nil, nil, fmt.Errorf("source does not evaluate to a function")
	}
	return impl, pair.Get("1"), home, nil
}

// regex parses /source/flags, splitting at the last slash.
func (d *Decoder) regex(text string) (*goja.Object, error) {
	last := strings.LastIndex(text, "/")
	if !strings.HasPrefix(text, "/") || last < 1 {
		return nil, fmt.Errorf("malformed regex literal %q", text)
	}
	return d.realm.engine.NewRegExp(text[1:last], text[last+1:])
}

// attributes installs refs as plain data attributes and descriptions with
// their recorded flags, in encoding order.
func (d *Decoder) attributes(obj *goja.Object, refs *graph.Attrs, descs *graph.Descriptors) error {
	for name, ref := range refs.All() {
		v, err := d.decode(ref)
		if err != nil {
			return err
		}
		if err := obj.DefineDataProperty(name, v, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
			return err
		}
		d.adopt(obj, v)
	}

	for name, desc := range descs.All() {
		if err := d.describe(obj, name, desc); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) describe(obj *goja.Object, name string, desc graph.Descriptor) error {
	configurable, enumerable := flag(desc.Configurable), flag(desc.Enumerable)

	if desc.IsAccessor() {
		get, err := d.optional(desc.Get)
		if err != nil {
			return err
		}
		set, err := d.optional(desc.Set)
		if err != nil {
			return err
		}
		d.adopt(obj, get)
		d.adopt(obj, set)
		return obj.DefineAccessorProperty(name, get, set, configurable, enumerable)
	}

	value, err := d.optional(desc.Value)
	if err != nil {
		return err
	}
	d.adopt(obj, value)
	return obj.DefineDataProperty(name, value, flag(desc.IsWritable()), configurable, enumerable)
}

// adopt makes obj the owner of v when v is a decoded shorthand member
// with no owner yet: super lookups in v start from obj's prototype.
func (d *Decoder) adopt(obj *goja.Object, v goja.Value) {
	fn, ok := v.(*goja.Object)
	if !ok {
		return
	}
	t, ok := d.realm.lookupThunk(fn)
	if !ok || t.home == nil || t.owned {
		return
	}
	t.owned = true
	if err := t.home.SetPrototype(obj.Prototype()); err != nil {
		d.realm.logger.Debug("home object not rebound", "error", err)
	}
}

// optional decodes ref, or returns undefined when it is absent.
func (d *Decoder) optional(ref *int) (goja.Value, error) {
	if ref == nil {
		return goja.Undefined(), nil
	}
	return d.decode(*ref)
}

func flag(b bool) goja.Flag {
	if b {
		return goja.FLAG_TRUE
	}
	return goja.FLAG_FALSE
}
