package engine

import (
	"github.com/dop251/goja"
)

// Property is a snapshot of one own string-keyed attribute descriptor.
type Property struct {
	Name string

	// Accessor is true for get/set descriptors.
	Accessor bool

	// Value is set for data descriptors.
	Value goja.Value

	// Get and Set are set for accessor descriptors; a missing half is
	// undefined.
	Get goja.Value
	Set goja.Value

	// Writable is nil for accessor descriptors, which carry no such field.
	Writable *bool

	Configurable bool
	Enumerable   bool
}

// Plain reports whether p is a data attribute that is configurable,
// writable and enumerable, the shape an ordinary assignment creates.
func (p Property) Plain() bool {
	return !p.Accessor && p.Writable != nil && *p.Writable && p.Configurable && p.Enumerable
}

// OwnProperties returns every own string-keyed attribute of obj in
// property order (integer keys ascending, then insertion order).
// Symbol-keyed attributes are not included.
func (e *Engine) OwnProperties(obj *goja.Object) ([]Property, error) {
	var names []string
	if err := e.Try(func() error {
		names = obj.GetOwnPropertyNames()
		return nil
	}); err != nil {
		return nil, err
	}

	props := make([]Property, 0, len(names))
	for _, name := range names {
		p, ok, err := e.OwnProperty(obj, name)
		if err != nil {
			return nil, err
		}
		if ok {
			props = append(props, p)
		}
	}
	return props, nil
}

// OwnProperty returns the own attribute name of obj, if present.
func (e *Engine) OwnProperty(obj *goja.Object, name string) (Property, bool, error) {
	res, err := e.getOwnPropertyDescriptor(goja.Undefined(), obj, e.rt.ToValue(name))
	if err != nil {
		return Property{}, false, err
	}
	if goja.IsUndefined(res) {
		return Property{}, false, nil
	}

	var p Property
	err = e.Try(func() error {
		p = readDescriptor(name, res.ToObject(e.rt))
		return nil
	})
	if err != nil {
		return Property{}, false, err
	}
	return p, true, nil
}

func readDescriptor(name string, d *goja.Object) Property {
	p := Property{
		Name:         name,
		Configurable: truthy(d.Get("configurable")),
		Enumerable:   truthy(d.Get("enumerable")),
	}

	get, set := d.Get("get"), d.Get("set")
	if get != nil || set != nil {
		p.Accessor = true
		p.Get = orUndefined(get)
		p.Set = orUndefined(set)
		return p
	}

	p.Value = orUndefined(d.Get("value"))
	if w := d.Get("writable"); w != nil {
		writable := w.ToBoolean()
		p.Writable = &writable
	}
	return p
}

// truthy treats a missing field (nil) as false.
func truthy(v goja.Value) bool {
	return v != nil && v.ToBoolean()
}

func orUndefined(v goja.Value) goja.Value {
	if v == nil {
		return goja.Undefined()
	}
	return v
}
