package graph

import (
	"math"
)

// Kind is the wire tag of a content record.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindArray     Kind = "array"
	KindFunction  Kind = "function"
	KindObject    Kind = "object"
	KindBuiltin   Kind = "builtin"
	KindDate      Kind = "date"
	KindRegex     Kind = "regex"
)

// Kinds lists every recognized record kind in wire order.
var Kinds = []Kind{KindPrimitive, KindArray, KindFunction, KindObject, KindBuiltin, KindDate, KindRegex}

// Valid reports whether k is one of the seven recognized kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Record is a sealed interface over the seven content record kinds.
// Only Primitive, Array, Object, Function, Builtin, Date and Regex implement it.
type Record interface {
	Kind() Kind
	record() // Sealed
}

// PrimitiveType distinguishes scalar values that share a JSON representation.
type PrimitiveType string

const (
	TypeUndefined PrimitiveType = "undefined"
	TypeNull      PrimitiveType = "null"
	TypeBoolean   PrimitiveType = "boolean"
	TypeNumber    PrimitiveType = "number"
	TypeString    PrimitiveType = "string"
	TypeBigInt    PrimitiveType = "bigint"
	TypeSymbol    PrimitiveType = "symbol"
)

// Primitive carries a non-reference scalar by literal value.
//
// Value holds nil (undefined, null), bool, int64 or float64 (number),
// or string (string, bigint decimal digits, symbol description). A
// symbol created without a description holds nil.
type Primitive struct {
	Type  PrimitiveType
	Value any
}

// Array is an ordered sequence; Refs[i] is the index of element i.
type Array struct {
	Refs []int
}

// Object is a structured value with a single inheritance link.
type Object struct {
	Prototype    int
	Refs         *Attrs
	Descriptions *Descriptors
}

// Function is a callable value carried as source text plus the index of
// its captured-environment snapshot.
type Function struct {
	Source       string
	Closure      int
	Prototype    int
	Refs         *Attrs
	Descriptions *Descriptors
}

// Builtin names a well-known runtime primitive resolved through a registry.
type Builtin struct {
	Name string
}

// Date is a point in time in canonical textual form.
type Date struct {
	Value string
}

// Regex is a pattern in literal form, delimiters and flags included.
type Regex struct {
	Value string
}

func (Primitive) Kind() Kind { return KindPrimitive }
func (Array) Kind() Kind     { return KindArray }
func (Object) Kind() Kind    { return KindObject }
func (Function) Kind() Kind  { return KindFunction }
func (Builtin) Kind() Kind   { return KindBuiltin }
func (Date) Kind() Kind      { return KindDate }
func (Regex) Kind() Kind     { return KindRegex }

func (Primitive) record() {}
func (Array) record()     {}
func (Object) record()    {}
func (Function) record()  {}
func (Builtin) record()   {}
func (Date) record()      {}
func (Regex) record()     {}

// Descriptor is the metadata of one attribute that does not fit the plain
// configurable/writable/enumerable data shape. Get, Set and Value are
// indices into the graph.
//
// Writable is only meaningful for data descriptors and is nil when the
// source descriptor did not carry the field (accessor descriptors never do).
type Descriptor struct {
	Get          *int  `json:"get,omitempty"`
	Set          *int  `json:"set,omitempty"`
	Value        *int  `json:"value,omitempty"`
	Configurable bool  `json:"configurable"`
	Writable     *bool `json:"writable,omitempty"`
	Enumerable   bool  `json:"enumerable"`
}

// IsAccessor reports whether d describes a getter/setter pair.
func (d Descriptor) IsAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// IsWritable reports the writable flag, treating an absent flag as false.
func (d Descriptor) IsWritable() bool {
	return d.Writable != nil && *d.Writable
}

// Ref returns a pointer to idx, for building descriptors.
func Ref(idx int) *int {
	return &idx
}

// Flag returns a pointer to b, for building descriptors.
func Flag(b bool) *bool {
	return &b
}

// Undefined returns the undefined primitive.
func Undefined() Primitive { return Primitive{Type: TypeUndefined} }

// Null returns the null primitive.
func Null() Primitive { return Primitive{Type: TypeNull} }

// Bool returns a boolean primitive.
func Bool(b bool) Primitive { return Primitive{Type: TypeBoolean, Value: b} }

// String returns a string primitive.
func String(s string) Primitive { return Primitive{Type: TypeString, Value: s} }

// BigInt returns a bigint primitive from its decimal digits.
func BigInt(digits string) Primitive { return Primitive{Type: TypeBigInt, Value: digits} }

// Symbol returns a symbol primitive carrying only its description.
func Symbol(description string) Primitive { return Primitive{Type: TypeSymbol, Value: description} }

// UndescribedSymbol returns a symbol primitive for a symbol created
// without a description.
func UndescribedSymbol() Primitive { return Primitive{Type: TypeSymbol} }

// Int returns an integral number primitive.
func Int(n int64) Primitive { return Primitive{Type: TypeNumber, Value: n} }

// maxSafeInteger is 2^53, the largest magnitude float64 holds exactly.
const maxSafeInteger = 1 << 53

// Number returns a number primitive. Integral values within the exactly
// representable range are stored as int64; everything else, including NaN,
// the infinities and negative zero, stays float64.
func Number(f float64) Primitive {
	if f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger && !(f == 0 && math.Signbit(f)) {
		return Int(int64(f))
	}
	return Primitive{Type: TypeNumber, Value: f}
}

// Float returns the numeric value of a number primitive.
func (p Primitive) Float() (float64, bool) {
	switch v := p.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Children returns every index r refers to, in a stable order:
// prototype and closure first, then refs, then descriptor indices.
func Children(r Record) []int {
	switch rec := r.(type) {
	case Array:
		return append([]int(nil), rec.Refs...)
	case Object:
		out := []int{rec.Prototype}
		return appendAttrChildren(out, rec.Refs, rec.Descriptions)
	case Function:
		out := []int{rec.Closure, rec.Prototype}
		return appendAttrChildren(out, rec.Refs, rec.Descriptions)
	}
	return nil
}

func appendAttrChildren(out []int, refs *Attrs, descs *Descriptors) []int {
	for _, idx := range refs.All() {
		out = append(out, idx)
	}
	for _, d := range descs.All() {
		for _, p := range []*int{d.Get, d.Set, d.Value} {
			if p != nil {
				out = append(out, *p)
			}
		}
	}
	return out
}
