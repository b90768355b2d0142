package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Ordered is an insertion-ordered name → V mapping.
// The zero value and a nil *Ordered are both empty and ready to read.
type Ordered[V any] struct {
	m *orderedmap.OrderedMap[string, V]
}

// Attrs maps attribute names to value indices.
type Attrs = Ordered[int]

// Descriptors maps attribute names to full attribute descriptors.
type Descriptors = Ordered[Descriptor]

// NewAttrs returns an empty Attrs.
func NewAttrs() *Attrs { return &Attrs{} }

// NewDescriptors returns an empty Descriptors.
func NewDescriptors() *Descriptors { return &Descriptors{} }

// Set inserts or replaces name. Replacing keeps the original position.
func (o *Ordered[V]) Set(name string, v V) {
	if o.m == nil {
		o.m = orderedmap.New[string, V]()
	}
	o.m.Set(name, v)
}

// Get returns the value stored under name.
func (o *Ordered[V]) Get(name string) (V, bool) {
	if o == nil || o.m == nil {
		var zero V
		return zero, false
	}
	return o.m.Get(name)
}

// Has reports whether name is present.
func (o *Ordered[V]) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Len returns the number of entries.
func (o *Ordered[V]) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// All iterates entries in insertion order.
func (o *Ordered[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if o == nil || o.m == nil {
			return
		}
		for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Names returns the keys in insertion order.
func (o *Ordered[V]) Names() []string {
	names := make([]string, 0, o.Len())
	for name := range o.All() {
		names = append(names, name)
	}
	return names
}

// MarshalJSON writes a JSON object in insertion order. Empty maps encode
// as {} rather than null so records always carry both attribute buckets.
func (o *Ordered[V]) MarshalJSON() ([]byte, error) {
	if o.Len() == 0 {
		return []byte("{}"), nil
	}
	return o.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object keeping key order. Keys are decoded by
// encoding/json so escaped names round-trip exactly.
func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	o.m = orderedmap.New[string, V]()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		o.m.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
