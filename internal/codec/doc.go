// Package codec converts live script values to graph.Graph and back.
//
// A Realm bundles the engine, the builtin registry and the closure-snapshot
// convention. Serialize walks a value depth-first, giving every distinct
// object one record and resolving cycles through indices reserved before
// the object's children are visited. Decode walks the other way, building
// placeholders for functions first so that a function reachable from its
// own closure, prototype or attributes resolves to itself.
//
// Functions are rebuilt from their source text with the engine's Function
// constructor, their captured variables passed in as parameters. The
// placeholder handed back forwards calls (and construction) to that
// synthesized implementation, and remembers its source so it serializes
// again as the original function.
//
// Example:
//
//	r, _ := codec.NewRealm()
//	v, _ := r.Eval("counter.js", `let n = 1; capture(() => n, () => ({n}))`)
//	data, _ := r.Marshal(v)
//
//	other, _ := codec.NewRealm()
//	fn, _ := other.Unmarshal(data) // fn() === 1
package codec
