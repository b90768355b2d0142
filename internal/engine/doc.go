// Package engine wraps the embedded ECMAScript runtime that capsule
// serializes values from and reconstructs values into.
//
// An Engine owns exactly one goja runtime. At construction it captures the
// intrinsics the codec relies on (Object.getOwnPropertyDescriptor,
// Function.prototype.toString, Array.isArray, the Function, Date and RegExp
// constructors). Scripts running later may overwrite the corresponding
// globals; introspection keeps using the captured originals.
//
// THREADING:
// goja runtimes are not goroutine safe. An Engine must only be used from
// the goroutine that owns it, and so must every value it hands out.
//
// EXCEPTIONS:
// goja reports script exceptions either as returned errors or, for
// methods such as Object.Get and Object.Keys, as panics carrying
// *goja.Exception. Methods on Engine always return them as errors.
package engine
