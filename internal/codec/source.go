package codec

import (
	"encoding/json"
	"strings"

	"github.com/roach88/capsule/internal/engine"
)

// extractMember turns a shorthand member definition into an expression by
// wrapping it in an object literal and pulling out the function it
// defines: the value for methods, the getter or setter for accessors.
// Reflect.ownKeys also finds computed symbol-keyed members.
const extractMember = `((o) => {
	const d = Object.getOwnPropertyDescriptor(o, Reflect.ownKeys(o)[0]);
	return d.get || d.set || d.value;
})({ %s })`

// memberHome is extractMember returning [member, literal]. The literal is
// the member's home object, where super lookups start.
const memberHome = `((o) => {
	const d = Object.getOwnPropertyDescriptor(o, Reflect.ownKeys(o)[0]);
	return [d.get || d.set || d.value, o];
})({ %s })`

// normalizeSource makes src, as produced by Function.prototype.toString,
// evaluable as a parenthesized expression.
//
// Function, arrow and class sources already are. Method shorthand
// (m() {}, async m() {}, *m() {}, [k]() {}) and accessor shorthand
// (get x() {}, set x(v) {}) are only valid inside an object literal, so
// they get wrapped in extractMember. Native code stays as it is; it
// cannot be synthesized either way.
//
// A wrapped member's home object is the wrapping literal. The decoder
// points that literal's prototype at the prototype of the first object
// the member is installed on, so super works for members installed
// where they were defined. Static class members and members reached
// only through variables keep an empty home and fail their super
// lookups.
func normalizeSource(src string) string {
	if engine.Compiles("(" + src + "\n)") {
		return src
	}
	wrapped := strings.Replace(extractMember, "%s", src, 1)
	if engine.Compiles(wrapped) {
		return wrapped
	}
	return src
}

// homeSource rewrites a source wrapped in extractMember into memberHome
// form. It reports false for any other source.
func homeSource(source string) (string, bool) {
	prefix, suffix, _ := strings.Cut(extractMember, "%s")
	member, ok := strings.CutPrefix(source, prefix)
	if !ok {
		return "", false
	}
	member, ok = strings.CutSuffix(member, suffix)
	if !ok {
		return "", false
	}
	return strings.Replace(memberHome, "%s", member, 1), true
}

// synthesisBody is the body of the function built with the Function
// constructor: its parameters are the captured names, and it returns
// the implementation together with a live accessor over those names.
// For shorthand members the first element is the [member, home] pair
// of memberHome instead of the bare implementation.
func synthesisBody(source string, names []string) string {
	if home, ok := homeSource(source); ok {
		source = home
	}

	var b strings.Builder
	b.WriteString("return [(\n")
	b.WriteString(source)
	b.WriteString("\n), function () { return {")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		key, _ := json.Marshal(name)
		b.Write(key)
		b.WriteString(": ")
		b.WriteString(name)
	}
	b.WriteString("}; }];")
	return b.String()
}
