// Package harness runs round-trip conformance scenarios for the codec.
//
// A scenario builds a value (from a script, or from a raw wire payload),
// serializes it in one realm, decodes it into a fresh realm and checks the
// result with assertions written against the decoded value.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	script: |
//	  let n = 0;
//	  capture(() => ++n, () => ({n}));
//	assertions:
//	  - type: holds
//	    expr: "value() === 1"
//	  - type: equals
//	    expr: "typeof value"
//	    expect: function
//	  - type: root_kind
//	    kind: function
//	  - type: stable
//
// A scenario carries either script or wire, never both. Scenarios built
// from wire usually assert a decode_error.
//
// # Assertion Types
//
//   - holds: expr evaluates to true in the decoding realm
//   - equals: expr evaluates to expect (compared as JSON values)
//   - record_count: the graph has exactly count records
//   - root_kind: the root record has the given kind
//   - decode_error: decoding fails with the given error code
//   - stable: re-serializing the decoded value yields the same wire bytes
//
// In expressions, the decoded root value is bound to the global "value".
//
// # Golden Files
//
// RunWithGolden compares the scenario's wire payload against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
