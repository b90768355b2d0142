package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/capsule/internal/graph"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Wire     string // Wire payload for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Wire != "" {
		fmt.Fprintf(&buf, "\nWire:\n%s\n", e.Wire)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertHolds:
		return assertHolds(result, a, actx)
	case AssertEquals:
		return assertEquals(result, a, actx)
	case AssertRecordCount:
		return assertRecordCount(result, a)
	case AssertRootKind:
		return assertRootKind(result, a, actx)
	case AssertDecodeError:
		return assertDecodeError(result, a)
	case AssertStable:
		return assertStable(result, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// evalExpr evaluates expr in the decoding realm.
func evalExpr(result *Result, a Assertion, actx *AssertionContext) (any, error) {
	if actx.Value == nil {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: "a decoded value",
			Actual:   fmt.Sprintf("decoding failed (%s)", result.DecodeError),
			Wire:     result.Wire,
		}
	}
	v, err := actx.Realm.Eval("assertion.js", a.Expr)
	if err != nil {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s to evaluate", a.Expr),
			Actual:   err.Error(),
			Wire:     result.Wire,
		}
	}
	return v.Export(), nil
}

func assertHolds(result *Result, a Assertion, actx *AssertionContext) error {
	got, err := evalExpr(result, a, actx)
	if err != nil {
		return err
	}
	if got != true {
		return &AssertionError{
			Type:     AssertHolds,
			Expected: fmt.Sprintf("%s to be true", a.Expr),
			Actual:   fmt.Sprintf("%v", got),
			Wire:     result.Wire,
		}
	}
	return nil
}

// assertEquals compares as JSON values, so YAML integers and script
// numbers of equal value match.
func assertEquals(result *Result, a Assertion, actx *AssertionContext) error {
	got, err := evalExpr(result, a, actx)
	if err != nil {
		return err
	}

	gotJSON, err := normalize(got)
	if err != nil {
		return fmt.Errorf("normalize actual value: %w", err)
	}
	wantJSON, err := normalize(a.Expect)
	if err != nil {
		return fmt.Errorf("normalize expected value: %w", err)
	}

	if !reflect.DeepEqual(gotJSON, wantJSON) {
		return &AssertionError{
			Type:     AssertEquals,
			Expected: fmt.Sprintf("%s = %v", a.Expr, wantJSON),
			Actual:   fmt.Sprintf("%v", gotJSON),
			Wire:     result.Wire,
		}
	}
	return nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func assertRecordCount(result *Result, a Assertion) error {
	if got := result.Total(); got != a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records", a.Count),
			Actual:   fmt.Sprintf("%d records", got),
			Wire:     result.Wire,
		}
	}
	return nil
}

func assertRootKind(result *Result, a Assertion, actx *AssertionContext) error {
	actual := "no graph"
	if g := actx.Graph; g != nil {
		if rec, err := g.At(g.Root); err == nil && rec != nil {
			if rec.Kind() == graph.Kind(a.Kind) {
				return nil
			}
			actual = string(rec.Kind())
		}
	}
	return &AssertionError{
		Type:     AssertRootKind,
		Expected: a.Kind,
		Actual:   actual,
		Wire:     result.Wire,
	}
}

func assertDecodeError(result *Result, a Assertion) error {
	if result.DecodeError != graph.ErrorCode(a.Code) {
		actual := string(result.DecodeError)
		if actual == "" {
			actual = "decoded without error"
		}
		return &AssertionError{
			Type:     AssertDecodeError,
			Expected: a.Code,
			Actual:   actual,
			Wire:     result.Wire,
		}
	}
	return nil
}

// assertStable compares the wire of the decoded value, as re-serialized
// straight after decoding, with the original graph.
func assertStable(result *Result, actx *AssertionContext) error {
	if actx.Value == nil {
		return &AssertionError{
			Type:     AssertStable,
			Expected: "a decoded value",
			Actual:   fmt.Sprintf("decoding failed (%s)", result.DecodeError),
		}
	}
	if actx.ReencodeErr != nil {
		return actx.ReencodeErr
	}

	if actx.Reencoded != result.Wire {
		return &AssertionError{
			Type:     AssertStable,
			Expected: result.Wire,
			Actual:   actx.Reencoded,
		}
	}
	return nil
}
