package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/roach88/capsule/internal/codec"
	"github.com/roach88/capsule/internal/graph"
)

// Harness runs scenarios. Each run uses two fresh realms: the one the
// value is built and serialized in, and the one it is decoded into, so
// nothing but the wire payload crosses between them.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to both realms. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the graph: evaluate and serialize the script, or parse the wire
// 2. Decode the graph into a fresh realm
// 3. Evaluate assertions against the graph and the decoded value
//
// A returned error means the scenario could not be run at all (the script
// threw, the wire is not JSON). Failed assertions are reported in the
// result instead.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	result := NewResult()

	g, err := h.build(scenario)
	var de *graph.DeserializationError
	switch {
	case errors.As(err, &de):
		// Wire payloads are allowed to be undecodable; that is what
		// decode_error assertions check.
		result.DecodeError = de.Code
	case err != nil:
		return nil, err
	}

	actx := &AssertionContext{Graph: g}
	if g != nil {
		if err := h.describe(g, result); err != nil {
			return nil, err
		}
		if err := h.decode(g, actx, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"records", result.Total(),
	)
	return result, nil
}

// build produces the graph under test.
func (h *Harness) build(scenario *Scenario) (*graph.Graph, error) {
	if scenario.Wire != "" {
		return graph.Parse([]byte(scenario.Wire))
	}

	source, err := codec.NewRealm(codec.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create source realm: %w", err)
	}
	v, err := source.Eval(scenario.Name+".js", scenario.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to run script: %w", err)
	}
	g, err := source.Serialize(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize: %w", err)
	}
	return g, nil
}

// describe records the graph's wire form, ID and statistics.
func (h *Harness) describe(g *graph.Graph, result *Result) error {
	wire, err := graph.MarshalIndent(g)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	id, err := graph.ID(g)
	if err != nil {
		return fmt.Errorf("failed to compute graph ID: %w", err)
	}

	result.Wire = string(wire)
	result.ID = id
	result.Records = g.Stats()
	return nil
}

// decode rebuilds g in a fresh realm and binds it to "value" there. The
// decoded value is re-serialized right away, before any assertion can
// call into it and change captured state.
func (h *Harness) decode(g *graph.Graph, actx *AssertionContext, result *Result) error {
	target, err := codec.NewRealm(codec.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("failed to create target realm: %w", err)
	}
	actx.Realm = target

	v, err := target.Decode(g)
	if err != nil {
		var de *graph.DeserializationError
		if !errors.As(err, &de) {
			return err
		}
		result.DecodeError = de.Code
		return nil
	}

	actx.Value = v
	actx.Reencoded, actx.ReencodeErr = reencode(target, v)
	return target.Runtime().Set("value", v)
}

func reencode(r *codec.Realm, v goja.Value) (string, error) {
	again, err := r.Serialize(v)
	if err != nil {
		return "", fmt.Errorf("re-serialize: %w", err)
	}
	wire, err := graph.MarshalIndent(again)
	if err != nil {
		return "", fmt.Errorf("marshal re-serialized graph: %w", err)
	}
	return string(wire), nil
}

// AssertionContext carries what assertions inspect.
type AssertionContext struct {
	// Graph is the graph under test; nil when the wire failed to parse.
	Graph *graph.Graph

	// Realm is the decoding realm.
	Realm *codec.Realm

	// Value is the decoded root; nil when decoding failed.
	Value goja.Value

	// Reencoded is the wire of Value serialized again straight after
	// decoding, and ReencodeErr the failure doing so.
	Reencoded   string
	ReencodeErr error
}
