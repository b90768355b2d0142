package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/dop251/goja"
	"github.com/spf13/cobra"

	"github.com/roach88/capsule/internal/codec"
	"github.com/roach88/capsule/internal/engine"
	"github.com/roach88/capsule/internal/graph"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Call bool   // invoke the decoded function
	Args string // JSON array of call arguments
}

// ValueSummary describes a live value for display.
type ValueSummary struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text" yaml:"text"`
}

// DecodeResult is the structured output of the decode command.
type DecodeResult struct {
	ID     string        `json:"id" yaml:"id"`
	Value  ValueSummary  `json:"value" yaml:"value"`
	Result *ValueSummary `json:"result,omitempty" yaml:"result,omitempty"`
}

// DecodeErrorDetails carries the fields of a deserialization error.
type DecodeErrorDetails struct {
	Code  graph.ErrorCode `json:"code" yaml:"code"`
	Index int             `json:"index" yaml:"index"`
	Kind  string          `json:"kind,omitempty" yaml:"kind,omitempty"`
	Name  string          `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <graph.json|id|label>",
		Short: "Reconstruct a serialized value",
		Long: `Reconstruct the root value of a graph in a fresh engine and describe it.

The graph is read from a file when one exists at the given path, and
otherwise looked up in the store by content ID or label.

Exit codes:
  0 - Value reconstructed (and called, with --call)
  1 - Graph cannot be deserialized, or the call threw
  2 - Command error (unknown graph, invalid --args)

Examples:
  capsule decode counter.json
  capsule decode counter --call
  capsule decode adder --call --args '[2, 3]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Call, "call", false, "call the decoded function")
	cmd.Flags().StringVar(&opts.Args, "args", "[]", "call arguments as a JSON array")

	return cmd
}

func runDecode(cmd *cobra.Command, opts *DecodeOptions, ref string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "cannot load configuration", err)
	}

	var callArgs []any
	if opts.Call {
		if err := json.Unmarshal([]byte(opts.Args), &callArgs); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, "--args must be a JSON array", err)
		}
	}

	id, g, err := loadGraph(ctx, cfg, logger, ref)
	if err != nil {
		exit, code := classify(err)
		return formatter.Fail(exit, code, fmt.Sprintf("cannot load graph %s", ref), err)
	}

	realm, err := newRealm(cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "cannot create engine", err)
	}
	value, err := realm.Decode(g)
	if err != nil {
		return decodeFailure(formatter, err)
	}

	result := DecodeResult{ID: id, Value: summarize(realm, value)}

	if opts.Call {
		if !engine.IsCallable(value) {
			return formatter.Fail(ExitCommandError, ErrCodeNotCallable,
				fmt.Sprintf("root value is a %s, not a function", result.Value.Type), nil)
		}
		rt := realm.Runtime()
		args := make([]goja.Value, len(callArgs))
		for i, a := range callArgs {
			args[i] = rt.ToValue(a)
		}
		ret, err := realm.Engine().Call(value, goja.Undefined(), args...)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeCallFailed, "decoded function threw", err)
		}
		s := summarize(realm, ret)
		result.Result = &s
	}

	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Decoded %s\n", id)
	fmt.Fprintf(w, "  %s: %s\n", result.Value.Type, result.Value.Text)
	if result.Result != nil {
		fmt.Fprintf(w, "→ %s: %s\n", result.Result.Type, result.Result.Text)
	}
	return nil
}

// decodeFailure reports a deserialization error with its code and record.
func decodeFailure(formatter *OutputFormatter, err error) error {
	var de *graph.DeserializationError
	if !errors.As(err, &de) {
		return formatter.Fail(ExitFailure, ErrCodeDecodeFailed, "cannot decode graph", err)
	}
	_ = formatter.Error(ErrCodeDecodeFailed, de.Error(), DecodeErrorDetails{
		Code:  de.Code,
		Index: de.Index,
		Kind:  de.Kind,
		Name:  de.Name,
	})
	return WrapExitError(ExitFailure, ErrCodeDecodeFailed+": cannot decode graph", err)
}

// summarize names the type of v and renders it briefly. Plain data is
// rendered as JSON; values JSON cannot express (cycles, functions) by
// their class.
func summarize(realm *codec.Realm, v goja.Value) ValueSummary {
	switch {
	case v == nil || goja.IsUndefined(v):
		return ValueSummary{Type: "undefined", Text: "undefined"}
	case goja.IsNull(v):
		return ValueSummary{Type: "null", Text: "null"}
	}

	if sym, ok := v.(*goja.Symbol); ok {
		return ValueSummary{Type: "symbol", Text: "Symbol(" + sym.String() + ")"}
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		switch x := v.Export().(type) {
		case bool:
			return ValueSummary{Type: "boolean", Text: v.String()}
		case string:
			text, _ := json.Marshal(x)
			return ValueSummary{Type: "string", Text: string(text)}
		case *big.Int:
			return ValueSummary{Type: "bigint", Text: x.String() + "n"}
		}
		return ValueSummary{Type: "number", Text: v.String()}
	}

	e := realm.Engine()
	if engine.IsCallable(obj) {
		name := obj.Get("name")
		if name == nil || name.String() == "" {
			return ValueSummary{Type: "function", Text: "(anonymous)"}
		}
		return ValueSummary{Type: "function", Text: name.String()}
	}
	switch obj.ClassName() {
	case "Date":
		return ValueSummary{Type: "date", Text: e.DateText(obj)}
	case "RegExp":
		text, _ := e.RegExpText(obj)
		return ValueSummary{Type: "regex", Text: text}
	}

	typ := "object"
	if isArray, _ := e.IsArray(obj); isArray {
		typ = "array"
	}
	var text []byte
	err := e.Try(func() error {
		var err error
		text, err = obj.MarshalJSON()
		return err
	})
	if err != nil {
		return ValueSummary{Type: typ, Text: "[" + strings.ToLower(obj.ClassName()) + " (not JSON-serializable)]"}
	}
	return ValueSummary{Type: typ, Text: string(text)}
}
