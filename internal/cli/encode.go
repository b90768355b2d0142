package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/capsule/internal/graph"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Output string // write wire JSON here instead of stdout
	Store  bool   // persist the graph
	Label  string // label for the stored graph (implies --store)
}

// EncodeResult is the structured output of the encode command.
type EncodeResult struct {
	ID      string             `json:"id" yaml:"id"`
	Root    int                `json:"root" yaml:"root"`
	Records map[graph.Kind]int `json:"records" yaml:"records"`
	Output  string             `json:"output,omitempty" yaml:"output,omitempty"`
	Stored  bool               `json:"stored" yaml:"stored"`
	Label   string             `json:"label,omitempty" yaml:"label,omitempty"`
	Graph   json.RawMessage    `json:"graph,omitempty" yaml:"-"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <script.js>",
		Short: "Serialize the value a script evaluates to",
		Long: `Run a script in a fresh engine and serialize its completion value.

The script can attach closure snapshots with the capture helper:

  let count = 0;
  capture(() => ++count, () => ({ count }))

Exit codes:
  0 - Value serialized
  2 - Command error (missing script, script threw, store unavailable)

Examples:
  capsule encode counter.js
  capsule encode counter.js --output counter.json
  capsule encode counter.js --store --label counter`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the graph to this file")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "persist the graph in the store")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label the stored graph (default: random UUID)")

	return cmd
}

func runEncode(cmd *cobra.Command, opts *EncodeOptions, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "cannot load configuration", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("script not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("cannot read %s", path), err)
	}

	p := newProgress(logger)
	realm, err := newRealm(cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "cannot create engine", err)
	}
	value, err := realm.Eval(path, string(src))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScriptFailed, fmt.Sprintf("script %s failed", path), err)
	}
	g, err := realm.Serialize(value)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "cannot serialize value", err)
	}
	wire, err := graph.MarshalIndent(g)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "cannot render graph", err)
	}
	p.done(fmt.Sprintf("Encoded %d records", g.Len()))

	id, err := graph.ID(g)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEncodeFailed, "cannot hash graph", err)
	}
	result := EncodeResult{
		ID:      id,
		Root:    g.Root,
		Records: g.Stats(),
		Output:  opts.Output,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(wire, '\n'), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("cannot write %s", opts.Output), err)
		}
		logger.Debug("graph written", "path", opts.Output)
	}

	if opts.Store || opts.Label != "" {
		label := opts.Label
		if label == "" {
			label = opts.labels().Generate()
		}
		repo, err := openRepository(ctx, cfg, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "cannot open store", err)
		}
		defer repo.Close()

		_, inserted, err := repo.save(ctx, g, label)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "cannot store graph", err)
		}
		logger.Info("graph stored", "id", id, "label", label, "new", inserted)
		result.Stored = true
		result.Label = label
	}

	if formatter.Structured() {
		if opts.Output == "" {
			result.Graph = wire
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if opts.Output == "" {
		fmt.Fprintln(w, string(wire))
		return nil
	}
	fmt.Fprintf(w, "✓ Wrote %d records to %s\n", g.Len(), opts.Output)
	if result.Stored {
		fmt.Fprintf(w, "  id:    %s\n", id)
		fmt.Fprintf(w, "  label: %s\n", result.Label)
	}
	return nil
}
