package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/capsule/internal/graph"
	"github.com/roach88/capsule/internal/store"
)

// shortID is how many ID characters the list table shows.
const shortID = 12

// StoredGraph is the structured output of store get.
type StoredGraph struct {
	ID    string          `json:"id" yaml:"id"`
	Graph json.RawMessage `json:"graph" yaml:"-"`
	Wire  string          `json:"-" yaml:"wire"`
}

// RemovedGraph is the structured output of store rm.
type RemovedGraph struct {
	ID      string   `json:"id" yaml:"id"`
	Labels  []string `json:"labels" yaml:"labels"`
	Evicted bool     `json:"evicted" yaml:"evicted"`
}

// NewStoreCommand creates the store command group.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Browse and remove stored graphs",
		Long: `Browse and remove the graphs persisted with encode --store.

The database location is store.path in capsule.yaml, or CAPSULE_STORE_PATH.`,
	}

	cmd.AddCommand(newStoreListCommand(rootOpts))
	cmd.AddCommand(newStoreGetCommand(rootOpts))
	cmd.AddCommand(newStoreRemoveCommand(rootOpts))

	return cmd
}

func newStoreListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored graphs in the order they were stored",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreList(cmd, rootOpts)
		},
	}
}

func newStoreGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id|label>",
		Short:         "Print a stored graph",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreGet(cmd, rootOpts, args[0])
		},
	}
}

func newStoreRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <id|label>",
		Short:         "Remove a stored graph, its labels and its cache entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreRemove(cmd, rootOpts, args[0])
		},
	}
}

func runStoreList(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "cannot load configuration", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "cannot open store", err)
	}
	defer st.Close()

	entries, err := st.List(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "cannot list graphs", err)
	}

	if formatter.Structured() {
		return formatter.Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No graphs stored.")
		return nil
	}
	t := newTable(w, true, "ID", "ROOT", "RECORDS", "LABELS")
	for _, e := range entries {
		id := e.ID
		if len(id) > shortID {
			id = id[:shortID]
		}
		t.addRow(id, strconv.Itoa(e.Root), strconv.Itoa(e.Records), strings.Join(e.Labels, ", "))
	}
	t.render()
	return nil
}

func runStoreGet(cmd *cobra.Command, opts *RootOptions, ref string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "cannot load configuration", err)
	}

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "cannot open store", err)
	}
	defer repo.Close()

	id, g, err := repo.load(ctx, ref)
	if err != nil {
		exit, code := classify(err)
		return formatter.Fail(exit, code, fmt.Sprintf("cannot load graph %s", ref), err)
	}
	wire, err := graph.MarshalIndent(g)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "cannot render graph", err)
	}

	if formatter.Structured() {
		return formatter.Success(StoredGraph{ID: id, Graph: wire, Wire: string(wire)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(wire))
	return nil
}

func runStoreRemove(cmd *cobra.Command, opts *RootOptions, ref string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "cannot load configuration", err)
	}

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "cannot open store", err)
	}
	defer repo.Close()

	id, labels, evicted, err := repo.remove(ctx, ref)
	if err != nil {
		exit, code := classify(err)
		return formatter.Fail(exit, code, fmt.Sprintf("cannot remove graph %s", ref), err)
	}

	if formatter.Structured() {
		return formatter.Success(RemovedGraph{ID: id, Labels: labels, Evicted: evicted})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Removed %s\n", id)
	if len(labels) > 0 {
		fmt.Fprintf(w, "  labels: %s\n", strings.Join(labels, ", "))
	}
	if evicted {
		fmt.Fprintln(w, "  evicted from cache")
	}
	return nil
}
