package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/capsule/internal/graph"
)

// maxSourceWidth bounds the function source shown per row.
const maxSourceWidth = 48

// RecordRow describes one record of a graph.
type RecordRow struct {
	Index  int        `json:"index" yaml:"index"`
	Kind   graph.Kind `json:"kind" yaml:"kind"`
	Detail string     `json:"detail" yaml:"detail"`
}

// InspectResult is the structured output of the inspect command.
type InspectResult struct {
	ID      string             `json:"id" yaml:"id"`
	Root    int                `json:"root" yaml:"root"`
	Stats   map[graph.Kind]int `json:"stats" yaml:"stats"`
	Records []RecordRow        `json:"records" yaml:"records"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "inspect <graph.json|id|label>",
		Short: "List the records of a graph",
		Long: `List every record of a graph with its index, kind and references,
without reconstructing any value.

Examples:
  capsule inspect counter.json
  capsule inspect counter --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, rootOpts, args[0], noColor || color.NoColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runInspect(cmd *cobra.Command, opts *RootOptions, ref string, noColor bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "cannot load configuration", err)
	}

	id, g, err := loadGraph(ctx, cfg, logger, ref)
	if err != nil {
		exit, code := classify(err)
		return formatter.Fail(exit, code, fmt.Sprintf("cannot load graph %s", ref), err)
	}

	result := InspectResult{
		ID:      id,
		Root:    g.Root,
		Stats:   g.Stats(),
		Records: make([]RecordRow, 0, g.Len()),
	}
	for i, rec := range g.Data {
		result.Records = append(result.Records, RecordRow{Index: i, Kind: rec.Kind(), Detail: detail(rec)})
	}

	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Graph %s  root=%d  %s\n\n", id, g.Root, statsLine(result.Stats))

	t := newTable(w, noColor, "#", "KIND", "DETAIL")
	t.style(1, kindColor)
	for _, row := range result.Records {
		idx := strconv.Itoa(row.Index)
		if row.Index == g.Root {
			idx += "*"
		}
		t.addRow(idx, string(row.Kind), row.Detail)
	}
	t.render()
	return nil
}

// kindColor picks the color of a kind cell.
func kindColor(cell string) *color.Color {
	switch graph.Kind(cell) {
	case graph.KindFunction:
		return color.New(color.FgMagenta)
	case graph.KindObject:
		return color.New(color.FgBlue)
	case graph.KindArray:
		return color.New(color.FgGreen)
	case graph.KindBuiltin:
		return color.New(color.FgCyan)
	case graph.KindDate, graph.KindRegex:
		return color.New(color.FgYellow)
	}
	return nil
}

func statsLine(stats map[graph.Kind]int) string {
	parts := make([]string, 0, len(stats))
	for _, k := range graph.Kinds {
		if n := stats[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	return strings.Join(parts, " ")
}

// detail renders what a record holds, references as #index.
func detail(rec graph.Record) string {
	switch r := rec.(type) {
	case graph.Primitive:
		return primitiveDetail(r)
	case graph.Array:
		return "[" + joinRefs(r.Refs) + "]"
	case graph.Object:
		return fmt.Sprintf("proto=#%d%s", r.Prototype, attrsDetail(r.Refs, r.Descriptions))
	case graph.Function:
		return fmt.Sprintf("%s closure=#%d proto=#%d%s",
			shorten(r.Source), r.Closure, r.Prototype, attrsDetail(r.Refs, r.Descriptions))
	case graph.Builtin:
		return r.Name
	case graph.Date:
		return r.Value
	case graph.Regex:
		return r.Value
	}
	return ""
}

func primitiveDetail(p graph.Primitive) string {
	switch p.Type {
	case graph.TypeUndefined, graph.TypeNull:
		return string(p.Type)
	case graph.TypeString:
		text, _ := json.Marshal(p.Value)
		return string(text)
	case graph.TypeBigInt:
		return fmt.Sprintf("%vn", p.Value)
	case graph.TypeSymbol:
		if p.Value == nil {
			return "Symbol()"
		}
		return fmt.Sprintf("Symbol(%v)", p.Value)
	}
	return fmt.Sprint(p.Value)
}

func attrsDetail(refs *graph.Attrs, descs *graph.Descriptors) string {
	var b strings.Builder
	if refs != nil && refs.Len() > 0 {
		b.WriteString(" {")
		first := true
		for name, idx := range refs.All() {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s: #%d", name, idx)
		}
		b.WriteString("}")
	}
	if descs != nil && descs.Len() > 0 {
		fmt.Fprintf(&b, " described: %s", strings.Join(descs.Names(), ", "))
	}
	return b.String()
}

func joinRefs(refs []int) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = "#" + strconv.Itoa(r)
	}
	return strings.Join(parts, ", ")
}

// shorten flattens source text to one line and truncates it.
func shorten(src string) string {
	one := strings.Join(strings.Fields(src), " ")
	runes := []rune(one)
	if len(runes) <= maxSourceWidth {
		return one
	}
	return string(runes[:maxSourceWidth-1]) + "…"
}
