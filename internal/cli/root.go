package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/capsule/internal/codec"
	"github.com/roach88/capsule/internal/config"
)

// LabelGenerator names graphs stored without an explicit --label.
type LabelGenerator interface {
	Generate() string
}

type uuidLabels struct{}

func (uuidLabels) Generate() string { return uuid.NewString() }

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigPath string

	// Config is loaded from ConfigPath on first use unless set.
	Config *config.Config

	// Labels defaults to random UUIDs.
	Labels LabelGenerator
}

// NewRootCommand creates the root command for the capsule CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "capsule",
		Short: "capsule - serialize live JavaScript values",
		Long: `Serialize JavaScript value graphs, closures included, into a flat JSON
record list and reconstruct them later, in another engine instance.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return WrapExitError(ExitCommandError, ErrCodeInvalidConfig+": cannot load configuration", err)
			}
			if !cmd.Flags().Changed("format") {
				opts.Format = cfg.Output.Format
			}
			if !config.ValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %s", opts.Format, strings.Join(config.Formats, ", ")))
			}

			level := log.InfoLevel
			if opts.Verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: ./capsule.yaml, then ~/.config/capsule/capsule.yaml)")

	// Add subcommands
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// settings returns the configuration, loading it on first use.
func (o *RootOptions) settings() (*config.Config, error) {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		o.Config = cfg
	}
	return o.Config, nil
}

func (o *RootOptions) labels() LabelGenerator {
	if o.Labels == nil {
		return uuidLabels{}
	}
	return o.Labels
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newRealm creates a fresh realm configured from cfg, logging through l.
func newRealm(cfg *config.Config, l *log.Logger) (*codec.Realm, error) {
	return codec.NewRealm(
		codec.WithClosureKey(cfg.Closure.Key),
		codec.WithLogger(slogFrom(l)),
	)
}
