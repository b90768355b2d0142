package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/capsule/internal/graph"
)

// ValidationResult holds the result of validation.
type ValidationResult struct {
	Valid  bool                    `json:"valid" yaml:"valid"`
	Errors []graph.ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Check a wire file without decoding it",
		Long: `Check a wire file against the graph schema and its structural rules:
the root and every reference point into the data array, no attribute is
both a plain reference and a description, and every description holds a
value or an accessor.

Exit codes:
  0 - Graph is valid
  1 - Validation findings
  2 - Command error (missing file)

Examples:
  capsule validate counter.json
  capsule validate counter.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, path string) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("cannot read %s", path), err)
	}

	errs := graph.ValidateJSON(data)
	loggerFromContext(cmd.Context()).Debug("graph validated", "path", path, "findings", len(errs))
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	if formatter.Structured() {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ Graph valid")
	return nil
}

// outputValidationErrors outputs every finding. Findings are a validation
// failure (exit code 1), not a command error.
func outputValidationErrors(formatter *OutputFormatter, errs []graph.ValidationError) error {
	if formatter.Structured() {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✗ Validation failed with %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(w, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
