package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowgraph/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                    `json:"valid"`
	Models []string                `json:"models,omitempty"`
	Errors []model.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-file]",
		Short: "Validate a model schema",
		Long: `Validate a YAML or CUE model schema without touching a database.

Checks names, key fields, relationship targets and join columns, and
reports every problem found. Defaults to the --schema file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Schema
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	schema, err := LoadSchemaFile(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Error())
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Loaded %d model(s) from %s", len(schema.Models), path)

	if errs := model.Validate(schema); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	names := make([]string, len(schema.Models))
	for i, m := range schema.Models {
		names[i] = m.Name
	}
	return outputValidateSuccess(formatter, names)
}

func outputValidateError(f *OutputFormatter, code, message string) error {
	if err := f.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(f *OutputFormatter, errs []model.ValidationError) error {
	if f.JSON() {
		if err := f.Success(ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
	} else {
		for _, e := range errs {
			fmt.Fprintf(f.Writer, "✗ %s\n", e.Error())
		}
		fmt.Fprintf(f.Writer, "\n%d error(s)\n", len(errs))
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: schema has %d error(s)", ErrCodeInvalid, len(errs)))
}

func outputValidateSuccess(f *OutputFormatter, models []string) error {
	if f.JSON() {
		return f.Success(ValidationResult{Valid: true, Models: models})
	}
	fmt.Fprintf(f.Writer, "✓ Schema valid: %d model(s)\n", len(models))
	return nil
}
