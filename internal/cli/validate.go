package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickdrive/gearbox/internal/traindef"
)

// ValidationResult holds validation results for one train definition.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Train    string                     `json:"train,omitempty"`
	Gears    int                        `json:"gears,omitempty"`
	SpecHash string                     `json:"spec_hash,omitempty"`
	Errors   []traindef.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <train.cue>",
		Short: "Validate a train definition",
		Long: `Compile a CUE train definition and check it against the engine's
configuration rules without building live gears.

Exit codes:
  0 - Definition is valid
  1 - Validation findings
  2 - Command error (file missing, CUE syntax error, etc.)

Examples:
  gearbox validate ./trains/wall.cue
  gearbox validate ./trains/wall.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	spec, err := traindef.LoadFile(path)
	if err != nil {
		return outputValidateError(formatter, loadErrorCode(err), err.Error())
	}

	formatter.VerboseLog("Compiled train %q from %s", spec.Name, path)

	validationErrors := traindef.Validate(spec)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, spec)
}

// loadErrorCode classifies a LoadFile failure: missing files are E005,
// anything the CUE compiler rejected is E002.
func loadErrorCode(err error) string {
	var compileErr *traindef.CompileError
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrCodeNotFound
	case errors.As(err, &compileErr):
		return ErrCodeLoad
	default:
		return ErrCodeGeneric
	}
}

// countGears returns the number of gears declared under g, inclusive.
func countGears(g *traindef.GearSpec) int {
	n := 1
	for i := range g.Gears {
		n += countGears(&g.Gears[i])
	}
	return n
}

// outputValidateSuccess reports a valid definition. The spec hash is
// included so the definition can be matched against journaled runs.
func outputValidateSuccess(formatter *OutputFormatter, spec *traindef.TrainSpec) error {
	hash, err := traindef.Hash(spec)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	result := ValidationResult{
		Valid:    true,
		Train:    spec.Name,
		Gears:    countGears(&spec.Drive),
		SpecHash: hash,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Train %q valid (%d gears)\n", result.Train, result.Gears)
	fmt.Fprintf(formatter.Writer, "  spec hash: %s\n", result.SpecHash)
	return nil
}

// outputValidateError outputs a single load/compile error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load failures are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs validation findings.
func outputValidationErrors(formatter *OutputFormatter, errs []traindef.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation findings = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	fmt.Fprintln(formatter.Writer)

	// Validation findings = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
