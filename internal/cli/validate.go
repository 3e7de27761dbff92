package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reflow/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Trees  int                        `json:"trees"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Cycles []compiler.CycleError      `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate tree specs without running them",
		Long: `Validate CUE tree specs: hierarchy, field wiring, invalidation
closure, and cycle analysis.

A spec passes when every declared dependency is covered by an
invalidation path and the invalidates graph is acyclic. Any cycle,
self-loops included, is a hard error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := NewFormatter(opts, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := ValidationResult{Trees: len(loadResult.Trees)}

	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
			})
			continue
		}
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "load",
			Message: err.Error(),
			Code:    ErrCodeGeneric,
		})
	}

	for _, spec := range loadResult.Trees {
		formatter.VerboseLog("Validating tree: %s", spec.Name)
		result.Errors = append(result.Errors, compiler.Validate(spec)...)
		result.Cycles = append(result.Cycles, compiler.AnalyzeCycles(spec)...)
	}

	if len(result.Errors) > 0 || len(result.Cycles) > 0 {
		return outputValidationFailure(formatter, result)
	}

	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d tree(s) valid\n", result.Trees)
	return nil
}

// outputValidateError outputs a single command-level error (exit 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationFailure outputs validation errors (exit 1).
func outputValidationFailure(formatter *OutputFormatter, result ValidationResult) error {
	total := len(result.Errors) + len(result.Cycles)

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    firstErrorCode(result),
				Message: fmt.Sprintf("validation failed with %d error(s)", total),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, cyc := range result.Cycles {
		fmt.Fprintf(formatter.Writer, "  %s\n", cyc.Error())
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
}

func firstErrorCode(result ValidationResult) string {
	if len(result.Errors) > 0 {
		return result.Errors[0].Code
	}
	return compiler.ErrCycle
}
