package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found in a bibliography.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Source   string            `json:"source"`
	Valid    bool              `json:"valid"`
	Entries  int               `json:"entries"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// RenderText prints a one-line verdict followed by warnings.
func (r ValidationResult) RenderText(w io.Writer) {
	if r.Valid {
		fmt.Fprintf(w, "✓ %s: %d entries\n", r.Source, r.Entries)
	} else {
		fmt.Fprintf(w, "✗ %s\n", r.Source)
		for _, e := range r.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "  %d:%d [%s] %s\n", e.Line, e.Column, e.Code, e.Message)
			} else {
				fmt.Fprintf(w, "  [%s] %s\n", e.Code, e.Message)
			}
		}
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <bibliography>",
		Short: "Check that a bibliography parses",
		Long: `Check that a bibliography parses without building anything else.

A single malformed entry makes the whole bibliography unusable, so the
first error is reported with its position.

Exit codes:
  0 - Bibliography is valid
  1 - Bibliography does not parse
  2 - Command error (file not found, unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadBibliographyFile(path)
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) || (le.Code != ErrCodeParseFailed && le.Code != ErrCodeInvalidData) {
			return outputValidateError(formatter, loadErrorCode(err), err.Error())
		}
		return outputValidationErrors(formatter, ValidationResult{
			Source: path,
			Errors: []ValidationIssue{{
				Code:    le.Code,
				Message: le.Message,
				Line:    le.Line,
				Column:  le.Column,
			}},
		})
	}

	result := ValidationResult{
		Source:  path,
		Valid:   true,
		Entries: len(loaded.Keys),
	}
	for _, key := range loaded.Duplicates {
		result.Warnings = append(result.Warnings, fmt.Sprintf("duplicate key %s ignored", key))
	}
	return formatter.Success(result)
}

// outputValidateError reports a command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports an invalid bibliography (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
	} else {
		result.RenderText(formatter.Writer)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
