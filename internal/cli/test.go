package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/bibcite/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // golden file directory
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run resolution scenarios",
		Long: `Run YAML resolution scenarios.

Each scenario replays marker, settle and bibliography events against a
fresh resolver, checks its assertions, and compares the trace with
<golden-dir>/<name>.golden when that file exists. The golden directory
defaults to "golden" next to the scenarios directory.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  bibcite test ./testdata/scenarios
  bibcite test ./testdata/scenarios --filter "deferred_*"
  bibcite test ./testdata/scenarios --update
  bibcite test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(filepath.Clean(scenariosDir)), "golden")
	}

	scenarioFiles, err := harness.FindScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, goldenDir, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile, goldenDir string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	name := filepath.Base(scenarioFile)
	report := func(r ScenarioResult) ScenarioResult {
		if opts.Format != "json" {
			w := cmd.OutOrStdout()
			if r.Pass {
				fmt.Fprintf(w, "✓ %s\n", r.Name)
			} else {
				fmt.Fprintf(w, "✗ %s\n", r.Name)
				for _, e := range r.Errors {
					fmt.Fprintf(w, "  %s\n", e)
				}
			}
		}
		return r
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return report(ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)}})
	}
	name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return report(ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("execution failed: %v", err)}})
	}

	trace, err := harness.MarshalTrace(scenario.Name, scenario.ContextID, result)
	if err != nil {
		return report(ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to marshal trace: %v", err)}})
	}

	goldenPath := filepath.Join(goldenDir, scenario.Name+".golden")
	if opts.Update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return report(ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to create golden directory: %v", err)}})
		}
		if err := os.WriteFile(goldenPath, trace, 0o644); err != nil {
			return report(ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to write golden file: %v", err)}})
		}
		if opts.Format != "json" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (golden updated)\n", name)
		}
		return ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}
	}

	errs := append([]string(nil), result.Errors...)
	golden, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No golden file: assertions only.
	case err != nil:
		errs = append(errs, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, trace):
		errs = append(errs, "trace does not match golden file (run with --update to regenerate)")
	}

	return report(ScenarioResult{Name: name, Pass: len(errs) == 0, Errors: errs})
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
