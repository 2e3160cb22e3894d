package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/squadmint/treasury/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on scenario name)
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
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against a fresh in-memory engine.

Each scenario executes its operation flow, checks every expect clause,
and validates the final-state assertions. The database configured with
--db is not touched.

Exit codes:
  0 - all scenarios passed
  1 - one or more scenarios failed
  2 - command error (invalid paths, malformed scenarios)

Examples:
  treasury test ./scenarios
  treasury test ./scenarios --filter "vote_*"
  treasury test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on name")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "find scenarios", err)
	}

	f := formatter(opts.RootOptions, cmd)
	result := TestResult{Scenarios: []ScenarioResult{}}

	for _, path := range files {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("load %s", path), err)
		}
		if opts.Filter != "" {
			match, globErr := filepath.Match(opts.Filter, scenario.Name)
			if globErr != nil {
				return WrapExitError(ExitCommandError, "invalid --filter pattern", globErr)
			}
			if !match {
				continue
			}
		}

		f.VerboseLog("running scenario %s (%s)", scenario.Name, path)
		run, err := harness.Run(scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", scenario.Name), err)
		}

		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   scenario.Name,
			Pass:   run.Pass,
			Errors: run.Errors,
		})
		result.Total++
		if run.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		for _, s := range result.Scenarios {
			status := "PASS"
			if !s.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", status, s.Name)
			for _, msg := range s.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", msg)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d scenarios: %d passed, %d failed\n",
			result.Total, result.Passed, result.Failed)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

// findScenarioFiles lists YAML files under the directory, sorted for
// stable run order.
func findScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
