package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <fund>",
		Short: "Show a fund's decision log",
		Long: `Show the fund's decided proposals in sequence order. The log is
append-only and gap-free: one record per decision, sequence 0 upward.

Example:
  treasury history alice/main`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fund, err := resolveFund(args[0])
			if err != nil {
				return err
			}
			env, err := OpenEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := formatter(rootOpts, cmd)
			views, err := env.Engine.History(cmd.Context(), fund)
			if err != nil {
				return opError(f, err)
			}
			return f.Success(views)
		},
	}
}

// VerifyResult is the verify command's output payload.
type VerifyResult struct {
	Fund      string   `json:"fund"`
	Decisions int      `json:"decisions"`
	OK        bool     `json:"ok"`
	Findings  []string `json:"findings,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <fund>",
		Short: "Verify a fund's audit history",
		Long: `Replay the fund's decision log against the derivation and invariant
rules: gap-free sequences, re-derivable proposal addresses, parallel
executor and vote arrays, and matching decided proposal records.

Exit codes:
  0 - history verifies clean
  1 - violations found

Example:
  treasury verify alice/main`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fund, err := resolveFund(args[0])
			if err != nil {
				return err
			}
			env, err := OpenEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := formatter(rootOpts, cmd)
			report, err := env.Engine.Verify(cmd.Context(), fund)
			if err != nil {
				return opError(f, err)
			}

			result := VerifyResult{
				Fund:      report.Fund.String(),
				Decisions: report.Decisions,
				OK:        report.OK(),
				Findings:  report.Findings,
			}
			if err := f.Success(result); err != nil {
				return err
			}
			if !result.OK {
				return NewExitError(ExitFailure,
					fmt.Sprintf("history verification found %d violations", len(result.Findings)))
			}
			return nil
		},
	}
}
