package cli

import (
	"github.com/spf13/cobra"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/engine"
)

// NewProposeCommand creates the propose command.
func NewProposeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "propose <fund> <signer> <amount> <target>",
		Short: "Propose a vault transfer",
		Long: `Open a transfer proposal at the fund's current sequence. Any member
may propose; the proposer's yes vote is recorded at creation. Exactly
one proposal may be pending per fund.

Example:
  treasury propose alice/main bob 100 vendor`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fund, err := resolveFund(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			env, err := OpenEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := formatter(rootOpts, cmd)
			view, err := env.Engine.CreateProposal(cmd.Context(), engine.ProposeParams{
				Fund:   fund,
				Signer: args[1],
				Amount: amount,
				Target: args[3],
			})
			if err != nil {
				return opError(f, err)
			}
			return f.Success(view)
		},
	}
}

// VoteOptions holds flags for the vote command.
type VoteOptions struct {
	*RootOptions
	Approve  bool
	Reject   bool
	Proposal string
}

// NewVoteCommand creates the vote command.
func NewVoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vote <fund> <signer>",
		Short: "Vote on the pending proposal",
		Long: `Record a vote on the fund's pending proposal. When either side
reaches 51% of current members the proposal is decided; an approved
decision executes the vault transfer, appends the audit record, and
bumps the sequence in the same transaction.

With --proposal the engine checks the given address against the
proposal derived from the fund's current sequence, refusing stale or
substituted addresses.

Examples:
  treasury vote alice/main alice --approve
  treasury vote alice/main carol --reject
  treasury vote alice/main carol --approve --proposal 460820842d2c...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVote(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Approve, "approve", false, "vote yes")
	cmd.Flags().BoolVar(&opts.Reject, "reject", false, "vote no")
	cmd.Flags().StringVar(&opts.Proposal, "proposal", "", "resolved proposal address to verify")
	cmd.MarkFlagsOneRequired("approve", "reject")
	cmd.MarkFlagsMutuallyExclusive("approve", "reject")

	return cmd
}

func runVote(opts *VoteOptions, fundArg, signer string, cmd *cobra.Command) error {
	fund, err := resolveFund(fundArg)
	if err != nil {
		return err
	}

	p := engine.VoteParams{
		Fund:    fund,
		Signer:  signer,
		Approve: opts.Approve,
	}
	if opts.Proposal != "" {
		proposal, err := addr.Parse(opts.Proposal)
		if err != nil {
			return WrapExitError(ExitCommandError, "parse --proposal", err)
		}
		p.Proposal = proposal
	}

	env, err := OpenEnv(opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	f := formatter(opts.RootOptions, cmd)
	view, err := env.Engine.SubmitAndExecute(cmd.Context(), p)
	if err != nil {
		return opError(f, err)
	}
	return f.Success(view)
}
