package cli

import (
	"github.com/spf13/cobra"

	"github.com/squadmint/treasury/internal/engine"
)

// NewAddMemberCommand creates the add-member command.
func NewAddMemberCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-member <fund> <signer> <candidate>",
		Short: "Add a member (owner only)",
		Long: `Add a candidate to the fund's member list. Only the owner may sign.

For a gated fund this approves the candidate's pending join request and
settles its escrowed deposit into the vault. For an open fund it is a
direct add.

Example:
  treasury add-member alice/main alice bob`,
		Args:          cobra.ExactArgs(3),
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
			view, err := env.Engine.AddMember(cmd.Context(), engine.MemberParams{
				Fund:      fund,
				Signer:    args[1],
				Candidate: args[2],
			})
			if err != nil {
				return opError(f, err)
			}
			return f.Success(view)
		},
	}
}

// NewRejectMemberCommand creates the reject-member command.
func NewRejectMemberCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reject-member <fund> <signer> <candidate>",
		Short: "Reject a pending join request (owner only)",
		Long: `Reject a candidate's pending join request. The escrowed deposit
settles back to the candidate's own account and the request closes.

Example:
  treasury reject-member alice/main alice carol`,
		Args:          cobra.ExactArgs(3),
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
			view, err := env.Engine.RejectMember(cmd.Context(), engine.MemberParams{
				Fund:      fund,
				Signer:    args[1],
				Candidate: args[2],
			})
			if err != nil {
				return opError(f, err)
			}
			return f.Success(view)
		},
	}
}

// NewJoinCommand creates the join command.
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "join <fund> <candidate> <deposit>",
		Short: "Apply to join a gated fund",
		Long: `Apply for membership in a gated fund. The deposit moves from the
candidate's own account into an escrow holding account derived from
(fund, candidate) and stays there until the owner approves or rejects.

Example:
  treasury join alice/main carol 100`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fund, err := resolveFund(args[0])
			if err != nil {
				return err
			}
			deposit, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			env, err := OpenEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := formatter(rootOpts, cmd)
			view, err := env.Engine.InitiateJoinRequest(cmd.Context(), engine.JoinParams{
				Fund:      fund,
				Candidate: args[1],
				Amount:    deposit,
			})
			if err != nil {
				return opError(f, err)
			}
			return f.Success(view)
		},
	}
}
