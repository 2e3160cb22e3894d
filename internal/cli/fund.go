package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/squadmint/treasury/internal/engine"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Gated   bool
	Open    bool
	Deposit uint64
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <owner> <handle>",
		Short: "Create a fund",
		Long: `Create a fund at the address derived from (handle, owner), with the
owner as its only member.

Membership mode follows the deployment policy unless --gated or --open
overrides it. With --deposit the owner's own account seeds the vault in
the same transaction.

Examples:
  treasury init alice main
  treasury init alice main --open --deposit 500`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Gated, "gated", false, "require escrowed join requests for membership")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "allow direct member adds without escrow")
	cmd.Flags().Uint64Var(&opts.Deposit, "deposit", 0, "initial vault deposit from the owner's account")
	cmd.MarkFlagsMutuallyExclusive("gated", "open")

	return cmd
}

func runInit(opts *InitOptions, owner, handle string, cmd *cobra.Command) error {
	env, err := OpenEnv(opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	p := engine.InitializeParams{
		Owner:          owner,
		Handle:         handle,
		InitialDeposit: opts.Deposit,
	}
	if opts.Gated || opts.Open {
		gated := opts.Gated
		p.Gated = &gated
	}

	f := formatter(opts.RootOptions, cmd)
	view, err := env.Engine.Initialize(cmd.Context(), p)
	if err != nil {
		return opError(f, err)
	}
	return f.Success(view)
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <fund>",
		Short: "Show a fund's current state",
		Long: `Show a fund's members, vault balance, pending join requests, and any
active proposal. The fund argument is either the hex address or the
<owner>/<handle> reference it derives from.

Examples:
  treasury show alice/main
  treasury show 34b895df4064fe1177d73a37...`,
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
			view, err := env.Engine.ShowFund(cmd.Context(), fund)
			if err != nil {
				return opError(f, err)
			}
			return f.Success(view)
		},
	}
	return cmd
}

// parseAmount parses a positional token amount argument.
func parseAmount(arg string) (uint64, error) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "amount must be a non-negative integer", err)
	}
	return n, nil
}
