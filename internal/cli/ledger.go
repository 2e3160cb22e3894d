package cli

import (
	"database/sql"

	"github.com/spf13/cobra"
)

// BalanceResult is the ledger query output payload.
type BalanceResult struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// NewCreditCommand creates the credit command.
func NewCreditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "credit <account> <amount>",
		Short: "Credit an identity's ledger account",
		Long: `Credit tokens to an identity's own ledger account. This is the local
deposit path: funded accounts can seed vaults at init and back join
deposits.

Example:
  treasury credit alice 1000`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			env, err := OpenEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			f := formatter(rootOpts, cmd)
			err = env.Store.WithTx(ctx, func(tx *sql.Tx) error {
				return env.Store.Credit(ctx, tx, args[0], amount)
			})
			if err != nil {
				return opError(f, err)
			}
			balance, err := env.Store.Balance(ctx, args[0])
			if err != nil {
				return opError(f, err)
			}
			return f.Success(BalanceResult{Account: args[0], Balance: balance})
		},
	}
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Read a ledger account balance",
		Long: `Read an account's ledger balance. Accepts identity strings and hex
account addresses (vaults, escrows). Absent accounts read zero.

Example:
  treasury balance alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := OpenEnv(rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			f := formatter(rootOpts, cmd)
			balance, err := env.Engine.Balance(ctx, args[0])
			if err != nil {
				return opError(f, err)
			}
			return f.Success(BalanceResult{Account: args[0], Balance: balance})
		},
	}
}
