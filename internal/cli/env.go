package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/engine"
	"github.com/squadmint/treasury/internal/policy"
	"github.com/squadmint/treasury/internal/store"
)

// Env wires the store, policy, and engine for one command invocation.
type Env struct {
	Store  *store.Store
	Engine *engine.Engine
}

// OpenEnv opens the database and builds an engine under the configured
// deployment policy.
func OpenEnv(opts *RootOptions) (*Env, error) {
	pol := policy.Default()
	if opts.Policy != "" {
		var err error
		pol, err = policy.Load(opts.Policy)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load policy", err)
		}
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open database %s", opts.DB), err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &Env{
		Store:  st,
		Engine: engine.New(st, pol, nil, logger),
	}, nil
}

// Close releases the environment's database handle.
func (e *Env) Close() error {
	return e.Store.Close()
}

// resolveFund accepts either a hex fund address or an "owner/handle"
// reference and returns the fund address. The slash form derives the
// address the same way initialize did, so it always resolves.
func resolveFund(arg string) (addr.Address, error) {
	if owner, handle, ok := strings.Cut(arg, "/"); ok {
		if owner == "" || handle == "" {
			return addr.Address{}, NewExitError(ExitCommandError,
				fmt.Sprintf("fund reference %q needs <owner>/<handle>", arg))
		}
		return addr.Fund(handle, owner), nil
	}
	a, err := addr.Parse(arg)
	if err != nil {
		return addr.Address{}, WrapExitError(ExitCommandError, fmt.Sprintf("fund address %q", arg), err)
	}
	return a, nil
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// opError reports a refused operation in the configured format and
// returns the matching exit error.
func opError(f *OutputFormatter, err error) error {
	code := engine.CodeOf(err)
	if outErr := f.Error(code, err.Error()); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, code, err)
}
