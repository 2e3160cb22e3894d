package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "treasury", cmd.Use)
	assert.Contains(t, cmd.Long, "51% majority")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"init", "credit", "balance", "add-member", "reject-member",
		"join", "propose", "vote", "show", "history", "verify", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "treasury.db", dbFlag.DefValue)

	policyFlag := cmd.PersistentFlags().Lookup("policy")
	require.NotNil(t, policyFlag)
	assert.Equal(t, "", policyFlag.DefValue)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)

	for _, name := range []string{"gated", "open", "deposit"} {
		assert.NotNil(t, initCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestVoteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	voteCmd, _, err := cmd.Find([]string{"vote"})
	require.NoError(t, err)

	for _, name := range []string{"approve", "reject", "proposal"} {
		assert.NotNil(t, voteCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	db := filepath.Join(t.TempDir(), "t.db")
	_, _, err := execute(t, "--db", db, "--format", "xml", "init", "alice", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// execute runs the root command with captured output.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
