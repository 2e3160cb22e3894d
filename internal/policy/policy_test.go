package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadmint/treasury/internal/addr"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, addr.SchemeTokenVault, p.VaultScheme)
	assert.True(t, p.GatedByDefault)
	assert.Equal(t, uint64(0), p.MinJoinDeposit)
}

func TestParseOverrides(t *testing.T) {
	p, err := Parse([]byte(`
vaultScheme:    "token_account"
gatedByDefault: false
minJoinDeposit: 100
`), "test.cue")
	require.NoError(t, err)
	assert.Equal(t, addr.SchemeTokenAccount, p.VaultScheme)
	assert.False(t, p.GatedByDefault)
	assert.Equal(t, uint64(100), p.MinJoinDeposit)
}

func TestParsePartialTakesDefaults(t *testing.T) {
	p, err := Parse([]byte(`minJoinDeposit: 50`), "test.cue")
	require.NoError(t, err)
	assert.Equal(t, addr.SchemeTokenVault, p.VaultScheme)
	assert.True(t, p.GatedByDefault)
	assert.Equal(t, uint64(50), p.MinJoinDeposit)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown vault scheme", `vaultScheme: "shoebox"`},
		{"negative deposit", `minJoinDeposit: -5`},
		{"unknown field", `voteThreshold: 60`},
		{"wrong type", `gatedByDefault: "yes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "test.cue")
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.cue")
	require.NoError(t, os.WriteFile(path, []byte(`gatedByDefault: false`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.False(t, p.GatedByDefault)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
