package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeterministic(t *testing.T) {
	a := Derive([]byte("squad"), []byte("owner-1"))
	b := Derive([]byte("squad"), []byte("owner-1"))
	assert.Equal(t, a, b, "same seeds must derive the same address")
}

func TestDeriveSeedBoundaries(t *testing.T) {
	// Length-prefixed seeds: shifting bytes across a seed boundary
	// must change the address.
	a := Derive([]byte("ab"), []byte("c"))
	b := Derive([]byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)
}

func TestDeriveDistinctAcrossKinds(t *testing.T) {
	fund := Fund("squad", "owner-1")

	addrs := map[string]Address{
		"fund":          fund,
		"vault-account": Vault(SchemeTokenAccount, fund),
		"vault-vault":   Vault(SchemeTokenVault, fund),
		"join":          Join(fund, "candidate-1"),
		"proposal-0":    Proposal(fund, 0),
		"proposal-1":    Proposal(fund, 1),
	}

	seen := map[Address]string{}
	for name, a := range addrs {
		if prev, ok := seen[a]; ok {
			t.Fatalf("address collision between %s and %s", prev, name)
		}
		seen[a] = name
	}
}

func TestFundNormalizesHandle(t *testing.T) {
	// U+00E9 (precomposed) vs e + U+0301 (combining acute).
	composed := "café"
	decomposed := "café"
	assert.Equal(t, Fund(composed, "owner"), Fund(decomposed, "owner"))
}

func TestProposalSequenceChangesAddress(t *testing.T) {
	fund := Fund("squad", "owner-1")
	assert.NotEqual(t, Proposal(fund, 0), Proposal(fund, 1))
	// Sequence is encoded as 8 LE bytes, so values beyond one byte
	// still derive distinct addresses.
	assert.NotEqual(t, Proposal(fund, 256), Proposal(fund, 1))
}

func TestParseRoundTrip(t *testing.T) {
	a := Fund("squad", "owner-1")
	parsed, err := Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse("not-hex")
	assert.Error(t, err)

	_, err = Parse("abcd")
	assert.Error(t, err, "short input must be rejected")
}

func TestVaultSchemeValid(t *testing.T) {
	assert.True(t, SchemeTokenAccount.Valid())
	assert.True(t, SchemeTokenVault.Valid())
	assert.False(t, VaultScheme("shoebox").Valid())
}
