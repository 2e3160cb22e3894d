package treasury

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadmint/treasury/internal/addr"
)

func newTestFund(t *testing.T, gated bool) *Fund {
	t.Helper()
	fundAddr := addr.Fund("squad", "owner")
	vault := addr.Vault(addr.SchemeTokenVault, fundAddr)
	return NewFund(fundAddr, vault, "owner", "squad", gated)
}

func TestNewFundInitialState(t *testing.T) {
	f := newTestFund(t, true)

	assert.Equal(t, []string{"owner"}, f.Members)
	assert.Equal(t, uint64(0), f.Sequence)
	assert.False(t, f.HasActiveVote)
	assert.Nil(t, f.Active)
	assert.Empty(t, f.Joins)
}

func TestAddMemberDirect(t *testing.T) {
	// Scenario: open fund, owner adds a member directly.
	f := newTestFund(t, false)

	tr, err := f.AddMember("owner", "m1")
	require.NoError(t, err)
	assert.Nil(t, tr, "open-mode add moves no funds")
	assert.Equal(t, []string{"owner", "m1"}, f.Members)
}

func TestAddMemberGuards(t *testing.T) {
	tests := []struct {
		name      string
		signer    string
		candidate string
		want      ErrorCode
	}{
		{"non-owner signer", "m1", "m2", ErrCodeUnauthorized},
		{"candidate already a member", "owner", "m1", ErrCodeAlreadyMember},
		{"owner re-added", "owner", "owner", ErrCodeAlreadyMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFund(t, false)
			_, err := f.AddMember("owner", "m1")
			require.NoError(t, err)

			before := append([]string(nil), f.Members...)
			_, err = f.AddMember(tt.signer, tt.candidate)
			assert.True(t, IsCode(err, tt.want), "want %s, got %v", tt.want, err)
			assert.Equal(t, before, f.Members, "guard failure must not mutate")
		})
	}
}

func TestAddMemberCapacity(t *testing.T) {
	f := newTestFund(t, false)
	for i := 1; i < MaxMembers; i++ {
		_, err := f.AddMember("owner", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}
	require.Len(t, f.Members, MaxMembers)

	_, err := f.AddMember("owner", "m16")
	assert.True(t, IsCode(err, ErrCodeMaxMembersReached))
	assert.Len(t, f.Members, MaxMembers)
}

func TestAddMemberGatedRequiresEscrow(t *testing.T) {
	f := newTestFund(t, true)

	_, err := f.AddMember("owner", "c1")
	assert.True(t, IsCode(err, ErrCodeNoPendingJoinRequest))
	assert.Equal(t, []string{"owner"}, f.Members)
}

func TestAddMemberGatedSettlesEscrow(t *testing.T) {
	f := newTestFund(t, true)
	escrow := addr.Join(f.Address, "c1")
	_, err := f.InitiateJoin("c1", escrow, 100)
	require.NoError(t, err)

	tr, err := f.AddMember("owner", "c1")
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, escrow.String(), tr.From)
	assert.Equal(t, f.Vault.String(), tr.To)
	assert.Equal(t, uint64(100), tr.Amount)

	assert.Equal(t, uint64(100), f.VaultBalance)
	assert.Equal(t, []string{"owner", "c1"}, f.Members)
	assert.Empty(t, f.Joins, "approval closes the escrow")
}

func TestRejectMember(t *testing.T) {
	// Scenario: candidate deposits 100, owner rejects, deposit returns.
	f := newTestFund(t, true)
	escrow := addr.Join(f.Address, "c1")
	_, err := f.InitiateJoin("c1", escrow, 100)
	require.NoError(t, err)

	tr, err := f.RejectMember("owner", "c1")
	require.NoError(t, err)
	assert.Equal(t, escrow.String(), tr.From)
	assert.Equal(t, "c1", tr.To)
	assert.Equal(t, uint64(100), tr.Amount)

	assert.Equal(t, []string{"owner"}, f.Members, "rejected candidate is never added")
	assert.Empty(t, f.Joins)
	assert.Equal(t, uint64(0), f.VaultBalance, "rejection never touches the vault")
}

func TestRejectMemberGuards(t *testing.T) {
	f := newTestFund(t, true)
	escrow := addr.Join(f.Address, "c1")
	_, err := f.InitiateJoin("c1", escrow, 100)
	require.NoError(t, err)

	_, err = f.RejectMember("c1", "c1")
	assert.True(t, IsCode(err, ErrCodeUnauthorized))

	_, err = f.RejectMember("owner", "c2")
	assert.True(t, IsCode(err, ErrCodeNoPendingJoinRequest))

	require.Len(t, f.Joins, 1, "failed rejections leave the escrow pending")
}

func TestMembersNeverDuplicated(t *testing.T) {
	f := newTestFund(t, false)
	for _, m := range []string{"m1", "m2", "m3"} {
		_, err := f.AddMember("owner", m)
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for _, m := range f.Members {
		assert.False(t, seen[m], "duplicate member %s", m)
		seen[m] = true
	}
	assert.GreaterOrEqual(t, len(f.Members), 1)
	assert.LessOrEqual(t, len(f.Members), MaxMembers)
}
