package treasury

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadmint/treasury/internal/addr"
)

// fundWithMembers builds an open fund with the given extra members and
// vault balance.
func fundWithMembers(t *testing.T, balance uint64, members ...string) *Fund {
	t.Helper()
	f := newTestFund(t, false)
	for _, m := range members {
		_, err := f.AddMember("owner", m)
		require.NoError(t, err)
	}
	f.VaultBalance = balance
	return f
}

func TestCreateProposal(t *testing.T) {
	f := fundWithMembers(t, 500, "m1")

	p, err := f.CreateProposal("m1", 100, "target")
	require.NoError(t, err)

	assert.True(t, f.HasActiveVote)
	assert.Same(t, p, f.Active)
	assert.Equal(t, addr.Proposal(f.Address, 0), p.Address)
	assert.Equal(t, uint64(0), p.Sequence)
	assert.Equal(t, []string{"m1"}, p.Executors, "proposer auto-votes")
	assert.Equal(t, []bool{true}, p.Votes)
	assert.Equal(t, uint64(0), f.Sequence, "creation does not bump the sequence")
}

func TestCreateProposalGuards(t *testing.T) {
	tests := []struct {
		name   string
		signer string
		amount uint64
		setup  func(f *Fund)
		want   ErrorCode
	}{
		{"non-member", "outsider", 100, nil, ErrCodeNotAMember},
		{"zero amount", "m1", 0, nil, ErrCodeBadAmount},
		{"amount exceeds vault", "m1", 1000, nil, ErrCodeInsufficientFunds},
		{
			"active vote exists", "m1", 100,
			func(f *Fund) {
				_, err := f.CreateProposal("owner", 50, "t")
				require.NoError(t, err)
			},
			ErrCodeActiveVoteExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fundWithMembers(t, 500, "m1")
			if tt.setup != nil {
				tt.setup(f)
			}
			hadVote := f.HasActiveVote
			balance := f.VaultBalance

			_, err := f.CreateProposal(tt.signer, tt.amount, "t")
			assert.True(t, IsCode(err, tt.want), "want %s, got %v", tt.want, err)
			assert.Equal(t, hadVote, f.HasActiveVote)
			assert.Equal(t, balance, f.VaultBalance)
		})
	}
}

func TestSubmitVoteApproves(t *testing.T) {
	// Scenario: 2 members, vault 500. M1 proposes 100, owner approves:
	// yes=2/2 crosses 51%, transfer executes, sequence bumps.
	f := fundWithMembers(t, 500, "m1")
	_, err := f.CreateProposal("m1", 100, "target")
	require.NoError(t, err)

	out, err := f.SubmitVote("owner", true)
	require.NoError(t, err)
	assert.True(t, out.Decided)
	assert.True(t, out.Approved)
	require.NotNil(t, out.Transfer)
	assert.Equal(t, f.Vault.String(), out.Transfer.From)
	assert.Equal(t, "target", out.Transfer.To)
	assert.Equal(t, uint64(100), out.Transfer.Amount)

	assert.Equal(t, uint64(400), f.VaultBalance)
	assert.False(t, f.HasActiveVote)
	assert.Nil(t, f.Active)
	assert.Equal(t, uint64(1), f.Sequence)

	require.NotNil(t, out.Decision)
	assert.Equal(t, uint64(0), out.Decision.Sequence)
	assert.Equal(t, []string{"m1", "owner"}, out.Decision.Executors)
	assert.Equal(t, []bool{true, true}, out.Decision.Votes)
}

func TestSubmitVoteRejects(t *testing.T) {
	f := fundWithMembers(t, 500, "m1", "m2")
	_, err := f.CreateProposal("m1", 100, "target")
	require.NoError(t, err)

	out, err := f.SubmitVote("owner", false)
	require.NoError(t, err)
	assert.False(t, out.Decided, "1 yes / 1 no of 3 decides nothing")

	out, err = f.SubmitVote("m2", false)
	require.NoError(t, err)
	assert.True(t, out.Decided)
	assert.False(t, out.Approved)
	assert.Nil(t, out.Transfer, "rejection moves no funds")

	assert.Equal(t, uint64(500), f.VaultBalance)
	assert.Equal(t, uint64(1), f.Sequence, "rejection also bumps the sequence")
	assert.False(t, f.HasActiveVote)
}

func TestSubmitVoteGuards(t *testing.T) {
	f := fundWithMembers(t, 500, "m1", "m2")
	_, err := f.CreateProposal("m1", 100, "target")
	require.NoError(t, err)

	_, err = f.SubmitVote("outsider", true)
	assert.True(t, IsCode(err, ErrCodeNotAMember))

	_, err = f.SubmitVote("m1", true)
	assert.True(t, IsCode(err, ErrCodeDuplicateVote), "proposer already voted at creation")

	out, err := f.SubmitVote("owner", true)
	require.NoError(t, err)
	require.True(t, out.Decided)

	// Late vote after the decision: the fund no longer has an active
	// proposal at the current sequence.
	_, err = f.SubmitVote("m2", true)
	assert.True(t, IsCode(err, ErrCodeProposalAlreadyDecided))
}

func TestSubmitVoteThresholdUsesCurrentMembers(t *testing.T) {
	// Membership grows mid-vote: the denominator for every subsequent
	// vote is the member count at evaluation time, not at creation.
	f := fundWithMembers(t, 500, "m1", "m2")
	_, err := f.CreateProposal("m1", 100, "target")
	require.NoError(t, err)

	// 2 yes of 3 members would decide (66% >= 51%), but the owner adds
	// a member first, so 2 yes of 4 (50%) does not.
	_, err = f.AddMember("owner", "m3")
	require.NoError(t, err)

	out, err := f.SubmitVote("m2", true)
	require.NoError(t, err)
	assert.False(t, out.Decided)
	assert.Equal(t, 2, out.Yes)

	// 3 of 4 (75%) decides.
	out, err = f.SubmitVote("m3", true)
	require.NoError(t, err)
	assert.True(t, out.Decided)
	assert.True(t, out.Approved)
}

func TestSubmitVoteExecutionUnaffordable(t *testing.T) {
	// If the deciding transfer cannot complete, the whole vote fails and
	// the proposal remains exactly as it was.
	f := fundWithMembers(t, 500, "m1")
	_, err := f.CreateProposal("m1", 400, "target")
	require.NoError(t, err)

	// Concurrent balance change (as observed by the host reload).
	f.VaultBalance = 300

	_, err = f.SubmitVote("owner", true)
	assert.True(t, IsCode(err, ErrCodeInsufficientFunds))

	assert.True(t, f.HasActiveVote)
	require.NotNil(t, f.Active)
	assert.Equal(t, []string{"m1"}, f.Active.Executors, "failed vote is not recorded")
	assert.False(t, f.Active.Decided)
	assert.Equal(t, uint64(0), f.Sequence)
}

func TestSequenceGapFreeAcrossDecisions(t *testing.T) {
	f := fundWithMembers(t, 1000, "m1")

	for i := 0; i < 3; i++ {
		p, err := f.CreateProposal("m1", 100, "target")
		require.NoError(t, err)
		assert.Equal(t, uint64(i), p.Sequence)
		assert.Equal(t, addr.Proposal(f.Address, uint64(i)), p.Address)

		out, err := f.SubmitVote("owner", true)
		require.NoError(t, err)
		require.True(t, out.Decided)
		assert.Equal(t, uint64(i+1), f.Sequence)
	}
	assert.Equal(t, uint64(700), f.VaultBalance)
}

func TestThresholdEdges(t *testing.T) {
	tests := []struct {
		members int
		yes     int
		decides bool
	}{
		{2, 1, false},  // 50%
		{2, 2, true},   // 100%
		{3, 2, true},   // 66%
		{4, 2, false},  // 50%
		{4, 3, true},   // 75%
		{15, 7, false}, // 46%
		{15, 8, true},  // 53%
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.yes, tt.members), func(t *testing.T) {
			f := newTestFund(t, false)
			for i := 1; i < tt.members; i++ {
				_, err := f.AddMember("owner", fmt.Sprintf("m%d", i))
				require.NoError(t, err)
			}
			f.VaultBalance = 100

			// Proposer is the owner; the proposal starts at yes=1.
			_, err := f.CreateProposal("owner", 10, "t")
			require.NoError(t, err)

			decided := false
			for i := 1; i < tt.yes; i++ {
				out, err := f.SubmitVote(fmt.Sprintf("m%d", i), true)
				require.NoError(t, err)
				decided = out.Decided
				if decided {
					require.Equal(t, tt.yes, out.Yes, "decided early")
					break
				}
			}
			assert.Equal(t, tt.decides, decided)
		})
	}
}

func TestSingleMemberFundIsStuck(t *testing.T) {
	// Creation records the proposer's vote but never evaluates the
	// threshold, and the proposer cannot vote twice. A one-member fund
	// can therefore never decide its own proposal; this is the stuck
	// state the host design notes call out.
	f := newTestFund(t, false)
	f.VaultBalance = 100

	_, err := f.CreateProposal("owner", 10, "t")
	require.NoError(t, err)

	_, err = f.SubmitVote("owner", true)
	assert.True(t, IsCode(err, ErrCodeDuplicateVote))
	assert.True(t, f.HasActiveVote)
}
