package treasury

import "github.com/squadmint/treasury/internal/addr"

// MaxMembers is the capacity bound of a fund's member list.
const MaxMembers = 15

// thresholdPercent is the share of current members required to decide a
// proposal, on either side. Evaluated fresh at every vote.
const thresholdPercent = 51

// Transfer is an atomic debit/credit instruction emitted by a governance
// operation. The host applies it in the same transaction as the state
// change; if the debit cannot complete, the whole operation is rolled
// back. Accounts are identity keys or derived-address strings.
type Transfer struct {
	From   string
	To     string
	Amount uint64
}

// Fund is the multisig aggregate: one fund per (owner, handle) pair.
//
// INVARIANTS:
//   - Members has length in [1, MaxMembers]; the owner is Members[0].
//   - Members contains no duplicate identity.
//   - HasActiveVote is true iff Active is non-nil, and Active.Sequence
//     always equals Sequence while pending.
//   - Sequence increments by exactly 1 per decided proposal and never
//     otherwise changes.
type Fund struct {
	Address addr.Address
	Owner   string
	Handle  string
	Gated   bool

	Members       []string
	HasActiveVote bool
	Sequence      uint64

	Vault addr.Address
	// VaultBalance mirrors the vault's ledger balance as loaded by the
	// host. The ledger row stays authoritative; this copy exists so the
	// affordability guards run inside the state machine.
	VaultBalance uint64

	Joins  []*JoinRequest
	Active *Proposal
}

// NewFund creates a fund with the owner as its only member.
func NewFund(fundAddr, vault addr.Address, owner, handle string, gated bool) *Fund {
	return &Fund{
		Address: fundAddr,
		Owner:   owner,
		Handle:  handle,
		Gated:   gated,
		Members: []string{owner},
		Vault:   vault,
	}
}

// IsMember reports whether the identity is in the member list.
func (f *Fund) IsMember(id string) bool {
	for _, m := range f.Members {
		if m == id {
			return true
		}
	}
	return false
}

// AddMember appends a candidate to the member list. Owner only.
//
// In gated mode this is the approval path for a pending join request:
// the escrowed deposit moves into the vault and the request is closed.
// In open mode it is a direct add with no escrow involved, and the
// returned transfer is nil.
func (f *Fund) AddMember(signer, candidate string) (*Transfer, error) {
	if signer != f.Owner {
		return nil, f.errf(ErrCodeUnauthorized, signer, "only the owner may add members")
	}
	if f.IsMember(candidate) {
		return nil, f.errf(ErrCodeAlreadyMember, signer, "%s is already a member", candidate)
	}
	if len(f.Members) == MaxMembers {
		return nil, f.errf(ErrCodeMaxMembersReached, signer, "member list is at capacity (%d)", MaxMembers)
	}

	var tr *Transfer
	if f.Gated {
		join, i := f.pendingJoin(candidate)
		if join == nil {
			return nil, f.errf(ErrCodeNoPendingJoinRequest, signer, "no pending join request for %s", candidate)
		}
		tr = &Transfer{From: join.Address.String(), To: f.Vault.String(), Amount: join.Deposit}
		f.VaultBalance += join.Deposit
		f.removeJoin(i)
	}

	f.Members = append(f.Members, candidate)
	return tr, nil
}

// RejectMember settles a pending join request back to the candidate.
// Owner only. The candidate is never added; the escrow is closed.
func (f *Fund) RejectMember(signer, candidate string) (*Transfer, error) {
	if signer != f.Owner {
		return nil, f.errf(ErrCodeUnauthorized, signer, "only the owner may reject candidates")
	}
	join, i := f.pendingJoin(candidate)
	if join == nil {
		return nil, f.errf(ErrCodeNoPendingJoinRequest, signer, "no pending join request for %s", candidate)
	}

	tr := &Transfer{From: join.Address.String(), To: candidate, Amount: join.Deposit}
	f.removeJoin(i)
	return tr, nil
}

func (f *Fund) pendingJoin(candidate string) (*JoinRequest, int) {
	for i, j := range f.Joins {
		if j.Candidate == candidate {
			return j, i
		}
	}
	return nil, -1
}

func (f *Fund) removeJoin(i int) {
	f.Joins = append(f.Joins[:i], f.Joins[i+1:]...)
}
