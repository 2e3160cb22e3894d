package treasury

import "github.com/squadmint/treasury/internal/addr"

// JoinRequest is a pending, escrow-backed application for membership in
// a gated fund. The holding account at Address carries exactly Deposit
// tokens until the owner approves (escrow moves to the vault) or rejects
// (escrow returns to the candidate). A request is never partially
// settled.
type JoinRequest struct {
	Address   addr.Address
	Candidate string
	Deposit   uint64
}

// InitiateJoin records a join request and escrows the candidate's
// deposit. Gated funds only; at most one unresolved request per
// (fund, candidate) pair.
//
// The returned transfer debits the candidate's own account into the
// escrow holding account. The host applies it atomically with the state
// change; if the candidate cannot cover the deposit, the whole operation
// fails and no request is recorded.
func (f *Fund) InitiateJoin(candidate string, escrow addr.Address, amount uint64) (*Transfer, error) {
	if !f.Gated {
		return nil, f.errf(ErrCodeFundNotGated, candidate, "fund is open; ask the owner for a direct add")
	}
	if amount == 0 {
		return nil, f.errf(ErrCodeBadAmount, candidate, "join deposit must be positive")
	}
	if f.IsMember(candidate) {
		return nil, f.errf(ErrCodeAlreadyMember, candidate, "%s is already a member", candidate)
	}
	if join, _ := f.pendingJoin(candidate); join != nil {
		return nil, f.errf(ErrCodeJoinRequestExists, candidate, "join request for %s is already pending", candidate)
	}

	f.Joins = append(f.Joins, &JoinRequest{
		Address:   escrow,
		Candidate: candidate,
		Deposit:   amount,
	})
	return &Transfer{From: candidate, To: escrow.String(), Amount: amount}, nil
}
