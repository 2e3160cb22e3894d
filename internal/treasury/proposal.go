package treasury

import "github.com/squadmint/treasury/internal/addr"

// Proposal is a single transfer request with its vote tally, one per
// (fund, sequence) pair. Proposer, Target, Amount, and Sequence are
// immutable once created. Executors and Votes are parallel append-only
// sequences: Votes[i] is the vote cast by Executors[i], and the
// proposer's own affirmative vote occupies index 0.
type Proposal struct {
	Address  addr.Address
	Proposer string
	Target   string
	Amount   uint64
	Sequence uint64

	Executors []string
	Votes     []bool

	Decided  bool
	Approved bool
}

// Tally returns the current yes and no counts.
func (p *Proposal) Tally() (yes, no int) {
	for _, v := range p.Votes {
		if v {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}

func (p *Proposal) hasVoted(id string) bool {
	for _, e := range p.Executors {
		if e == id {
			return true
		}
	}
	return false
}

// Decision is the immutable audit record of a decided proposal. The
// fund's sequence history of decisions is gap-free: exactly one decision
// per sequence value, in order.
type Decision struct {
	Fund      addr.Address
	Sequence  uint64
	Proposal  addr.Address
	Proposer  string
	Target    string
	Amount    uint64
	Approved  bool
	Executors []string
	Votes     []bool
}

// VoteOutcome reports what a recorded vote did.
type VoteOutcome struct {
	// Decided is true when this vote pushed either side over threshold.
	Decided bool
	// Approved is meaningful only when Decided is true.
	Approved bool
	// Transfer is the vault-to-target execution, non-nil only on an
	// approved decision.
	Transfer *Transfer
	// Decision is the audit record, non-nil only when Decided is true.
	Decision *Decision
	// Yes and No are the tally after this vote.
	Yes, No int
}

// CreateProposal opens a proposal at the fund's current sequence.
// Any member may propose; the proposer's affirmative vote is recorded
// at creation. Exactly one proposal may be outstanding per fund.
func (f *Fund) CreateProposal(signer string, amount uint64, target string) (*Proposal, error) {
	if !f.IsMember(signer) {
		return nil, f.errf(ErrCodeNotAMember, signer, "only members may propose transfers")
	}
	if f.HasActiveVote {
		return nil, f.errf(ErrCodeActiveVoteExists, signer, "a proposal is already pending at sequence %d", f.Sequence)
	}
	if amount == 0 {
		return nil, f.errf(ErrCodeBadAmount, signer, "proposal amount must be positive")
	}
	if amount > f.VaultBalance {
		return nil, f.errf(ErrCodeInsufficientFunds, signer, "proposed %d exceeds vault balance %d", amount, f.VaultBalance)
	}

	p := &Proposal{
		Address:   addr.Proposal(f.Address, f.Sequence),
		Proposer:  signer,
		Target:    target,
		Amount:    amount,
		Sequence:  f.Sequence,
		Executors: []string{signer},
		Votes:     []bool{true},
	}
	f.Active = p
	f.HasActiveVote = true
	return p, nil
}

// SubmitVote records a vote on the pending proposal and evaluates the
// threshold against the fund's current member count.
//
// If either side reaches 51% of current members the proposal is decided:
// the fund's active-vote flag clears and the sequence bumps by one, which
// invalidates the decided proposal's address for any late vote. On
// approval the outcome carries the vault-to-target transfer; the host
// applies transfer and bump as one atomic unit.
//
// If the approved amount is no longer affordable the vote is not
// recorded and the proposal remains exactly as it was before the call.
func (f *Fund) SubmitVote(signer string, approve bool) (*VoteOutcome, error) {
	if !f.IsMember(signer) {
		return nil, f.errf(ErrCodeNotAMember, signer, "only members may vote")
	}
	p := f.Active
	if !f.HasActiveVote || p == nil {
		return nil, f.errf(ErrCodeProposalAlreadyDecided, signer, "no proposal is pending at sequence %d", f.Sequence)
	}
	if p.hasVoted(signer) {
		return nil, f.errf(ErrCodeDuplicateVote, signer, "%s already voted on this proposal", signer)
	}

	// Evaluate the prospective tally before mutating anything so a
	// failed execution leaves the proposal untouched.
	yes, no := p.Tally()
	if approve {
		yes++
	} else {
		no++
	}
	total := len(f.Members)
	approved := yes*100 >= total*thresholdPercent
	rejected := no*100 >= total*thresholdPercent
	decided := approved || rejected

	if decided && approved && p.Amount > f.VaultBalance {
		return nil, f.errf(ErrCodeInsufficientFunds, signer, "vault balance %d no longer covers %d", f.VaultBalance, p.Amount)
	}

	p.Executors = append(p.Executors, signer)
	p.Votes = append(p.Votes, approve)

	out := &VoteOutcome{Yes: yes, No: no}
	if !decided {
		return out, nil
	}

	p.Decided = true
	p.Approved = approved
	out.Decided = true
	out.Approved = approved
	out.Decision = &Decision{
		Fund:      f.Address,
		Sequence:  p.Sequence,
		Proposal:  p.Address,
		Proposer:  p.Proposer,
		Target:    p.Target,
		Amount:    p.Amount,
		Approved:  approved,
		Executors: append([]string(nil), p.Executors...),
		Votes:     append([]bool(nil), p.Votes...),
	}

	if approved {
		f.VaultBalance -= p.Amount
		out.Transfer = &Transfer{From: f.Vault.String(), To: p.Target, Amount: p.Amount}
	}

	f.Active = nil
	f.HasActiveVote = false
	f.Sequence++
	return out, nil
}
