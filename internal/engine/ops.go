package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/store"
	"github.com/squadmint/treasury/internal/treasury"
)

// InitializeParams describes a new fund.
type InitializeParams struct {
	Owner  string
	Handle string
	// Gated overrides the policy's default membership mode when set.
	Gated *bool
	// InitialDeposit, when positive, moves this amount from the owner's
	// own account into the vault at creation.
	InitialDeposit uint64
}

// Initialize creates a fund at the address derived from (handle, owner),
// with the owner as sole member, sequence 0, and no active vote. Fails
// with FUND_EXISTS if the address is occupied.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) (*FundView, error) {
	if p.Owner == "" || p.Handle == "" {
		return nil, hostErrf(ErrCodeBadRequest, "", "owner and handle are required")
	}

	fundAddr := addr.Fund(p.Handle, p.Owner)
	unlock := e.lockFund(fundAddr)
	defer unlock()

	gated := e.policy.GatedByDefault
	if p.Gated != nil {
		gated = *p.Gated
	}
	vault := addr.Vault(e.policy.VaultScheme, fundAddr)
	f := treasury.NewFund(fundAddr, vault, p.Owner, p.Handle, gated)

	token := e.tokens.Generate()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.store.CreateFund(ctx, tx, f); err != nil {
			return err
		}
		if p.InitialDeposit > 0 {
			tr := &treasury.Transfer{From: p.Owner, To: vault.String(), Amount: p.InitialDeposit}
			if err := e.store.Apply(ctx, tx, tr); err != nil {
				return err
			}
			f.VaultBalance = p.InitialDeposit
		}
		return nil
	})
	e.logOp("initialize", token, fundAddr, err, "owner", p.Owner, "handle", p.Handle, "gated", gated)
	if err != nil {
		return nil, err
	}
	return newFundView(f), nil
}

// MemberParams addresses an owner-signed membership operation.
type MemberParams struct {
	Fund      addr.Address
	Signer    string
	Candidate string
}

// AddMember appends a candidate to the fund's member list. In gated
// mode this approves the candidate's pending join request and settles
// its escrow into the vault.
func (e *Engine) AddMember(ctx context.Context, p MemberParams) (*FundView, error) {
	unlock := e.lockFund(p.Fund)
	defer unlock()

	var f *treasury.Fund
	token := e.tokens.Generate()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if f, err = e.loadVerified(ctx, tx, p.Fund); err != nil {
			return err
		}
		tr, err := f.AddMember(p.Signer, p.Candidate)
		if err != nil {
			return err
		}
		if err := e.store.Apply(ctx, tx, tr); err != nil {
			return err
		}
		return e.store.SaveFund(ctx, tx, f)
	})
	e.logOp("add_member", token, p.Fund, err, "candidate", p.Candidate)
	if err != nil {
		return nil, err
	}
	return newFundView(f), nil
}

// RejectMember settles a pending join request back to the candidate.
func (e *Engine) RejectMember(ctx context.Context, p MemberParams) (*FundView, error) {
	unlock := e.lockFund(p.Fund)
	defer unlock()

	var f *treasury.Fund
	token := e.tokens.Generate()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if f, err = e.loadVerified(ctx, tx, p.Fund); err != nil {
			return err
		}
		tr, err := f.RejectMember(p.Signer, p.Candidate)
		if err != nil {
			return err
		}
		if err := e.store.Apply(ctx, tx, tr); err != nil {
			return err
		}
		return e.store.SaveFund(ctx, tx, f)
	})
	e.logOp("reject_member", token, p.Fund, err, "candidate", p.Candidate)
	if err != nil {
		return nil, err
	}
	return newFundView(f), nil
}

// JoinParams describes a candidate's escrowed membership application.
type JoinParams struct {
	Fund      addr.Address
	Candidate string
	Amount    uint64
}

// InitiateJoinRequest escrows the candidate's deposit into a holding
// account derived from (fund, candidate) and records the pending
// request. The candidate's own account is debited in the same
// transaction; if it cannot cover the deposit nothing is recorded.
func (e *Engine) InitiateJoinRequest(ctx context.Context, p JoinParams) (*FundView, error) {
	unlock := e.lockFund(p.Fund)
	defer unlock()

	if p.Amount < e.policy.MinJoinDeposit {
		return nil, hostErrf(ErrCodeInsufficientDeposit, p.Fund.String(),
			"deposit %d is below the policy minimum %d", p.Amount, e.policy.MinJoinDeposit)
	}

	var f *treasury.Fund
	token := e.tokens.Generate()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if f, err = e.loadVerified(ctx, tx, p.Fund); err != nil {
			return err
		}
		escrow := addr.Join(p.Fund, p.Candidate)
		tr, err := f.InitiateJoin(p.Candidate, escrow, p.Amount)
		if err != nil {
			return err
		}
		if err := e.store.Apply(ctx, tx, tr); err != nil {
			return err
		}
		return e.store.SaveFund(ctx, tx, f)
	})
	e.logOp("initiate_join", token, p.Fund, err, "candidate", p.Candidate, "deposit", p.Amount)
	if err != nil {
		return nil, err
	}
	return newFundView(f), nil
}

// ProposeParams describes a transfer proposal.
type ProposeParams struct {
	Fund   addr.Address
	Signer string
	Amount uint64
	Target string
}

// CreateProposal opens a proposal at the fund's current sequence with
// the proposer's affirmative vote already recorded.
func (e *Engine) CreateProposal(ctx context.Context, p ProposeParams) (*ProposalView, error) {
	unlock := e.lockFund(p.Fund)
	defer unlock()

	var prop *treasury.Proposal
	token := e.tokens.Generate()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		f, err := e.loadVerified(ctx, tx, p.Fund)
		if err != nil {
			return err
		}
		if prop, err = f.CreateProposal(p.Signer, p.Amount, p.Target); err != nil {
			return err
		}
		return e.store.SaveFund(ctx, tx, f)
	})
	e.logOp("create_proposal", token, p.Fund, err, "amount", p.Amount, "target", p.Target)
	if err != nil {
		return nil, err
	}
	return newProposalView(prop), nil
}

// VoteParams describes a vote submission.
type VoteParams struct {
	Fund   addr.Address
	Signer string
	// Proposal is the address the client resolved for the pending
	// proposal. When set, the engine verifies it against the address
	// derived from the fund's current sequence; a stale but genuine
	// proposal address fails with PROPOSAL_ALREADY_DECIDED, anything
	// else with ADDRESS_MISMATCH. The zero address skips the check.
	Proposal addr.Address
	Approve  bool
}

// VoteView reports a recorded vote and, when it decided the proposal,
// the decision and executed transfer.
type VoteView struct {
	Yes      int           `json:"yes"`
	No       int           `json:"no"`
	Decided  bool          `json:"decided"`
	Approved bool          `json:"approved"`
	Sequence uint64        `json:"sequence"`
	Fund     *FundView     `json:"fund"`
	Executed *TransferView `json:"executed,omitempty"`
}

// TransferView is an executed vault-to-target transfer.
type TransferView struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// SubmitAndExecute records a vote on the pending proposal, evaluates the
// 51% threshold against current membership, and on approval executes the
// vault transfer, appends the audit record, and bumps the sequence, all
// in one transaction.
func (e *Engine) SubmitAndExecute(ctx context.Context, p VoteParams) (*VoteView, error) {
	unlock := e.lockFund(p.Fund)
	defer unlock()

	var (
		f   *treasury.Fund
		out *treasury.VoteOutcome
	)
	token := e.tokens.Generate()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if f, err = e.loadVerified(ctx, tx, p.Fund); err != nil {
			return err
		}
		if err := e.checkProposalAddress(ctx, tx, f, p.Proposal); err != nil {
			return err
		}

		prop := f.Active
		if out, err = f.SubmitVote(p.Signer, p.Approve); err != nil {
			return err
		}

		// A decided proposal leaves the aggregate; persist its final
		// row explicitly so it survives as immutable history.
		if out.Decided {
			if err := e.store.SaveProposal(ctx, tx, f.Address, prop); err != nil {
				return err
			}
			if err := e.store.AppendDecision(ctx, tx, out.Decision, token); err != nil {
				return err
			}
		}
		if err := e.store.Apply(ctx, tx, out.Transfer); err != nil {
			return err
		}
		return e.store.SaveFund(ctx, tx, f)
	})
	e.logOp("submit_and_execute", token, p.Fund, err, "approve", p.Approve)
	if err != nil {
		return nil, err
	}

	view := &VoteView{
		Yes:      out.Yes,
		No:       out.No,
		Decided:  out.Decided,
		Approved: out.Approved,
		Sequence: f.Sequence,
		Fund:     newFundView(f),
	}
	if out.Transfer != nil {
		view.Executed = &TransferView{From: out.Transfer.From, To: out.Transfer.To, Amount: out.Transfer.Amount}
	}
	return view, nil
}

// loadVerified loads the fund aggregate and runs the re-derive-and-
// compare address checks before any operation touches it.
func (e *Engine) loadVerified(ctx context.Context, tx *sql.Tx, fund addr.Address) (*treasury.Fund, error) {
	f, err := e.store.LoadFund(ctx, tx, fund)
	if err != nil {
		return nil, err
	}
	if err := e.verifyFund(f); err != nil {
		return nil, err
	}
	return f, nil
}

// checkProposalAddress classifies a client-resolved proposal address.
func (e *Engine) checkProposalAddress(ctx context.Context, tx *sql.Tx, f *treasury.Fund, proposal addr.Address) error {
	if proposal.IsZero() {
		return nil
	}
	if proposal == addr.Proposal(f.Address, f.Sequence) {
		return nil
	}

	// Not the current slot. A genuine proposal of this fund from an
	// earlier sequence means the client voted on a decided proposal;
	// anything else is a substituted address.
	st, err := e.store.ProposalAt(ctx, tx, proposal)
	if err == store.ErrProposalNotFound {
		return hostErrf(ErrCodeAddressMismatch, f.Address.String(),
			"proposal address does not derive from the fund's current sequence %d", f.Sequence)
	}
	if err != nil {
		return fmt.Errorf("check proposal address: %w", err)
	}
	if st.Fund == f.Address && st.Sequence < f.Sequence {
		return &treasury.Error{
			Code:    treasury.ErrCodeProposalAlreadyDecided,
			Message: fmt.Sprintf("proposal at sequence %d was decided; fund is at %d", st.Sequence, f.Sequence),
			Fund:    f.Address.String(),
		}
	}
	return hostErrf(ErrCodeAddressMismatch, f.Address.String(),
		"proposal address belongs to a different fund")
}
