package engine

import (
	"context"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/store"
	"github.com/squadmint/treasury/internal/treasury"
)

// FundView is the externally visible snapshot of a fund.
type FundView struct {
	Address       string      `json:"address"`
	Owner         string      `json:"owner"`
	Handle        string      `json:"handle"`
	Gated         bool        `json:"gated"`
	Members       []string    `json:"members"`
	HasActiveVote bool        `json:"has_active_vote"`
	Sequence      uint64      `json:"sequence"`
	Vault         string      `json:"vault"`
	VaultBalance  uint64      `json:"vault_balance"`
	Joins         []JoinView  `json:"joins,omitempty"`
	Active        *ProposalView `json:"active_proposal,omitempty"`
}

// JoinView is a pending join request.
type JoinView struct {
	Escrow    string `json:"escrow"`
	Candidate string `json:"candidate"`
	Deposit   uint64 `json:"deposit"`
}

// ProposalView is a proposal snapshot with its running tally.
type ProposalView struct {
	Address   string   `json:"address"`
	Proposer  string   `json:"proposer"`
	Target    string   `json:"target"`
	Amount    uint64   `json:"amount"`
	Sequence  uint64   `json:"sequence"`
	Executors []string `json:"executors"`
	Votes     []bool   `json:"votes"`
	Yes       int      `json:"yes"`
	No        int      `json:"no"`
	Decided   bool     `json:"decided"`
	Approved  bool     `json:"approved"`
}

// DecisionView is one audit log entry.
type DecisionView struct {
	Sequence  uint64   `json:"sequence"`
	Proposal  string   `json:"proposal"`
	Proposer  string   `json:"proposer"`
	Target    string   `json:"target"`
	Amount    uint64   `json:"amount"`
	Approved  bool     `json:"approved"`
	Executors []string `json:"executors"`
	Votes     []bool   `json:"votes"`
	OpToken   string   `json:"op_token"`
}

func newFundView(f *treasury.Fund) *FundView {
	v := &FundView{
		Address:       f.Address.String(),
		Owner:         f.Owner,
		Handle:        f.Handle,
		Gated:         f.Gated,
		Members:       append([]string{}, f.Members...),
		HasActiveVote: f.HasActiveVote,
		Sequence:      f.Sequence,
		Vault:         f.Vault.String(),
		VaultBalance:  f.VaultBalance,
	}
	for _, j := range f.Joins {
		v.Joins = append(v.Joins, JoinView{
			Escrow:    j.Address.String(),
			Candidate: j.Candidate,
			Deposit:   j.Deposit,
		})
	}
	if f.Active != nil {
		v.Active = newProposalView(f.Active)
	}
	return v
}

func newProposalView(p *treasury.Proposal) *ProposalView {
	yes, no := p.Tally()
	return &ProposalView{
		Address:   p.Address.String(),
		Proposer:  p.Proposer,
		Target:    p.Target,
		Amount:    p.Amount,
		Sequence:  p.Sequence,
		Executors: append([]string{}, p.Executors...),
		Votes:     append([]bool{}, p.Votes...),
		Yes:       yes,
		No:        no,
		Decided:   p.Decided,
		Approved:  p.Approved,
	}
}

// ShowFund loads and verifies a fund without mutating it.
func (e *Engine) ShowFund(ctx context.Context, fund addr.Address) (*FundView, error) {
	f, err := e.store.LoadFund(ctx, nil, fund)
	if err != nil {
		return nil, err
	}
	if err := e.verifyFund(f); err != nil {
		return nil, err
	}
	return newFundView(f), nil
}

// History returns the fund's decision log in sequence order.
func (e *Engine) History(ctx context.Context, fund addr.Address) ([]DecisionView, error) {
	if _, err := e.store.LoadFund(ctx, nil, fund); err != nil {
		return nil, err
	}
	recs, err := e.store.Decisions(ctx, fund)
	if err != nil {
		return nil, err
	}
	views := make([]DecisionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, DecisionView{
			Sequence:  rec.Sequence,
			Proposal:  rec.Proposal.String(),
			Proposer:  rec.Proposer,
			Target:    rec.Target,
			Amount:    rec.Amount,
			Approved:  rec.Approved,
			Executors: rec.Executors,
			Votes:     rec.Votes,
			OpToken:   rec.OpToken,
		})
	}
	return views, nil
}

// Verify replays the fund's decision log against the derivation and
// invariant rules and reports any violations.
func (e *Engine) Verify(ctx context.Context, fund addr.Address) (*store.HistoryReport, error) {
	return e.store.VerifyHistory(ctx, fund)
}

// Balance reads an account's ledger balance. Absent accounts read zero.
func (e *Engine) Balance(ctx context.Context, account string) (uint64, error) {
	return e.store.Balance(ctx, account)
}
