package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/treasury"
)

// Storage-level failures. Guard failures inside the state machine carry
// treasury error codes; these cover the records themselves.
var (
	// ErrFundExists indicates a fund already exists at the derived
	// address (initialize idempotency guard).
	ErrFundExists = errors.New("fund already exists at this address")
	// ErrFundNotFound indicates no fund record at the address.
	ErrFundNotFound = errors.New("fund not found")
	// ErrProposalNotFound indicates no proposal record at the address.
	ErrProposalNotFound = errors.New("proposal not found")
)

// runner is satisfied by both *sql.DB and *sql.Tx, so loads can run
// standalone or inside the engine's per-operation transaction.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) on(tx *sql.Tx) runner {
	if tx != nil {
		return tx
	}
	return s.db
}

// CreateFund inserts a new fund and its sole member (the owner).
// Returns ErrFundExists if a fund already occupies the address.
func (s *Store) CreateFund(ctx context.Context, tx *sql.Tx, f *treasury.Fund) error {
	r := s.on(tx)

	var exists int
	err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM funds WHERE address = ?`, f.Address.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("create fund: %w", err)
	}
	if exists > 0 {
		return ErrFundExists
	}

	_, err = r.ExecContext(ctx, `
		INSERT INTO funds (address, owner, handle, gated, has_active_vote, sequence, vault_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.Address.String(), f.Owner, f.Handle, boolInt(f.Gated), boolInt(f.HasActiveVote), f.Sequence, f.Vault.String())
	if err != nil {
		return fmt.Errorf("create fund: %w", err)
	}

	if err := s.replaceMembers(ctx, r, f); err != nil {
		return fmt.Errorf("create fund: %w", err)
	}
	return nil
}

// LoadFund reads the full aggregate: fund row, members in insertion
// order, pending join escrows, the vault's ledger balance, and the
// pending proposal with its votes (when one is active).
func (s *Store) LoadFund(ctx context.Context, tx *sql.Tx, fundAddr addr.Address) (*treasury.Fund, error) {
	r := s.on(tx)

	f := &treasury.Fund{Address: fundAddr}
	var gated, hasVote int
	var vault string
	err := r.QueryRowContext(ctx, `
		SELECT owner, handle, gated, has_active_vote, sequence, vault_address
		FROM funds WHERE address = ?
	`, fundAddr.String()).Scan(&f.Owner, &f.Handle, &gated, &hasVote, &f.Sequence, &vault)
	if err == sql.ErrNoRows {
		return nil, ErrFundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load fund: %w", err)
	}
	f.Gated = gated != 0
	f.HasActiveVote = hasVote != 0
	if f.Vault, err = addr.Parse(vault); err != nil {
		return nil, fmt.Errorf("load fund: vault address: %w", err)
	}

	if f.Members, err = s.loadMembers(ctx, r, fundAddr); err != nil {
		return nil, err
	}
	if f.Joins, err = s.loadJoins(ctx, r, fundAddr); err != nil {
		return nil, err
	}
	if f.VaultBalance, err = s.balance(ctx, r, f.Vault.String()); err != nil {
		return nil, err
	}

	if f.HasActiveVote {
		p, err := s.loadProposal(ctx, r, fundAddr, f.Sequence)
		if err != nil {
			return nil, err
		}
		f.Active = p
	}

	return f, nil
}

// SaveFund writes back the mutable parts of the aggregate: the fund row
// flags, the member list, the pending joins, and the active proposal if
// one exists. Decided proposals are saved separately via SaveProposal so
// their rows survive as immutable history.
func (s *Store) SaveFund(ctx context.Context, tx *sql.Tx, f *treasury.Fund) error {
	r := s.on(tx)

	res, err := r.ExecContext(ctx, `
		UPDATE funds SET has_active_vote = ?, sequence = ? WHERE address = ?
	`, boolInt(f.HasActiveVote), f.Sequence, f.Address.String())
	if err != nil {
		return fmt.Errorf("save fund: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrFundNotFound
	}

	if err := s.replaceMembers(ctx, r, f); err != nil {
		return fmt.Errorf("save fund: %w", err)
	}
	if err := s.replaceJoins(ctx, r, f); err != nil {
		return fmt.Errorf("save fund: %w", err)
	}
	if f.Active != nil {
		if err := s.SaveProposal(ctx, tx, f.Address, f.Active); err != nil {
			return fmt.Errorf("save fund: %w", err)
		}
	}
	return nil
}

// SaveProposal upserts a proposal row and rewrites its vote list.
// Address, proposer, target, amount, and sequence never change after
// creation; only the decided/approved flags and the votes do.
func (s *Store) SaveProposal(ctx context.Context, tx *sql.Tx, fundAddr addr.Address, p *treasury.Proposal) error {
	r := s.on(tx)

	_, err := r.ExecContext(ctx, `
		INSERT INTO proposals (address, fund_address, sequence, proposer, target, amount, decided, approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET decided = excluded.decided, approved = excluded.approved
	`, p.Address.String(), fundAddr.String(), p.Sequence, p.Proposer, p.Target, p.Amount, boolInt(p.Decided), boolInt(p.Approved))
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}

	if _, err := r.ExecContext(ctx, `DELETE FROM proposal_votes WHERE proposal_address = ?`, p.Address.String()); err != nil {
		return fmt.Errorf("save proposal votes: %w", err)
	}
	for i := range p.Executors {
		_, err := r.ExecContext(ctx, `
			INSERT INTO proposal_votes (proposal_address, position, executor, vote)
			VALUES (?, ?, ?, ?)
		`, p.Address.String(), i, p.Executors[i], boolInt(p.Votes[i]))
		if err != nil {
			return fmt.Errorf("save proposal votes: %w", err)
		}
	}
	return nil
}

// ProposalStatus is a lookup result used to classify stale vote targets.
type ProposalStatus struct {
	Fund     addr.Address
	Sequence uint64
	Decided  bool
}

// ProposalAt returns the status of the proposal stored at the address,
// or ErrProposalNotFound.
func (s *Store) ProposalAt(ctx context.Context, tx *sql.Tx, proposalAddr addr.Address) (ProposalStatus, error) {
	var st ProposalStatus
	var fund string
	var decided int
	err := s.on(tx).QueryRowContext(ctx, `
		SELECT fund_address, sequence, decided FROM proposals WHERE address = ?
	`, proposalAddr.String()).Scan(&fund, &st.Sequence, &decided)
	if err == sql.ErrNoRows {
		return st, ErrProposalNotFound
	}
	if err != nil {
		return st, fmt.Errorf("proposal at: %w", err)
	}
	st.Decided = decided != 0
	if st.Fund, err = addr.Parse(fund); err != nil {
		return st, fmt.Errorf("proposal at: %w", err)
	}
	return st, nil
}

func (s *Store) loadMembers(ctx context.Context, r runner, fundAddr addr.Address) ([]string, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT member FROM fund_members WHERE fund_address = ? ORDER BY position ASC
	`, fundAddr.String())
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("load members: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	return members, nil
}

func (s *Store) replaceMembers(ctx context.Context, r runner, f *treasury.Fund) error {
	if _, err := r.ExecContext(ctx, `DELETE FROM fund_members WHERE fund_address = ?`, f.Address.String()); err != nil {
		return err
	}
	for i, m := range f.Members {
		_, err := r.ExecContext(ctx, `
			INSERT INTO fund_members (fund_address, position, member) VALUES (?, ?, ?)
		`, f.Address.String(), i, m)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadJoins(ctx context.Context, r runner, fundAddr addr.Address) ([]*treasury.JoinRequest, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT address, candidate, deposit FROM join_requests
		WHERE fund_address = ? ORDER BY position ASC
	`, fundAddr.String())
	if err != nil {
		return nil, fmt.Errorf("load joins: %w", err)
	}
	defer rows.Close()

	var joins []*treasury.JoinRequest
	for rows.Next() {
		var address string
		j := &treasury.JoinRequest{}
		if err := rows.Scan(&address, &j.Candidate, &j.Deposit); err != nil {
			return nil, fmt.Errorf("load joins: %w", err)
		}
		if j.Address, err = addr.Parse(address); err != nil {
			return nil, fmt.Errorf("load joins: %w", err)
		}
		joins = append(joins, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load joins: %w", err)
	}
	return joins, nil
}

func (s *Store) replaceJoins(ctx context.Context, r runner, f *treasury.Fund) error {
	if _, err := r.ExecContext(ctx, `DELETE FROM join_requests WHERE fund_address = ?`, f.Address.String()); err != nil {
		return err
	}
	for i, j := range f.Joins {
		_, err := r.ExecContext(ctx, `
			INSERT INTO join_requests (address, fund_address, candidate, deposit, position)
			VALUES (?, ?, ?, ?, ?)
		`, j.Address.String(), f.Address.String(), j.Candidate, j.Deposit, i)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadProposal(ctx context.Context, r runner, fundAddr addr.Address, sequence uint64) (*treasury.Proposal, error) {
	p := &treasury.Proposal{}
	var address string
	var decided, approved int
	err := r.QueryRowContext(ctx, `
		SELECT address, proposer, target, amount, sequence, decided, approved
		FROM proposals WHERE fund_address = ? AND sequence = ?
	`, fundAddr.String(), sequence).Scan(&address, &p.Proposer, &p.Target, &p.Amount, &p.Sequence, &decided, &approved)
	if err == sql.ErrNoRows {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	p.Decided = decided != 0
	p.Approved = approved != 0
	if p.Address, err = addr.Parse(address); err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}

	rows, err := r.QueryContext(ctx, `
		SELECT executor, vote FROM proposal_votes
		WHERE proposal_address = ? ORDER BY position ASC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("load proposal votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var executor string
		var vote int
		if err := rows.Scan(&executor, &vote); err != nil {
			return nil, fmt.Errorf("load proposal votes: %w", err)
		}
		p.Executors = append(p.Executors, executor)
		p.Votes = append(p.Votes, vote != 0)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load proposal votes: %w", err)
	}
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
