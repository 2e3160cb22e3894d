package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/treasury"
)

// DecisionRecord is a decided proposal as stored in the audit log,
// together with the operation token of the deciding vote.
type DecisionRecord struct {
	treasury.Decision
	OpToken string
}

// AppendDecision writes the audit record for a decided proposal.
// The (fund, sequence) primary key makes double-appends impossible:
// exactly one decision per sequence value.
func (s *Store) AppendDecision(ctx context.Context, tx *sql.Tx, d *treasury.Decision, opToken string) error {
	executors, err := json.Marshal(d.Executors)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	votes, err := json.Marshal(d.Votes)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}

	_, err = s.on(tx).ExecContext(ctx, `
		INSERT INTO decisions
		(fund_address, sequence, proposal_address, proposer, target, amount, approved, executors, votes, op_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.Fund.String(), d.Sequence, d.Proposal.String(), d.Proposer, d.Target, d.Amount,
		boolInt(d.Approved), string(executors), string(votes), opToken)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// Decisions returns a fund's decision history ordered by sequence.
func (s *Store) Decisions(ctx context.Context, fundAddr addr.Address) ([]DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, proposal_address, proposer, target, amount, approved, executors, votes, op_token
		FROM decisions WHERE fund_address = ? ORDER BY sequence ASC
	`, fundAddr.String())
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		rec := DecisionRecord{}
		rec.Fund = fundAddr
		var proposal, executors, votes string
		var approved int
		if err := rows.Scan(&rec.Sequence, &proposal, &rec.Proposer, &rec.Target,
			&rec.Amount, &approved, &executors, &votes, &rec.OpToken); err != nil {
			return nil, fmt.Errorf("read decisions: %w", err)
		}
		rec.Approved = approved != 0
		if rec.Proposal, err = addr.Parse(proposal); err != nil {
			return nil, fmt.Errorf("read decisions: %w", err)
		}
		if err := json.Unmarshal([]byte(executors), &rec.Executors); err != nil {
			return nil, fmt.Errorf("read decisions: executors: %w", err)
		}
		if err := json.Unmarshal([]byte(votes), &rec.Votes); err != nil {
			return nil, fmt.Errorf("read decisions: votes: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}

	if records == nil {
		records = []DecisionRecord{}
	}
	return records, nil
}
