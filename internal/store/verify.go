package store

import (
	"context"
	"fmt"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/treasury"
)

// HistoryReport is the result of verifying a fund's decision history
// against the invariants of the governance state machine.
type HistoryReport struct {
	Fund      addr.Address
	Decisions int
	Findings  []string
}

// OK reports whether verification found no violations.
func (r *HistoryReport) OK() bool {
	return len(r.Findings) == 0
}

func (r *HistoryReport) findf(format string, args ...any) {
	r.Findings = append(r.Findings, fmt.Sprintf(format, args...))
}

// VerifyHistory audits a fund's decision log:
//
//   - sequences are gap-free from 0 and the fund's current sequence
//     equals the decision count
//   - each decision's proposal address re-derives from its sequence
//   - executors are unique and never exceed the member capacity
//   - votes run parallel to executors, with the proposer's affirmative
//     vote at index 0
//   - every decision has a matching decided proposal row
//
// Violations are collected as findings rather than returned as an error;
// an error means the audit itself could not run.
func (s *Store) VerifyHistory(ctx context.Context, fundAddr addr.Address) (*HistoryReport, error) {
	report := &HistoryReport{Fund: fundAddr}

	f, err := s.LoadFund(ctx, nil, fundAddr)
	if err != nil {
		return nil, fmt.Errorf("verify history: %w", err)
	}

	records, err := s.Decisions(ctx, fundAddr)
	if err != nil {
		return nil, fmt.Errorf("verify history: %w", err)
	}
	report.Decisions = len(records)

	if f.Sequence != uint64(len(records)) {
		report.findf("fund sequence %d does not match decision count %d", f.Sequence, len(records))
	}

	for i, rec := range records {
		if rec.Sequence != uint64(i) {
			report.findf("decision %d holds sequence %d: history has a gap", i, rec.Sequence)
		}
		if want := addr.Proposal(fundAddr, rec.Sequence); rec.Proposal != want {
			report.findf("decision %d proposal address does not re-derive from its sequence", rec.Sequence)
		}
		if len(rec.Executors) != len(rec.Votes) {
			report.findf("decision %d has %d executors but %d votes", rec.Sequence, len(rec.Executors), len(rec.Votes))
		} else {
			if len(rec.Executors) == 0 || rec.Executors[0] != rec.Proposer || !rec.Votes[0] {
				report.findf("decision %d does not open with the proposer's affirmative vote", rec.Sequence)
			}
		}
		if len(rec.Executors) > treasury.MaxMembers {
			report.findf("decision %d has %d executors, above capacity %d", rec.Sequence, len(rec.Executors), treasury.MaxMembers)
		}
		seen := map[string]bool{}
		for _, e := range rec.Executors {
			if seen[e] {
				report.findf("decision %d records executor %s twice", rec.Sequence, e)
			}
			seen[e] = true
		}

		st, err := s.ProposalAt(ctx, nil, rec.Proposal)
		if err == ErrProposalNotFound {
			report.findf("decision %d has no matching proposal row", rec.Sequence)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("verify history: %w", err)
		}
		if !st.Decided {
			report.findf("decision %d points at a proposal still marked pending", rec.Sequence)
		}
	}

	return report, nil
}
