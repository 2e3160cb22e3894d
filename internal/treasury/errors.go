package treasury

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes governance errors.
//
// Every guard failure carries a specific code so callers can distinguish
// "retry with fresh state" (PROPOSAL_ALREADY_DECIDED) from "this action
// can never succeed as submitted" (ALREADY_MEMBER).
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates a non-owner attempted an owner-only
	// operation.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeNotAMember indicates a non-member attempted a member-only
	// operation.
	ErrCodeNotAMember ErrorCode = "NOT_A_MEMBER"

	// ErrCodeAlreadyMember indicates the candidate is already in the
	// member list.
	ErrCodeAlreadyMember ErrorCode = "ALREADY_MEMBER"

	// ErrCodeMaxMembersReached indicates the member list is at capacity.
	ErrCodeMaxMembersReached ErrorCode = "MAX_MEMBERS_REACHED"

	// ErrCodeNoPendingJoinRequest indicates no escrowed join request
	// exists for the candidate.
	ErrCodeNoPendingJoinRequest ErrorCode = "NO_PENDING_JOIN_REQUEST"

	// ErrCodeJoinRequestExists indicates the candidate already has an
	// unresolved join request on this fund.
	ErrCodeJoinRequestExists ErrorCode = "JOIN_REQUEST_EXISTS"

	// ErrCodeFundNotGated indicates a join request was initiated against
	// an open fund, where membership is granted directly by the owner.
	ErrCodeFundNotGated ErrorCode = "FUND_NOT_GATED"

	// ErrCodeActiveVoteExists indicates a proposal is already pending
	// decision; exactly one proposal may be outstanding per fund.
	ErrCodeActiveVoteExists ErrorCode = "ACTIVE_VOTE_EXISTS"

	// ErrCodeProposalAlreadyDecided indicates a vote targeted a proposal
	// whose sequence no longer matches the fund's current sequence.
	ErrCodeProposalAlreadyDecided ErrorCode = "PROPOSAL_ALREADY_DECIDED"

	// ErrCodeDuplicateVote indicates the signer already voted on the
	// pending proposal.
	ErrCodeDuplicateVote ErrorCode = "DUPLICATE_VOTE"

	// ErrCodeInsufficientFunds indicates the amount exceeds the relevant
	// balance (vault at creation or execution, own account on deposit).
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeBadAmount indicates a zero or otherwise unusable amount.
	ErrCodeBadAmount ErrorCode = "BAD_AMOUNT"
)

// Error is a governance guard failure.
//
// Guard failures abort the whole operation with no partial state change;
// the aggregate is left exactly as it was before the call.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Fund is the address of the affected fund, when known.
	Fund string

	// Signer is the identity that submitted the operation, when relevant.
	Signer string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Fund != "" && e.Signer != "":
		return fmt.Sprintf("%s: %s (fund=%s, signer=%s)", e.Code, e.Message, e.Fund, e.Signer)
	case e.Fund != "":
		return fmt.Sprintf("%s: %s (fund=%s)", e.Code, e.Message, e.Fund)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsCode returns true if err is (or wraps) a treasury Error with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// CodeOf extracts the error code from err, or "" if err is not a
// treasury Error.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func (f *Fund) errf(code ErrorCode, signer, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Fund:    f.Address.String(),
		Signer:  signer,
	}
}
