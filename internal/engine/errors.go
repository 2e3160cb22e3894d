package engine

import (
	"errors"
	"fmt"

	"github.com/squadmint/treasury/internal/store"
	"github.com/squadmint/treasury/internal/treasury"
)

// HostError represents a failure detected by the host before the state
// machine runs: unresolvable or substituted addresses, records that do
// not exist, or policy violations.
type HostError struct {
	// Code identifies the error category.
	Code HostErrorCode

	// Message is a human-readable description.
	Message string

	// Fund is the affected fund address, when known.
	Fund string
}

// HostErrorCode categorizes host errors.
type HostErrorCode string

const (
	// ErrCodeFundExists indicates initialize hit an occupied address.
	ErrCodeFundExists HostErrorCode = "FUND_EXISTS"

	// ErrCodeFundNotFound indicates no fund at the given address.
	ErrCodeFundNotFound HostErrorCode = "FUND_NOT_FOUND"

	// ErrCodeAddressMismatch indicates a supplied address does not
	// re-derive from the seed values embedded in the stored records.
	ErrCodeAddressMismatch HostErrorCode = "ADDRESS_MISMATCH"

	// ErrCodeInsufficientDeposit indicates a join deposit below the
	// policy minimum.
	ErrCodeInsufficientDeposit HostErrorCode = "INSUFFICIENT_DEPOSIT"

	// ErrCodeBadRequest indicates malformed operation input.
	ErrCodeBadRequest HostErrorCode = "BAD_REQUEST"
)

// Error implements the error interface.
func (e *HostError) Error() string {
	if e.Fund != "" {
		return fmt.Sprintf("%s: %s (fund=%s)", e.Code, e.Message, e.Fund)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hostErrf(code HostErrorCode, fund, format string, args ...any) *HostError {
	return &HostError{Code: code, Message: fmt.Sprintf(format, args...), Fund: fund}
}

// CodeOf maps any error surfaced by an engine operation to its string
// code: treasury guard codes, host codes, or storage sentinels. Returns
// "" for nil and "INTERNAL" for anything unrecognized.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if code := treasury.CodeOf(err); code != "" {
		return string(code)
	}
	var he *HostError
	if errors.As(err, &he) {
		return string(he.Code)
	}
	switch {
	case errors.Is(err, store.ErrFundExists):
		return string(ErrCodeFundExists)
	case errors.Is(err, store.ErrFundNotFound):
		return string(ErrCodeFundNotFound)
	}
	return "INTERNAL"
}
