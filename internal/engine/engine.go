// Package engine hosts the governance state machine.
//
// The engine serializes every state-mutating operation against a given
// fund, resolves and verifies derived addresses, and applies each
// operation as one atomic unit: the domain state change, its fund
// movements, and its audit record commit in a single SQLite transaction
// or not at all.
//
// Thread-safety model:
//   - operations on the same fund serialize on a per-fund mutex
//   - operations on different funds proceed in parallel
//   - reads go straight to the store and may run concurrently
package engine

import (
	"log/slog"
	"sync"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/policy"
	"github.com/squadmint/treasury/internal/store"
	"github.com/squadmint/treasury/internal/treasury"
)

// Engine applies governance operations against the store.
type Engine struct {
	store  *store.Store
	policy policy.Policy
	tokens TokenGenerator
	logger *slog.Logger

	mu    sync.Mutex
	funds map[addr.Address]*sync.Mutex
}

// New creates an engine over the given store and deployment policy.
func New(st *store.Store, pol policy.Policy, tokens TokenGenerator, logger *slog.Logger) *Engine {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  st,
		policy: pol,
		tokens: tokens,
		logger: logger,
		funds:  map[addr.Address]*sync.Mutex{},
	}
}

// Policy returns the deployment policy the engine runs under.
func (e *Engine) Policy() policy.Policy {
	return e.policy
}

// lockFund acquires the per-fund mutex and returns its release func.
// This is the host serialization the state machine relies on: two
// operations touching the same fund never run concurrently.
func (e *Engine) lockFund(fund addr.Address) func() {
	e.mu.Lock()
	m, ok := e.funds[fund]
	if !ok {
		m = &sync.Mutex{}
		e.funds[fund] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// verifyFund re-derives the fund and vault addresses from the seed
// values embedded in the stored record and compares them against the
// record's own keys. A mismatch means the record was created under a
// different derivation rule or an address was substituted.
func (e *Engine) verifyFund(f *treasury.Fund) error {
	if derived := addr.Fund(f.Handle, f.Owner); derived != f.Address {
		return hostErrf(ErrCodeAddressMismatch, f.Address.String(),
			"fund address does not re-derive from (handle=%q, owner=%s)", f.Handle, f.Owner)
	}
	if derived := addr.Vault(e.policy.VaultScheme, f.Address); derived != f.Vault {
		return hostErrf(ErrCodeAddressMismatch, f.Address.String(),
			"vault address does not re-derive under scheme %q", e.policy.VaultScheme)
	}
	return nil
}

// logOp emits the standard per-operation log line.
func (e *Engine) logOp(op, token string, fund addr.Address, err error, attrs ...any) {
	if err != nil {
		e.logger.Error("operation failed",
			append([]any{"op", op, "token", token, "fund", fund.String(), "code", CodeOf(err), "err", err}, attrs...)...)
		return
	}
	e.logger.Info("operation applied",
		append([]any{"op", op, "token", token, "fund", fund.String()}, attrs...)...)
}
