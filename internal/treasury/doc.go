// Package treasury implements the governance and execution state machine
// for a custodial multisig fund.
//
// A Fund is the aggregate: its member list, gating mode, vault balance,
// pending join escrows, and at most one pending proposal. All operations
// are synchronous, single-step, and all-or-nothing: a guard failure
// returns a coded error and leaves the aggregate untouched.
//
// The package is pure state: it performs no I/O and holds no clocks.
// Fund movement is expressed as Transfer values which the host applies
// atomically together with the state change. The host is responsible for
// serializing operations against a single fund; see the engine package.
package treasury
