// Package store persists treasury state in SQLite.
//
// The live aggregate (fund, members, pending join escrows, proposals and
// votes) is written through LoadFund/SaveFund inside a caller-owned
// transaction; the balances table is the token ledger shared by vaults,
// escrow holding accounts, and identity own-accounts; decisions is the
// append-only audit log of decided proposals, gap-free by sequence.
//
// All mutating methods take a *sql.Tx so the engine can apply a state
// change, its transfers, and its audit record as one atomic unit.
package store
