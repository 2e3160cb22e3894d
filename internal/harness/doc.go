// Package harness provides conformance testing for the treasury
// governance engine.
//
// The harness loads YAML scenarios, executes their operations against a
// real engine backed by a fresh in-memory database, and validates the
// results against expect clauses and final-state assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	policy:
//	  gatedByDefault: false
//	setup:
//	  - credit: alice
//	    amount: 1000
//	flow:
//	  - op: initialize
//	    args: { owner: alice, handle: main }
//	  - op: propose
//	    args: { fund: main, signer: alice, amount: 100, target: carol }
//	    expect:
//	      fields: { yes: 1 }
//	  - op: vote
//	    args: { fund: main, signer: bob, approve: true }
//	    expect:
//	      error: NOT_A_MEMBER
//	assertions:
//	  - type: fund_state
//	    fund: main
//	    expect: { sequence: 0, has_active_vote: true }
//	  - type: balance
//	    account: "vault:main"
//	    amount: 100
//	  - type: history
//	    fund: main
//	    count: 0
//	  - type: verify_ok
//	    fund: main
//
// Funds are referred to by the handle used at their initialize step; the
// harness resolves handles to derived addresses. The account references
// "vault:<handle>" and "escrow:<handle>:<candidate>" resolve to the
// fund's vault and join-escrow addresses.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory database with a
// sequential fixed token generator, so the same scenario produces a
// byte-identical trace across runs. Traces are compared against golden
// files with goldie; regenerate with:
//
//	go test ./internal/harness -update
package harness
