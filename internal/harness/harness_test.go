package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runYAML(t *testing.T, src string) *Result {
	t.Helper()
	scenario, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)
	return result
}

func TestRunPassingScenario(t *testing.T) {
	result := runYAML(t, `
name: two_member_approval
description: "proposer plus owner reach the threshold"
policy:
  gatedByDefault: false
setup:
  - credit: alice
    amount: 300
flow:
  - op: initialize
    args: { owner: alice, handle: ops, deposit: 300 }
  - op: add_member
    args: { fund: ops, signer: alice, candidate: bob }
  - op: propose
    args: { fund: ops, signer: bob, amount: 120, target: vendor }
  - op: vote
    args: { fund: ops, signer: alice, approve: true }
    expect:
      fields: { decided: true, approved: true }
assertions:
  - type: balance
    account: vendor
    amount: 120
  - type: balance
    account: "vault:ops"
    amount: 180
  - type: history
    fund: ops
    count: 1
    approved: [true]
  - type: verify_ok
    fund: ops
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 4)
	assert.Empty(t, result.Trace[3].Code)
}

func TestRunExpectedError(t *testing.T) {
	result := runYAML(t, `
name: outsider_cannot_propose
description: "a non-member proposal is refused"
policy:
  gatedByDefault: false
setup:
  - credit: alice
    amount: 100
flow:
  - op: initialize
    args: { owner: alice, handle: ops, deposit: 100 }
  - op: propose
    args: { fund: ops, signer: mallory, amount: 50, target: mallory }
    expect:
      error: NOT_A_MEMBER
assertions:
  - type: fund_state
    fund: ops
    expect: { has_active_vote: false }
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "NOT_A_MEMBER", result.Trace[1].Code)
}

func TestRunExpectErrorMismatchFails(t *testing.T) {
	result := runYAML(t, `
name: wrong_expected_code
description: "expecting the wrong code fails the scenario"
policy:
  gatedByDefault: false
flow:
  - op: initialize
    args: { owner: alice, handle: ops }
  - op: add_member
    args: { fund: ops, signer: mallory, candidate: bob }
    expect:
      error: NOT_A_MEMBER
`)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error NOT_A_MEMBER, got UNAUTHORIZED")
}

func TestRunUnexpectedErrorFails(t *testing.T) {
	result := runYAML(t, `
name: unexpected_error
description: "an unexpected step error fails the scenario"
flow:
  - op: initialize
    args: { owner: alice, handle: ops }
  - op: join
    args: { fund: ops, candidate: bob, deposit: 100 }
`)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "INSUFFICIENT_FUNDS")
}

func TestRunFieldMismatchFails(t *testing.T) {
	result := runYAML(t, `
name: field_mismatch
description: "a result field that does not match fails the scenario"
policy:
  gatedByDefault: false
flow:
  - op: initialize
    args: { owner: alice, handle: ops }
    expect:
      fields: { sequence: 7 }
`)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "field sequence")
}

func TestRunFailedAssertionReported(t *testing.T) {
	result := runYAML(t, `
name: failed_assertion
description: "a final-state assertion that does not hold fails the scenario"
policy:
  gatedByDefault: false
flow:
  - op: initialize
    args: { owner: alice, handle: ops }
assertions:
  - type: fund_state
    fund: ops
    expect: { sequence: 3 }
`)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "fund_state")
}

func TestRunPolicyOverrides(t *testing.T) {
	result := runYAML(t, `
name: min_deposit_enforced
description: "the policy minimum join deposit is enforced"
policy:
  minJoinDeposit: 100
setup:
  - credit: bob
    amount: 500
flow:
  - op: initialize
    args: { owner: alice, handle: ops }
  - op: join
    args: { fund: ops, candidate: bob, deposit: 50 }
    expect:
      error: INSUFFICIENT_DEPOSIT
  - op: join
    args: { fund: ops, candidate: bob, deposit: 150 }
assertions:
  - type: balance
    account: "escrow:ops:bob"
    amount: 150
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunBadPolicyOverride(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_policy
description: "an invalid policy override refuses to run"
policy:
  vaultScheme: sock_drawer
flow:
  - op: initialize
    args: { owner: alice, handle: ops }
`))
	require.NoError(t, err)
	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario policy")
}

func TestRunUnknownFundHandle(t *testing.T) {
	result := runYAML(t, `
name: unknown_handle
description: "a step referring to an unregistered handle fails"
flow:
  - op: add_member
    args: { fund: ghost, signer: alice, candidate: bob }
`)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "INTERNAL")
}
