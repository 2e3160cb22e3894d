package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy contains deployment policy overrides. Unset fields take
	// the schema defaults.
	Policy map[string]interface{} `yaml:"policy,omitempty"`

	// Setup credits identity accounts before the flow runs.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow contains the operations to execute, in order. Each step can
	// specify an expected error code or expected result fields.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate final fund state, balances, and history.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// TokenPrefix is the fixed operation token prefix. If empty,
	// "test-op" is used.
	TokenPrefix string `yaml:"token_prefix,omitempty"`
}

// SetupStep credits an identity's ledger account.
type SetupStep struct {
	// Credit is the account to credit. Supports the same references as
	// assertions ("vault:<handle>", "escrow:<handle>:<candidate>").
	Credit string `yaml:"credit"`

	// Amount is the credit amount.
	Amount uint64 `yaml:"amount"`
}

// FlowStep is one engine operation.
type FlowStep struct {
	// Op names the operation: initialize, add_member, reject_member,
	// join, propose, vote.
	Op string `yaml:"op"`

	// Args contains the operation arguments. Fund-taking operations
	// accept "fund: <handle>" resolved through the harness registry.
	Args map[string]interface{} `yaml:"args"`

	// Expect specifies the expected outcome. If nil, the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected step outcome.
type ExpectClause struct {
	// Error is the expected error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Fields contains expected result field values. Subset match
	// against the operation's JSON result; only specified fields are
	// validated. Ignored when Error is set.
	Fields map[string]interface{} `yaml:"fields,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "fund_state": load the fund and subset-match its fields
	// - "balance": check an account's ledger balance
	// - "history": check the decision log length and outcomes
	// - "verify_ok": replay the audit log and require no findings
	Type string `yaml:"type"`

	// Fund is the fund handle (fund_state, history, verify_ok).
	Fund string `yaml:"fund,omitempty"`

	// Expect contains expected field values (fund_state). Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Account is the ledger account reference (balance).
	Account string `yaml:"account,omitempty"`

	// Amount is the expected balance (balance).
	Amount uint64 `yaml:"amount"`

	// Count is the expected number of decisions (history).
	Count int `yaml:"count"`

	// Approved lists the expected per-decision outcomes in sequence
	// order (history, optional).
	Approved []bool `yaml:"approved,omitempty"`
}

// Assertion type constants.
const (
	AssertFundState = "fund_state"
	AssertBalance   = "balance"
	AssertHistory   = "history"
	AssertVerifyOK  = "verify_ok"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error
// if the file doesn't exist, is malformed, contains unknown fields
// (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var knownOps = map[string]bool{
	"initialize":    true,
	"add_member":    true,
	"reject_member": true,
	"join":          true,
	"propose":       true,
	"vote":          true,
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Credit == "" {
			return fmt.Errorf("setup[%d]: credit is required", i)
		}
		if step.Amount == 0 {
			return fmt.Errorf("setup[%d]: amount must be positive", i)
		}
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required", i)
		}
		if step.Expect != nil && step.Expect.Error == "" && len(step.Expect.Fields) == 0 {
			return fmt.Errorf("flow[%d].expect: error or fields is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertFundState:
		if a.Fund == "" {
			return fmt.Errorf("assertions[%d]: fund is required for fund_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for fund_state", index)
		}
	case AssertBalance:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for balance", index)
		}
	case AssertHistory:
		if a.Fund == "" {
			return fmt.Errorf("assertions[%d]: fund is required for history", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history", index)
		}
	case AssertVerifyOK:
		if a.Fund == "" {
			return fmt.Errorf("assertions[%d]: fund is required for verify_ok", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
