package harness

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/engine"
	"github.com/squadmint/treasury/internal/policy"
	"github.com/squadmint/treasury/internal/store"
	"github.com/squadmint/treasury/internal/testutil"
)

// Harness executes one scenario against a real engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger

	// funds maps the handle used at an initialize step to the derived
	// fund address, so later steps and assertions can refer to funds
	// symbolically.
	funds map[string]addr.Address
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database with a fixed
// sequential token generator, so repeated runs produce identical traces.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	pol, err := scenarioPolicy(scenario)
	if err != nil {
		return nil, err
	}

	tokens := testutil.NewFixedTokens(scenario.TokenPrefix)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		store:  st,
		engine: engine.New(st, pol, tokens, logger),
		logger: logger,
		funds:  map[string]addr.Address{},
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	h.executeFlow(ctx, scenario.Flow, result)

	actx := &AssertionContext{
		Ctx:    ctx,
		Store:  st,
		Engine: h.engine,
		Funds:  h.funds,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError("%s", msg)
	}
	return result, nil
}

// scenarioPolicy builds the deployment policy from the scenario's
// overrides. The overrides go through the schema so unknown fields and
// bad values fail the same way a real policy file would.
func scenarioPolicy(s *Scenario) (policy.Policy, error) {
	if len(s.Policy) == 0 {
		return policy.Default(), nil
	}
	data, err := json.Marshal(s.Policy)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("encode policy overrides: %w", err)
	}
	pol, err := policy.Parse(data, s.Name+".policy")
	if err != nil {
		return policy.Policy{}, fmt.Errorf("scenario policy: %w", err)
	}
	return pol, nil
}

func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep) error {
	for i, step := range setup {
		account, err := h.resolveAccount(step.Credit)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		err = h.store.WithTx(ctx, func(tx *sql.Tx) error {
			return h.store.Credit(ctx, tx, account, step.Amount)
		})
		if err != nil {
			return fmt.Errorf("step %d: credit %s: %w", i, account, err)
		}
	}
	return nil
}

// executeFlow runs every flow step against the engine. A failed step
// does not stop the flow: errors leave state untouched, and later steps
// may depend on that.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		view, err := h.executeStep(ctx, step)

		event := TraceEvent{Step: i, Op: step.Op, Args: step.Args}
		if err != nil {
			event.Code = engine.CodeOf(err)
		} else {
			event.Result = view
		}
		result.Trace = append(result.Trace, event)

		h.checkExpect(i, step, view, err, result)
	}
}

func (h *Harness) checkExpect(i int, step FlowStep, view interface{}, err error, result *Result) {
	code := engine.CodeOf(err)
	switch {
	case step.Expect == nil || step.Expect.Error == "":
		if err != nil {
			result.AddError("flow[%d] %s: unexpected error %s: %v", i, step.Op, code, err)
			return
		}
	default:
		if code != step.Expect.Error {
			result.AddError("flow[%d] %s: expected error %s, got %s", i, step.Op, step.Expect.Error, code)
		}
		return
	}

	if step.Expect != nil && len(step.Expect.Fields) > 0 {
		actual, convErr := jsonMap(view)
		if convErr != nil {
			result.AddError("flow[%d] %s: encode result: %v", i, step.Op, convErr)
			return
		}
		for _, msg := range subsetMatch("", step.Expect.Fields, actual) {
			result.AddError("flow[%d] %s: %s", i, step.Op, msg)
		}
	}
}

func (h *Harness) executeStep(ctx context.Context, step FlowStep) (interface{}, error) {
	a := stepArgs(step.Args)
	switch step.Op {
	case "initialize":
		p := engine.InitializeParams{
			Owner:          a.str("owner"),
			Handle:         a.str("handle"),
			Gated:          a.optBool("gated"),
			InitialDeposit: a.uint("deposit"),
		}
		v, err := h.engine.Initialize(ctx, p)
		if err != nil {
			return nil, err
		}
		h.funds[p.Handle] = addr.Fund(p.Handle, p.Owner)
		return v, nil

	case "add_member":
		fund, err := h.fund(a.str("fund"))
		if err != nil {
			return nil, err
		}
		return h.engine.AddMember(ctx, engine.MemberParams{
			Fund: fund, Signer: a.str("signer"), Candidate: a.str("candidate"),
		})

	case "reject_member":
		fund, err := h.fund(a.str("fund"))
		if err != nil {
			return nil, err
		}
		return h.engine.RejectMember(ctx, engine.MemberParams{
			Fund: fund, Signer: a.str("signer"), Candidate: a.str("candidate"),
		})

	case "join":
		fund, err := h.fund(a.str("fund"))
		if err != nil {
			return nil, err
		}
		return h.engine.InitiateJoinRequest(ctx, engine.JoinParams{
			Fund: fund, Candidate: a.str("candidate"), Amount: a.uint("deposit"),
		})

	case "propose":
		fund, err := h.fund(a.str("fund"))
		if err != nil {
			return nil, err
		}
		return h.engine.CreateProposal(ctx, engine.ProposeParams{
			Fund: fund, Signer: a.str("signer"), Amount: a.uint("amount"), Target: a.str("target"),
		})

	case "vote":
		fund, err := h.fund(a.str("fund"))
		if err != nil {
			return nil, err
		}
		p := engine.VoteParams{Fund: fund, Signer: a.str("signer"), Approve: a.boolean("approve")}
		// proposal_sequence resolves the proposal address clients would
		// pass, letting scenarios exercise stale and substituted votes.
		if seq := a.optUint("proposal_sequence"); seq != nil {
			p.Proposal = addr.Proposal(fund, *seq)
		}
		return h.engine.SubmitAndExecute(ctx, p)

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) fund(handle string) (addr.Address, error) {
	fund, ok := h.funds[handle]
	if !ok {
		return addr.Address{}, fmt.Errorf("unknown fund handle %q", handle)
	}
	return fund, nil
}

// resolveAccount maps a symbolic account reference to a ledger account.
// "vault:<handle>" and "escrow:<handle>:<candidate>" resolve through the
// fund registry; anything else is a plain identity.
func (h *Harness) resolveAccount(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "vault:"):
		fund, err := h.fund(strings.TrimPrefix(ref, "vault:"))
		if err != nil {
			return "", err
		}
		return addr.Vault(h.engine.Policy().VaultScheme, fund).String(), nil
	case strings.HasPrefix(ref, "escrow:"):
		parts := strings.SplitN(strings.TrimPrefix(ref, "escrow:"), ":", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("escrow reference %q needs <handle>:<candidate>", ref)
		}
		fund, err := h.fund(parts[0])
		if err != nil {
			return "", err
		}
		return addr.Join(fund, parts[1]).String(), nil
	default:
		return ref, nil
	}
}

// stepArgs wraps YAML-decoded args with typed accessors.
type stepArgs map[string]interface{}

func (a stepArgs) str(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a stepArgs) uint(key string) uint64 {
	if v := a.optUint(key); v != nil {
		return *v
	}
	return 0
}

func (a stepArgs) optUint(key string) *uint64 {
	switch v := a[key].(type) {
	case int:
		if v < 0 {
			return nil
		}
		u := uint64(v)
		return &u
	case uint64:
		return &v
	default:
		return nil
	}
}

func (a stepArgs) boolean(key string) bool {
	b, _ := a[key].(bool)
	return b
}

func (a stepArgs) optBool(key string) *bool {
	if b, ok := a[key].(bool); ok {
		return &b
	}
	return nil
}

// jsonMap round-trips a view through JSON so expect clauses compare in
// one value domain.
func jsonMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
