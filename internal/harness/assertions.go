package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/squadmint/treasury/internal/addr"
	"github.com/squadmint/treasury/internal/engine"
	"github.com/squadmint/treasury/internal/store"
)

// AssertionContext carries what assertions need to inspect final state.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Engine *engine.Engine
	Funds  map[string]addr.Address
}

// EvaluateAssertions checks every assertion against final state and
// returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluateAssertion(&a, actx); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluateAssertion(a *Assertion, actx *AssertionContext) string {
	switch a.Type {
	case AssertFundState:
		return assertFundState(a, actx)
	case AssertBalance:
		return assertBalance(a, actx)
	case AssertHistory:
		return assertHistory(a, actx)
	case AssertVerifyOK:
		return assertVerifyOK(a, actx)
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
}

func assertFundState(a *Assertion, actx *AssertionContext) string {
	fund, ok := actx.Funds[a.Fund]
	if !ok {
		return fmt.Sprintf("unknown fund handle %q", a.Fund)
	}
	view, err := actx.Engine.ShowFund(actx.Ctx, fund)
	if err != nil {
		return fmt.Sprintf("load fund: %v", err)
	}
	actual, err := jsonMap(view)
	if err != nil {
		return fmt.Sprintf("encode fund: %v", err)
	}
	if msgs := subsetMatch("", a.Expect, actual); len(msgs) > 0 {
		return joinMessages(msgs)
	}
	return ""
}

func assertBalance(a *Assertion, actx *AssertionContext) string {
	h := &Harness{engine: actx.Engine, funds: actx.Funds}
	account, err := h.resolveAccount(a.Account)
	if err != nil {
		return err.Error()
	}
	got, err := actx.Store.Balance(actx.Ctx, account)
	if err != nil {
		return fmt.Sprintf("read balance: %v", err)
	}
	if got != a.Amount {
		return fmt.Sprintf("account %s: expected balance %d, got %d", a.Account, a.Amount, got)
	}
	return ""
}

func assertHistory(a *Assertion, actx *AssertionContext) string {
	fund, ok := actx.Funds[a.Fund]
	if !ok {
		return fmt.Sprintf("unknown fund handle %q", a.Fund)
	}
	recs, err := actx.Store.Decisions(actx.Ctx, fund)
	if err != nil {
		return fmt.Sprintf("read decisions: %v", err)
	}
	if len(recs) != a.Count {
		return fmt.Sprintf("expected %d decisions, got %d", a.Count, len(recs))
	}
	if a.Approved != nil {
		if len(a.Approved) != len(recs) {
			return fmt.Sprintf("approved list has %d entries for %d decisions", len(a.Approved), len(recs))
		}
		for i, rec := range recs {
			if rec.Approved != a.Approved[i] {
				return fmt.Sprintf("decision %d: expected approved=%t, got %t", rec.Sequence, a.Approved[i], rec.Approved)
			}
		}
	}
	return ""
}

func assertVerifyOK(a *Assertion, actx *AssertionContext) string {
	fund, ok := actx.Funds[a.Fund]
	if !ok {
		return fmt.Sprintf("unknown fund handle %q", a.Fund)
	}
	report, err := actx.Store.VerifyHistory(actx.Ctx, fund)
	if err != nil {
		return fmt.Sprintf("verify: %v", err)
	}
	if !report.OK() {
		return fmt.Sprintf("history verification found %d violations: %v", len(report.Findings), report.Findings)
	}
	return ""
}

// subsetMatch checks that every expected field matches the actual map,
// recursing into nested objects. Values compare after a JSON round-trip
// so YAML ints and JSON numbers land in the same domain.
func subsetMatch(prefix string, expect map[string]interface{}, actual map[string]interface{}) []string {
	var msgs []string

	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := expect[key]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		got, ok := actual[key]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("field %s: missing (expected %v)", path, want))
			continue
		}
		if wantObj, isObj := want.(map[string]interface{}); isObj {
			gotObj, gotIsObj := got.(map[string]interface{})
			if !gotIsObj {
				msgs = append(msgs, fmt.Sprintf("field %s: expected object, got %v", path, got))
				continue
			}
			msgs = append(msgs, subsetMatch(path, wantObj, gotObj)...)
			continue
		}
		if !jsonEqual(want, got) {
			msgs = append(msgs, fmt.Sprintf("field %s: expected %v, got %v", path, want, got))
		}
	}
	return msgs
}

func jsonEqual(want, got interface{}) bool {
	nw, err := normalize(want)
	if err != nil {
		return false
	}
	ng, err := normalize(got)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(nw, ng)
}

func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func joinMessages(msgs []string) string {
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}
	return out
}
