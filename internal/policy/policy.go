// Package policy loads and validates the deployment policy.
//
// The governance state machine admits a small number of deployment
// variants: which seed rule derives the vault address, whether new funds
// are gated by default, and the minimum join deposit. A deployment picks
// these once, in a CUE file validated against the embedded schema.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
package policy

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/squadmint/treasury/internal/addr"
)

//go:embed schema.cue
var schemaCUE string

// Policy holds the deployment-variant configuration.
type Policy struct {
	// VaultScheme is the seed rule that derives a fund's vault address.
	VaultScheme addr.VaultScheme `json:"vaultScheme"`
	// GatedByDefault is the membership mode used when initialize is run
	// without an explicit gating flag.
	GatedByDefault bool `json:"gatedByDefault"`
	// MinJoinDeposit is the smallest escrow a join request must carry.
	MinJoinDeposit uint64 `json:"minJoinDeposit"`
}

// Default returns the policy with every field at its schema default.
func Default() Policy {
	p, err := decode(schemaValue(cuecontext.New()))
	if err != nil {
		// The embedded schema's defaults always decode.
		panic(fmt.Sprintf("policy: default schema invalid: %v", err))
	}
	return p
}

// Load reads a CUE policy file, unifies it with the embedded schema,
// and decodes the result. Fields the file omits take their schema
// defaults; fields outside the schema, or values violating it, fail
// validation.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("load policy: %w", err)
	}
	return Parse(data, path)
}

// Parse validates and decodes policy CUE source. filename is used in
// error positions only.
func Parse(data []byte, filename string) (Policy, error) {
	ctx := cuecontext.New()

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	unified := schemaValue(ctx).Unify(v)
	if err := unified.Err(); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	return decode(unified)
}

func schemaValue(ctx *cue.Context) cue.Value {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	return schema.LookupPath(cue.ParsePath("#Policy"))
}

func decode(v cue.Value) (Policy, error) {
	var p Policy
	if err := v.Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if !p.VaultScheme.Valid() {
		return Policy{}, fmt.Errorf("decode policy: unknown vault scheme %q", p.VaultScheme)
	}
	return p, nil
}
