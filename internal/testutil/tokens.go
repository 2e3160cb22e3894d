package testutil

import (
	"fmt"
	"sync"
)

// FixedTokens generates sequential operation tokens from a fixed prefix.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario run with the same FixedTokens produces
// byte-identical audit logs and traces.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FixedTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedTokens creates a generator producing "<prefix>-0001",
// "<prefix>-0002", and so on.
//
// If prefix is empty, "test-op" is used.
func NewFixedTokens(prefix string) *FixedTokens {
	if prefix == "" {
		prefix = "test-op"
	}
	return &FixedTokens{prefix: prefix}
}

// Generate returns the next sequential token.
//
// Implements engine.TokenGenerator.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset rewinds the sequence so a scenario can be re-run with
// identical tokens.
func (g *FixedTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
