package testutil

import (
	"fmt"
	"sync"
)

// SequencedPassGenerator hands out numbered pass tokens instead of
// UUIDv7s.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same generator produces
// byte-identical traces across runs.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though scenarios are single-threaded by contract.
type SequencedPassGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequencedPassGenerator creates a generator with the given token
// prefix. An empty prefix defaults to "pass".
func NewSequencedPassGenerator(prefix string) *SequencedPassGenerator {
	if prefix == "" {
		prefix = "pass"
	}
	return &SequencedPassGenerator{prefix: prefix}
}

// Generate returns the next token: "pass-000001", "pass-000002", ...
//
// Implements field.PassTokenGenerator.
func (g *SequencedPassGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset rewinds the sequence for scenario reuse.
func (g *SequencedPassGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// FixedPassGenerator returns the same pass token every time. Useful
// when an entire scenario should trace under one token.
type FixedPassGenerator struct {
	token string
}

// NewFixedPassGenerator creates a fixed generator. If token is empty,
// Generate returns "test-pass-default".
func NewFixedPassGenerator(token string) *FixedPassGenerator {
	if token == "" {
		token = "test-pass-default"
	}
	return &FixedPassGenerator{token: token}
}

// Generate returns the fixed pass token.
//
// Implements field.PassTokenGenerator.
func (g *FixedPassGenerator) Generate() string {
	return g.token
}
