// Package harness provides a conformance testing framework for the
// field engine.
//
// Scenarios are YAML files describing a layout tree, a sequence of
// mutation passes, and assertions over the final field states and the
// recorded trace. The harness drives the real engine: mutations go
// through the layout entry points, recompute passes run the actual
// three-walk driver, and the trace is whatever the registry emitted.
// Nothing in the harness manufactures events.
//
// Each scenario runs in a fresh in-memory journal with a sequenced
// pass-token generator, so the same scenario produces byte-identical
// canonical traces across runs. Golden files under testdata/golden are
// the source of truth for expected traces; regenerate with:
//
//	go test ./internal/harness -update
package harness
