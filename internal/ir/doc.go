// Package ir defines the compiled intermediate representation shared by
// the tree-spec compiler, the scenario harness, and the event journal.
//
// Two halves:
//
// Tree specs: TreeSpec/NodeSpec/FieldDecl describe a host tree - node
// hierarchy, per-node protected fields, and the dependency/invalidates
// wiring between them - as produced by the CUE compiler.
//
// Values: a sealed Value union (string, int, bool, array, object; no
// floats, no null) with RFC 8785 canonical JSON serialization. Golden
// traces and journal payloads are canonical JSON, so identical runs
// serialize to identical bytes. Layout geometry is integer device
// pixels precisely so it stays representable here.
package ir
