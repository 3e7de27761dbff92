package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/reflow/internal/ir"
)

// ErrCycle is the error code for cyclic invalidation graphs.
const ErrCycle = "ERR_CYCLE"

// CycleError reports a cycle in the invalidates graph.
//
// Cycles are configuration errors, not warnings: eager propagation over
// a cyclic graph only terminates because already-dirty fields stop the
// walk, and a recompute pass over the cycle has no valid ordering. A
// spec with any cycle (self-loops included) is rejected outright.
type CycleError struct {
	Path []ir.FieldKey `json:"path"` // cycle path, first key repeated at the end
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = string(k)
	}
	return fmt.Sprintf("[%s] cyclic invalidation: %s", ErrCycle, strings.Join(parts, " -> "))
}

// AnalyzeCycles performs static cycle analysis on the invalidates graph.
//
// The algorithm:
//  1. Build the field-level invalidates adjacency list
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, and each self-loop, as an error
//
// A DAG returns an empty list.
func AnalyzeCycles(spec *ir.TreeSpec) []CycleError {
	graph := InvalidationGraph(spec)
	if len(graph) == 0 {
		return nil
	}

	sccs := tarjanSCC(graph)

	var errs []CycleError
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			errs = append(errs, CycleError{Path: cyclePath(scc, graph)})
		}
	}

	return errs
}

// hasSelfLoop checks if a field invalidates itself directly.
func hasSelfLoop(node ir.FieldKey, graph map[ir.FieldKey][]ir.FieldKey) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted key order so the output is deterministic.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph map[ir.FieldKey][]ir.FieldKey) [][]ir.FieldKey {
	var (
		index   = 0
		stack   []ir.FieldKey
		indices = make(map[ir.FieldKey]int)
		lowlink = make(map[ir.FieldKey]int)
		onStack = make(map[ir.FieldKey]bool)
		sccs    [][]ir.FieldKey
	)

	var strongConnect func(ir.FieldKey)
	strongConnect = func(v ir.FieldKey) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []ir.FieldKey
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]ir.FieldKey, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cyclePath reconstructs a concrete cycle through an SCC, repeating the
// first key at the end. For self-loops the path is [key, key].
func cyclePath(scc []ir.FieldKey, graph map[ir.FieldKey][]ir.FieldKey) []ir.FieldKey {
	if len(scc) == 1 {
		return []ir.FieldKey{scc[0], scc[0]}
	}

	sccSet := make(map[ir.FieldKey]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []ir.FieldKey{current}
	visited := make(map[ir.FieldKey]bool)

	for {
		visited[current] = true

		var next ir.FieldKey
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
