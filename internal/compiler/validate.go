package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/reflow/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Structural errors (E100-E109)
	ErrTreeNameEmpty     = "E100" // tree name is required
	ErrTreeNoNodes       = "E101" // at least one node required
	ErrDuplicateNode     = "E102" // duplicate node name
	ErrDuplicateField    = "E103" // duplicate field name within a node
	ErrUnknownParent     = "E104" // parent references an undeclared node
	ErrNoRoot            = "E105" // no node without a parent
	ErrMultipleRoots     = "E106" // more than one node without a parent
	ErrParentLoop        = "E107" // node hierarchy contains a loop

	// Wiring errors (E110-E119)
	ErrUnknownFieldRef  = "E110" // depends_on/invalidates names an undeclared field
	ErrSelfReference    = "E111" // field depends on or invalidates itself
	ErrUncoveredDep     = "E112" // dependency has no invalidation path back
)

// ValidationError represents a tree-spec validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled tree spec against schema rules.
// Returns all errors found (does not fail-fast).
//
// Beyond structural checks, this enforces closure soundness: if field B
// declares field A in depends_on, a write to A must be able to dirty B,
// so B must be reachable from A through the invalidates graph. An
// invalidation edge that reaches B indirectly (over-approximation) is
// accepted; a dependency with no path at all means B could read a stale
// value of A and is rejected.
func Validate(spec *ir.TreeSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "tree name is required and must be non-empty",
			Code:    ErrTreeNameEmpty,
		})
	}

	if len(spec.Nodes) == 0 {
		errs = append(errs, ValidationError{
			Field:   "node",
			Message: "at least one node is required",
			Code:    ErrTreeNoNodes,
		})
		return errs
	}

	errs = append(errs, validateHierarchy(spec)...)

	declared := declaredFields(spec)
	errs = append(errs, validateWiring(spec, declared)...)
	errs = append(errs, validateClosure(spec, declared)...)

	return errs
}

// validateHierarchy checks node names, parent links, and rootedness.
func validateHierarchy(spec *ir.TreeSpec) []ValidationError {
	var errs []ValidationError

	nodeNames := make(map[string]bool)
	var roots []string
	for i, node := range spec.Nodes {
		if nodeNames[node.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("node[%d].name", i),
				Message: fmt.Sprintf("duplicate node name: %q", node.Name),
				Code:    ErrDuplicateNode,
			})
		}
		nodeNames[node.Name] = true

		if node.Parent == "" {
			roots = append(roots, node.Name)
		}

		fieldNames := make(map[string]bool)
		for j, f := range node.Fields {
			if fieldNames[f.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("node.%s.fields[%d]", node.Name, j),
					Message: fmt.Sprintf("duplicate field name: %q", f.Name),
					Code:    ErrDuplicateField,
				})
			}
			fieldNames[f.Name] = true
		}
	}

	for _, node := range spec.Nodes {
		if node.Parent != "" && !nodeNames[node.Parent] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("node.%s.parent", node.Name),
				Message: fmt.Sprintf("unknown parent node %q", node.Parent),
				Code:    ErrUnknownParent,
			})
		}
	}

	switch {
	case len(roots) == 0:
		errs = append(errs, ValidationError{
			Field:   "node",
			Message: "no root node: every node declares a parent",
			Code:    ErrNoRoot,
		})
	case len(roots) > 1:
		errs = append(errs, ValidationError{
			Field:   "node",
			Message: fmt.Sprintf("multiple root nodes: %s", strings.Join(roots, ", ")),
			Code:    ErrMultipleRoots,
		})
	}

	// Walk parent links from each node; revisiting a node on the same
	// walk means the hierarchy loops instead of reaching a root.
	parent := make(map[string]string, len(spec.Nodes))
	for _, node := range spec.Nodes {
		parent[node.Name] = node.Parent
	}
	for _, node := range spec.Nodes {
		seen := map[string]bool{node.Name: true}
		for cur := parent[node.Name]; cur != ""; cur = parent[cur] {
			if seen[cur] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("node.%s.parent", node.Name),
					Message: fmt.Sprintf("node hierarchy loops through %q", cur),
					Code:    ErrParentLoop,
				})
				break
			}
			seen[cur] = true
		}
	}

	return errs
}

// declaredFields returns the set of every declared "node.field" key.
func declaredFields(spec *ir.TreeSpec) map[ir.FieldKey]bool {
	declared := make(map[ir.FieldKey]bool)
	for _, node := range spec.Nodes {
		for _, f := range node.Fields {
			declared[ir.Key(node.Name, f.Name)] = true
		}
	}
	return declared
}

// validateWiring checks that every depends_on and invalidates entry
// names a declared field and is not the field itself.
func validateWiring(spec *ir.TreeSpec, declared map[ir.FieldKey]bool) []ValidationError {
	var errs []ValidationError

	check := func(self ir.FieldKey, list []ir.FieldKey, clause string) {
		for _, ref := range list {
			if ref == self {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s", self, clause),
					Message: fmt.Sprintf("field %s references itself", self),
					Code:    ErrSelfReference,
				})
				continue
			}
			if !declared[ref] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s", self, clause),
					Message: fmt.Sprintf("unknown field %q", string(ref)),
					Code:    ErrUnknownFieldRef,
				})
			}
		}
	}

	for _, node := range spec.Nodes {
		for _, f := range node.Fields {
			self := ir.Key(node.Name, f.Name)
			check(self, f.DependsOn, "depends_on")
			check(self, f.Invalidates, "invalidates")
		}
	}

	return errs
}

// validateClosure checks that every dependency edge is covered by the
// invalidates graph: for B depends_on A, B must be reachable from A.
func validateClosure(spec *ir.TreeSpec, declared map[ir.FieldKey]bool) []ValidationError {
	var errs []ValidationError

	graph := InvalidationGraph(spec)
	for _, node := range spec.Nodes {
		for _, f := range node.Fields {
			self := ir.Key(node.Name, f.Name)
			for _, dep := range f.DependsOn {
				if dep == self || !declared[dep] {
					continue // reported by validateWiring
				}
				if !reachable(graph, dep, self) {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.depends_on", self),
						Message: fmt.Sprintf("dependency %s has no invalidation path to %s: a write to %s would leave %s stale", dep, self, dep, self),
						Code:    ErrUncoveredDep,
					})
				}
			}
		}
	}

	return errs
}

// InvalidationGraph builds the field-level invalidates adjacency list.
func InvalidationGraph(spec *ir.TreeSpec) map[ir.FieldKey][]ir.FieldKey {
	graph := make(map[ir.FieldKey][]ir.FieldKey)
	for _, node := range spec.Nodes {
		for _, f := range node.Fields {
			key := ir.Key(node.Name, f.Name)
			if graph[key] == nil {
				graph[key] = []ir.FieldKey{}
			}
			graph[key] = append(graph[key], f.Invalidates...)
		}
	}
	return graph
}

// reachable reports whether to can be reached from from over the
// invalidates edges. Iterative DFS.
func reachable(graph map[ir.FieldKey][]ir.FieldKey, from, to ir.FieldKey) bool {
	seen := make(map[ir.FieldKey]bool)
	stack := []ir.FieldKey{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, graph[cur]...)
	}
	return false
}
