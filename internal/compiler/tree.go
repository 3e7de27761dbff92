package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reflow/internal/ir"
)

// CompileTree parses a CUE value into a TreeSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the tree struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`tree: viewport: { ... }`)
//	spec, err := CompileTree(v.LookupPath(cue.ParsePath("tree.viewport")))
func CompileTree(v cue.Value) (*ir.TreeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.TreeSpec{}

	// Tree name comes from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	nodeVal := v.LookupPath(cue.ParsePath("node"))
	if !nodeVal.Exists() {
		return nil, &CompileError{
			Field:   "node",
			Message: "at least one node is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := nodeVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		node, err := parseNode(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Nodes = append(spec.Nodes, node)
	}

	if len(spec.Nodes) == 0 {
		return nil, &CompileError{
			Field:   "node",
			Message: "at least one node is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseNode parses one node struct: optional parent plus field wiring.
func parseNode(name string, v cue.Value) (ir.NodeSpec, error) {
	node := ir.NodeSpec{Name: name}

	parentVal := v.LookupPath(cue.ParsePath("parent"))
	if parentVal.Exists() {
		parent, err := parentVal.String()
		if err != nil {
			return node, formatCUEError(err)
		}
		node.Parent = parent
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return node, nil
	}

	fieldIter, err := fieldsVal.Fields()
	if err != nil {
		return node, formatCUEError(err)
	}

	for fieldIter.Next() {
		decl, err := parseFieldDecl(name, fieldIter.Label(), fieldIter.Value())
		if err != nil {
			return node, err
		}
		node.Fields = append(node.Fields, decl)
	}

	return node, nil
}

// parseFieldDecl parses one field declaration: its dependency list and
// its invalidation list, both "node.field" key strings.
func parseFieldDecl(nodeName, fieldName string, v cue.Value) (ir.FieldDecl, error) {
	decl := ir.FieldDecl{Name: fieldName}

	deps, err := parseKeyList(v.LookupPath(cue.ParsePath("depends_on")),
		fmt.Sprintf("node.%s.fields.%s.depends_on", nodeName, fieldName))
	if err != nil {
		return decl, err
	}
	decl.DependsOn = deps

	inv, err := parseKeyList(v.LookupPath(cue.ParsePath("invalidates")),
		fmt.Sprintf("node.%s.fields.%s.invalidates", nodeName, fieldName))
	if err != nil {
		return decl, err
	}
	decl.Invalidates = inv

	return decl, nil
}

// parseKeyList parses a CUE list of "node.field" strings.
func parseKeyList(v cue.Value, fieldPath string) ([]ir.FieldKey, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var keys []ir.FieldKey
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		key := ir.FieldKey(s)
		if _, _, err := key.Split(); err != nil {
			return nil, &CompileError{
				Field:   fieldPath,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		keys = append(keys, key)
	}

	return keys, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
