package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflow/internal/ir"
)

func TestAnalyzeCyclesEmpty(t *testing.T) {
	errs := AnalyzeCycles(&ir.TreeSpec{Name: "empty"})
	assert.Empty(t, errs)
}

func TestAnalyzeCyclesDAG(t *testing.T) {
	errs := AnalyzeCycles(validSpec())
	assert.Empty(t, errs, "acyclic fan-out must pass")
}

func TestAnalyzeCyclesSelfLoop(t *testing.T) {
	spec := &ir.TreeSpec{
		Name: "loop",
		Nodes: []ir.NodeSpec{
			{
				Name: "n",
				Fields: []ir.FieldDecl{
					{Name: "a", Invalidates: []ir.FieldKey{"n.a"}},
				},
			},
		},
	}

	errs := AnalyzeCycles(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, []ir.FieldKey{"n.a", "n.a"}, errs[0].Path)
	assert.Contains(t, errs[0].Error(), ErrCycle)
}

func TestAnalyzeCyclesTwoFieldCycle(t *testing.T) {
	spec := &ir.TreeSpec{
		Name: "pingpong",
		Nodes: []ir.NodeSpec{
			{
				Name: "n",
				Fields: []ir.FieldDecl{
					{Name: "a", Invalidates: []ir.FieldKey{"n.b"}},
					{Name: "b", Invalidates: []ir.FieldKey{"n.a"}},
				},
			},
		},
	}

	errs := AnalyzeCycles(spec)
	require.Len(t, errs, 1)

	path := errs[0].Path
	require.GreaterOrEqual(t, len(path), 3)
	assert.Equal(t, path[0], path[len(path)-1], "path must close the cycle")
}

// TestAnalyzeCyclesDiamond verifies that fan-in (two invalidation paths
// converging on one field) is not mistaken for a cycle.
func TestAnalyzeCyclesDiamond(t *testing.T) {
	spec := &ir.TreeSpec{
		Name: "diamond",
		Nodes: []ir.NodeSpec{
			{
				Name: "n",
				Fields: []ir.FieldDecl{
					{Name: "a", Invalidates: []ir.FieldKey{"n.b", "n.c"}},
					{Name: "b", Invalidates: []ir.FieldKey{"n.d"}},
					{Name: "c", Invalidates: []ir.FieldKey{"n.d"}},
					{Name: "d"},
				},
			},
		},
	}

	errs := AnalyzeCycles(spec)
	assert.Empty(t, errs)
}

func TestAnalyzeCyclesCrossNode(t *testing.T) {
	spec := &ir.TreeSpec{
		Name: "crossnode",
		Nodes: []ir.NodeSpec{
			{
				Name: "p",
				Fields: []ir.FieldDecl{
					{Name: "height", Invalidates: []ir.FieldKey{"c.y"}},
				},
			},
			{
				Name:   "c",
				Parent: "p",
				Fields: []ir.FieldDecl{
					// child height feeding back into parent height is
					// the classic bottom-up/top-down conflict
					{Name: "y", Invalidates: []ir.FieldKey{"p.height"}},
				},
			},
		},
	}

	errs := AnalyzeCycles(spec)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "p.height")
	assert.Contains(t, errs[0].Error(), "c.y")
}
