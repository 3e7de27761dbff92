package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflow/internal/ir"
)

// validSpec is the worked layout example: parent width fans out to two
// children, every dependency covered by an invalidation edge.
func validSpec() *ir.TreeSpec {
	return &ir.TreeSpec{
		Name: "viewport",
		Nodes: []ir.NodeSpec{
			{
				Name: "p",
				Fields: []ir.FieldDecl{
					{Name: "zoom", Invalidates: []ir.FieldKey{"p.width"}},
					{
						Name:        "width",
						DependsOn:   []ir.FieldKey{"p.zoom"},
						Invalidates: []ir.FieldKey{"c1.width", "c2.width"},
					},
				},
			},
			{
				Name:   "c1",
				Parent: "p",
				Fields: []ir.FieldDecl{
					{Name: "width", DependsOn: []ir.FieldKey{"p.width"}},
				},
			},
			{
				Name:   "c2",
				Parent: "p",
				Fields: []ir.FieldDecl{
					{Name: "width", DependsOn: []ir.FieldKey{"p.width"}},
				},
			},
		},
	}
}

func TestValidateOK(t *testing.T) {
	errs := Validate(validSpec())
	assert.Empty(t, errs)
}

func TestValidateEmptyName(t *testing.T) {
	spec := validSpec()
	spec.Name = "  "
	errs := Validate(spec)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrTreeNameEmpty, errs[0].Code)
}

func TestValidateNoNodes(t *testing.T) {
	errs := Validate(&ir.TreeSpec{Name: "empty"})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrTreeNoNodes, errs[0].Code)
}

func TestValidateDuplicateNode(t *testing.T) {
	spec := validSpec()
	spec.Nodes = append(spec.Nodes, ir.NodeSpec{Name: "p", Parent: "c1"})
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrDuplicateNode), "errors: %v", errs)
}

func TestValidateDuplicateField(t *testing.T) {
	spec := validSpec()
	node := spec.Node("c1")
	node.Fields = append(node.Fields, ir.FieldDecl{Name: "width"})
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrDuplicateField), "errors: %v", errs)
}

func TestValidateUnknownParent(t *testing.T) {
	spec := validSpec()
	spec.Node("c2").Parent = "ghost"
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrUnknownParent), "errors: %v", errs)
}

func TestValidateNoRoot(t *testing.T) {
	spec := validSpec()
	spec.Node("p").Parent = "c1"
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrNoRoot), "errors: %v", errs)
	assert.True(t, hasCode(errs, ErrParentLoop), "errors: %v", errs)
}

func TestValidateMultipleRoots(t *testing.T) {
	spec := validSpec()
	spec.Node("c2").Parent = ""
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrMultipleRoots), "errors: %v", errs)
}

func TestValidateUnknownFieldRef(t *testing.T) {
	spec := validSpec()
	zoom := spec.Node("p").Field("zoom")
	zoom.Invalidates = append(zoom.Invalidates, "p.ghost")
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrUnknownFieldRef), "errors: %v", errs)
}

func TestValidateSelfReference(t *testing.T) {
	spec := validSpec()
	width := spec.Node("p").Field("width")
	width.Invalidates = append(width.Invalidates, "p.width")
	errs := Validate(spec)
	assert.True(t, hasCode(errs, ErrSelfReference), "errors: %v", errs)
}

// TestValidateUncoveredDep is the stale-read case: c1.width depends on
// p.width but nothing ever invalidates c1.width, so a write to p.width
// would leave c1.width clean and stale.
func TestValidateUncoveredDep(t *testing.T) {
	spec := validSpec()
	spec.Node("p").Field("width").Invalidates = []ir.FieldKey{"c2.width"}
	errs := Validate(spec)
	require.True(t, hasCode(errs, ErrUncoveredDep), "errors: %v", errs)

	var found ValidationError
	for _, e := range errs {
		if e.Code == ErrUncoveredDep {
			found = e
			break
		}
	}
	assert.Equal(t, "c1.width.depends_on", found.Field)
	assert.Contains(t, found.Message, "stale")
}

// TestValidateTransitiveCoverage accepts an invalidation path that
// reaches the dependent indirectly. Over-dirtying through a middle
// field is sound; only a missing path is an error.
func TestValidateTransitiveCoverage(t *testing.T) {
	spec := &ir.TreeSpec{
		Name: "chain",
		Nodes: []ir.NodeSpec{
			{
				Name: "n",
				Fields: []ir.FieldDecl{
					{Name: "a", Invalidates: []ir.FieldKey{"n.b"}},
					{Name: "b", DependsOn: []ir.FieldKey{"n.a"}, Invalidates: []ir.FieldKey{"n.c"}},
					// c depends on a directly but is only reached via b.
					{Name: "c", DependsOn: []ir.FieldKey{"n.a", "n.b"}},
				},
			},
		},
	}
	errs := Validate(spec)
	assert.Empty(t, errs)
}

func hasCode(errs []ValidationError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}
