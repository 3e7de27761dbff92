package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/ir"
)

// buildPC builds the worked example: parent p with children c1, c2.
func buildPC(t *testing.T, opts ...field.Option) *Tree {
	t.Helper()
	tr := New("p", Style{Width: 100, Height: 0}, opts...)
	_, err := tr.AddChild(tr.Root(), "c1", Style{Width: 80, Height: 30})
	require.NoError(t, err)
	_, err = tr.AddChild(tr.Root(), "c2", Style{Width: 120, Height: 50})
	require.NoError(t, err)
	tr.RecomputeAll("pass-initial")
	return tr
}

func TestInitialRecompute(t *testing.T) {
	tr := buildPC(t)

	assert.Equal(t, 100, tr.Root().Width.Get())
	assert.Equal(t, 80, tr.Node("c1").Width.Get())
	// c2 wants 120 but is clamped to the parent's 100.
	assert.Equal(t, 100, tr.Node("c2").Width.Get())

	// Heights roll up: container height is the sum of child heights.
	assert.Equal(t, 30, tr.Node("c1").Height.Get())
	assert.Equal(t, 50, tr.Node("c2").Height.Get())
	assert.Equal(t, 80, tr.Root().Height.Get())

	// c2 stacks below c1.
	assert.Equal(t, 0, tr.Node("c1").Y.Get())
	assert.Equal(t, 30, tr.Node("c2").Y.Get())
}

func TestRecomputeAllIdempotent(t *testing.T) {
	tr := buildPC(t)
	assert.Zero(t, tr.RecomputeAll("pass-noop"), "settled tree has nothing to recompute")
}

// TestMoveParentRepositionsChildren is the worked example: moving p to
// x=10 repositions both children without touching any height.
func TestMoveParentRepositionsChildren(t *testing.T) {
	tracer := &field.SliceTracer{}
	tr := buildPC(t, field.WithTracer(tracer))

	tr.Root().MoveTo(10)
	tracer.Reset()
	tr.RecomputeAll("pass-move")

	assert.Equal(t, 10, tr.Root().X.Get())
	assert.Equal(t, 10, tr.Node("c1").X.Get())
	assert.Equal(t, 10, tr.Node("c2").X.Get())

	for _, ev := range tracer.Events {
		if ev.Field == "height" {
			t.Errorf("height of %s touched during a pure move: %+v", ev.Owner, ev)
		}
		if ev.Field == "width" {
			t.Errorf("width of %s touched during a pure move: %+v", ev.Owner, ev)
		}
	}
}

func TestZoomScalesWidths(t *testing.T) {
	tr := buildPC(t)

	tr.SetZoom(200)
	assert.True(t, tr.Root().Width.Dirty())
	assert.True(t, tr.Node("c1").Width.Dirty(), "zoom reaches children through the parent width")

	tr.RecomputeAll("pass-zoom")
	assert.Equal(t, 200, tr.Root().Width.Get())
	assert.Equal(t, 160, tr.Node("c1").Width.Get())
	assert.Equal(t, 200, tr.Node("c2").Width.Get())
}

func TestChildStyleChangeRollsUp(t *testing.T) {
	tr := buildPC(t)

	tr.Node("c1").SetStyle(Style{Width: 80, Height: 45})
	assert.True(t, tr.Root().Height.Dirty(), "child height change must dirty the parent roll-up")
	assert.True(t, tr.Node("c2").Y.Dirty(), "the sibling below restacks")
	assert.False(t, tr.Node("c1").Y.Dirty(), "the first child's own y is unaffected")

	tr.RecomputeAll("pass-grow")
	assert.Equal(t, 95, tr.Root().Height.Get())
	assert.Equal(t, 45, tr.Node("c2").Y.Get())
}

// TestUnchangedWriteSuppressesPropagation rewrites a style with an
// equal value: the write lands, nothing downstream dirties.
func TestUnchangedWriteSuppressesPropagation(t *testing.T) {
	tr := buildPC(t)

	tr.Node("c1").SetStyle(Style{Width: 80, Height: 30})
	assert.False(t, tr.Root().Height.Dirty())
	assert.Zero(t, tr.RecomputeAll("pass-same"))
}

func TestInsertChildRestacks(t *testing.T) {
	tr := buildPC(t)

	_, err := tr.AddChild(tr.Root(), "c3", Style{Width: 40, Height: 20})
	require.NoError(t, err)

	assert.True(t, tr.Root().Height.Dirty())
	tr.RecomputeAll("pass-insert")

	assert.Equal(t, 100, tr.Root().Height.Get())
	assert.Equal(t, 80, tr.Node("c3").Y.Get())
}

func TestRemoveChildReleasesFields(t *testing.T) {
	tr := buildPC(t)

	c1 := tr.Node("c1")
	require.NoError(t, tr.RemoveChild(c1))
	assert.Nil(t, tr.Node("c1"))

	// The survivors settle without tripping over stale refs.
	tr.RecomputeAll("pass-remove")
	assert.Equal(t, 50, tr.Root().Height.Get())
	assert.Equal(t, 0, tr.Node("c2").Y.Get())
}

func TestRemoveRootRejected(t *testing.T) {
	tr := buildPC(t)
	require.Error(t, tr.RemoveChild(tr.Root()))
}

func TestDuplicateNameRejected(t *testing.T) {
	tr := buildPC(t)
	_, err := tr.AddChild(tr.Root(), "c1", Style{})
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	tr := buildPC(t)

	st, err := tr.Lookup(ir.Key("c2", "y"))
	require.NoError(t, err)
	assert.False(t, st.Dirty)
	assert.Equal(t, 30, st.Value)

	tr.Node("c1").SetStyle(Style{Width: 80, Height: 45})
	st, err = tr.Lookup(ir.Key("c2", "y"))
	require.NoError(t, err)
	assert.True(t, st.Dirty)
	assert.Nil(t, st.Value)

	st, err = tr.Lookup(ir.Key("p", "children"))
	require.NoError(t, err)
	assert.Equal(t, []any{"c1", "c2"}, st.Value)

	_, err = tr.Lookup(ir.Key("ghost", "width"))
	require.Error(t, err)
	_, err = tr.Lookup(ir.Key("c1", "ghost"))
	require.Error(t, err)
}

func TestFromSpec(t *testing.T) {
	spec := &ir.TreeSpec{
		Name: "viewport",
		Nodes: []ir.NodeSpec{
			// Children declared before their parent to exercise the
			// out-of-order resolution.
			{Name: "c1", Parent: "p"},
			{Name: "p"},
			{Name: "c2", Parent: "p"},
		},
	}
	tr, err := FromSpec(spec, map[string]Style{
		"p":  {Width: 100},
		"c1": {Width: 80, Height: 30},
		"c2": {Width: 120, Height: 50},
	})
	require.NoError(t, err)

	tr.RecomputeAll("pass-spec")
	assert.Equal(t, 80, tr.Root().Height.Get())
	assert.Equal(t, []*Node{tr.Node("c1"), tr.Node("c2")}, tr.Root().Kids())
}

func TestFromSpecNoRoot(t *testing.T) {
	spec := &ir.TreeSpec{
		Name:  "orphans",
		Nodes: []ir.NodeSpec{{Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}},
	}
	_, err := FromSpec(spec, nil)
	require.Error(t, err)
}

func TestClonePreservesState(t *testing.T) {
	tr := buildPC(t)
	tr.Node("c1").SetStyle(Style{Width: 80, Height: 45}) // leaves dirt behind

	shadow := tr.Clone()

	// Clean fields carry their values, dirty fields carry their dirt.
	assert.Equal(t, 100, shadow.Root().Width.Get())
	assert.True(t, shadow.Root().Height.Dirty())
	assert.True(t, shadow.Node("c2").Y.Dirty())

	// The shadow settles independently; the source is untouched.
	shadow.RecomputeAll("pass-shadow")
	assert.Equal(t, 95, shadow.Root().Height.Get())
	assert.True(t, tr.Root().Height.Dirty())
}

func TestPublishLeaf(t *testing.T) {
	tr := buildPC(t)
	shadow := tr.Clone()

	// Producer recomputes a new height for c1, then publishes the leaf
	// into the consumer tree.
	tr.Node("c1").SetStyle(Style{Width: 80, Height: 45})
	tr.RecomputeAll("pass-producer")
	require.Equal(t, 45, tr.Node("c1").Height.Get())

	require.NoError(t, shadow.PublishLeaf(tr, ir.Key("c1", "height")))

	// The transplanted leaf is clean; its consumer-side dependents got
	// re-marked by the publish, not by any cross-context propagation.
	assert.False(t, shadow.Node("c1").Height.Dirty())
	assert.Equal(t, 45, shadow.Node("c1").Height.Get())
	assert.True(t, shadow.Root().Height.Dirty())
	assert.True(t, shadow.Node("c2").Y.Dirty())

	shadow.RecomputeAll("pass-consumer")
	assert.Equal(t, 95, shadow.Root().Height.Get())
	assert.Equal(t, 45, shadow.Node("c2").Y.Get())
}

func TestPublishLeafUnknownNode(t *testing.T) {
	tr := buildPC(t)
	shadow := tr.Clone()
	require.Error(t, shadow.PublishLeaf(tr, ir.Key("ghost", "height")))
	require.Error(t, shadow.PublishLeaf(tr, ir.Key("c1", "children")))
}

// TestStrictReads runs a full recompute under strict read checking:
// every Read in the compute paths must be declared.
func TestStrictReads(t *testing.T) {
	tr := buildPC(t, field.WithStrictReads())
	tr.SetZoom(150)
	tr.Root().MoveTo(5)
	assert.NotPanics(t, func() { tr.RecomputeAll("pass-strict") })
}
