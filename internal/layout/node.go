package layout

import (
	"github.com/roach88/reflow/internal/field"
)

// Node is one box in the layout tree. Its geometry lives in protected
// fields; the Node itself only holds identity and tree linkage.
//
// Style, Offset, and Children are input fields: written by mutation
// entry points, never recomputed. Width, X, Y, and Height are derived:
// written only by RecomputeAll.
type Node struct {
	Name string

	tree   *Tree
	parent *Node

	Style  *field.Field[Style]
	Offset *field.Field[Point]

	Width  *field.Field[int]
	X      *field.Field[int]
	Y      *field.Field[int]
	Height *field.Field[int]

	Children *field.Field[[]*Node]
}

func newNode(t *Tree, parent *Node, name string, style Style) *Node {
	n := &Node{
		Name:   name,
		tree:   t,
		parent: parent,
	}

	reg := t.reg
	n.Style = field.New(reg, name, "style", field.Eq[Style]())
	n.Offset = field.New(reg, name, "offset", field.Eq[Point]())
	n.Width = field.New(reg, name, "width", field.Eq[int]())
	n.X = field.New(reg, name, "x", field.Eq[int]())
	n.Y = field.New(reg, name, "y", field.Eq[int]())
	n.Height = field.New(reg, name, "height", field.Eq[int]())
	// Structure changes always count as changes: slices carry no
	// cheap equality, and over-dirtying is sound.
	n.Children = field.New[[]*Node](reg, name, "children", nil)

	n.Style.SetInvalidates(n.Width.Ref(), n.Height.Ref())
	n.Offset.SetInvalidates(n.X.Ref(), n.Y.Ref())

	widthDeps := []field.Ref{n.Style.Ref(), t.zoom.Ref()}
	xDeps := []field.Ref{n.Offset.Ref()}
	yDeps := []field.Ref{n.Offset.Ref()}
	if parent != nil {
		widthDeps = append(widthDeps, parent.Width.Ref())
		xDeps = append(xDeps, parent.X.Ref())
		yDeps = append(yDeps, parent.Y.Ref())
	}
	n.Width.SetDependencies(widthDeps...)
	n.X.SetDependencies(xDeps...)
	n.Y.SetDependencies(yDeps...)
	n.Height.SetDependencies(n.Style.Ref(), n.Children.Ref())

	// Inputs are seeded clean; derived fields stay dirty until the
	// first recompute pass.
	n.Style.Set(style)
	n.Offset.Set(Point{})
	n.Children.Set(nil)

	return n
}

// Parent returns the node's parent, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Kids returns the current child list. Children is an input field and
// is always clean, so this never panics on a live node.
func (n *Node) Kids() []*Node {
	return n.Children.Get()
}

// SetStyle replaces the node's sizing input. A write with an equal
// value dirties nothing.
func (n *Node) SetStyle(s Style) {
	n.Style.Set(s)
}

// SetOffset replaces the node's offset input.
func (n *Node) SetOffset(p Point) {
	n.Offset.Set(p)
}

// MoveTo sets the horizontal offset, keeping the vertical one.
func (n *Node) MoveTo(x int) {
	n.Offset.Set(Point{X: x, Y: n.Offset.Get().Y})
}

// release destroys every field of the node. Refs held by former
// neighbors go stale and propagation skips them.
func (n *Node) release() {
	n.Style.Release()
	n.Offset.Release()
	n.Width.Release()
	n.X.Release()
	n.Y.Release()
	n.Height.Release()
	n.Children.Release()
}

// rewire recalculates every structure-dependent edge around n after a
// child insert or remove:
//
//   - n.width/x/y fan out to the children's corresponding fields
//   - n.children invalidates n.height and every child's y (stacking
//     order is part of the children value)
//   - n.height depends on style, children, and every child's height
//   - each child's y depends on its offset, n's y, and the heights of
//     the siblings stacked above it
//   - each child's height invalidates n's height and the y of every
//     sibling stacked below it
func (n *Node) rewire(kids []*Node) {
	widthTargets := make([]field.Ref, 0, len(kids))
	xTargets := make([]field.Ref, 0, len(kids))
	yTargets := make([]field.Ref, 0, len(kids))
	childTargets := make([]field.Ref, 0, len(kids)+1)
	heightDeps := []field.Ref{n.Style.Ref(), n.Children.Ref()}

	childTargets = append(childTargets, n.Height.Ref())
	for _, kid := range kids {
		widthTargets = append(widthTargets, kid.Width.Ref())
		xTargets = append(xTargets, kid.X.Ref())
		yTargets = append(yTargets, kid.Y.Ref())
		childTargets = append(childTargets, kid.Y.Ref())
		heightDeps = append(heightDeps, kid.Height.Ref())
	}

	n.Width.SetInvalidates(widthTargets...)
	n.X.SetInvalidates(xTargets...)
	n.Y.SetInvalidates(yTargets...)
	n.Children.SetInvalidates(childTargets...)
	n.Height.SetDependencies(heightDeps...)

	for i, kid := range kids {
		yDeps := []field.Ref{kid.Offset.Ref(), n.Y.Ref()}
		for _, above := range kids[:i] {
			yDeps = append(yDeps, above.Height.Ref())
		}
		kid.Y.SetDependencies(yDeps...)

		heightTargets := []field.Ref{n.Height.Ref()}
		for _, below := range kids[i+1:] {
			heightTargets = append(heightTargets, below.Y.Ref())
		}
		kid.Height.SetInvalidates(heightTargets...)
	}
}
