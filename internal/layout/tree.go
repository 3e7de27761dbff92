package layout

import (
	"fmt"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/ir"
)

// DefaultZoom is the identity zoom factor, in percent.
const DefaultZoom = 100

// Tree owns one layout tree and the Registry all its fields live in.
// Single logical goroutine; cross-tree traffic goes through Clone and
// PublishLeaf only.
type Tree struct {
	reg   *field.Registry
	root  *Node
	nodes map[string]*Node

	// zoom is a viewport-level input scaling every width, in percent.
	zoom *field.Field[int]
}

// New creates a tree with a single root node.
func New(rootName string, rootStyle Style, opts ...field.Option) *Tree {
	t := &Tree{
		reg:   field.NewRegistry(opts...),
		nodes: make(map[string]*Node),
	}
	t.zoom = field.New(t.reg, rootName, "zoom", field.Eq[int]())
	t.zoom.Set(DefaultZoom)

	t.root = newNode(t, nil, rootName, rootStyle)
	t.nodes[rootName] = t.root
	t.zoom.SetInvalidates(t.root.Width.Ref())
	return t
}

// FromSpec builds a tree from a compiled tree spec's node hierarchy.
// Styles supplies per-node sizing; nodes absent from the map get the
// zero style. The spec is expected to have passed compiler.Validate.
func FromSpec(spec *ir.TreeSpec, styles map[string]Style, opts ...field.Option) (*Tree, error) {
	var t *Tree
	pending := make([]ir.NodeSpec, 0, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		if ns.Parent == "" {
			if t != nil {
				return nil, fmt.Errorf("layout: multiple root nodes in spec %q", spec.Name)
			}
			t = New(ns.Name, styles[ns.Name], opts...)
			continue
		}
		pending = append(pending, ns)
	}
	if t == nil {
		return nil, fmt.Errorf("layout: spec %q has no root node", spec.Name)
	}

	// Parents may be declared after their children; retry until the
	// pending list stops shrinking.
	for len(pending) > 0 {
		next := pending[:0]
		for _, ns := range pending {
			parent, ok := t.nodes[ns.Parent]
			if !ok {
				next = append(next, ns)
				continue
			}
			if _, err := t.AddChild(parent, ns.Name, styles[ns.Name]); err != nil {
				return nil, err
			}
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("layout: unresolvable parent %q in spec %q", pending[0].Parent, spec.Name)
		}
		pending = next
	}

	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Node returns the named node, or nil.
func (t *Tree) Node(name string) *Node {
	return t.nodes[name]
}

// Registry exposes the tree's registry for diagnostics and tracing.
func (t *Tree) Registry() *field.Registry {
	return t.reg
}

// SetZoom replaces the viewport zoom factor, in percent.
func (t *Tree) SetZoom(percent int) {
	t.zoom.Set(percent)
}

// AddChild appends a child under parent. The new node's derived fields
// are born dirty; parent edges are rewired and the structural change
// propagates through the parent's children field.
func (t *Tree) AddChild(parent *Node, name string, style Style) (*Node, error) {
	if _, exists := t.nodes[name]; exists {
		return nil, fmt.Errorf("layout: duplicate node name %q", name)
	}

	n := newNode(t, parent, name, style)
	t.nodes[name] = n

	kids := append(parent.Kids(), n)
	parent.rewire(kids)
	parent.Children.Set(kids)
	return n, nil
}

// RemoveChild detaches n from its parent and destroys its subtree's
// fields. Refs to the removed fields held anywhere go stale.
func (t *Tree) RemoveChild(n *Node) error {
	if n.parent == nil {
		return fmt.Errorf("layout: cannot remove root node %q", n.Name)
	}

	old := n.parent.Kids()
	kids := make([]*Node, 0, len(old)-1)
	for _, kid := range old {
		if kid != n {
			kids = append(kids, kid)
		}
	}
	if len(kids) == len(old) {
		return fmt.Errorf("layout: node %q is not a child of %q", n.Name, n.parent.Name)
	}

	n.parent.rewire(kids)
	n.parent.Children.Set(kids)

	t.releaseSubtree(n)
	return nil
}

func (t *Tree) releaseSubtree(n *Node) {
	for _, kid := range n.Kids() {
		t.releaseSubtree(kid)
	}
	n.release()
	delete(t.nodes, n.Name)
}

// FieldState is a harness-facing snapshot of one field.
type FieldState struct {
	Value any
	Dirty bool
}

// Lookup resolves a "node.field" key to its current state. A dirty
// field reports Dirty true with a nil Value; reading the cached value
// of a dirty field is exactly the bug this engine exists to prevent.
func (t *Tree) Lookup(key ir.FieldKey) (FieldState, error) {
	nodeName, fieldName, err := key.Split()
	if err != nil {
		return FieldState{}, err
	}
	n := t.nodes[nodeName]
	if n == nil {
		return FieldState{}, fmt.Errorf("layout: unknown node %q", nodeName)
	}

	switch fieldName {
	case "zoom":
		if n != t.root {
			return FieldState{}, fmt.Errorf("layout: zoom lives on the root, not %q", nodeName)
		}
		return intState(t.zoom), nil
	case "width":
		return intState(n.Width), nil
	case "x":
		return intState(n.X), nil
	case "y":
		return intState(n.Y), nil
	case "height":
		return intState(n.Height), nil
	case "style":
		if n.Style.Dirty() {
			return FieldState{Dirty: true}, nil
		}
		s := n.Style.Get()
		return FieldState{Value: map[string]any{"width": s.Width, "height": s.Height}}, nil
	case "children":
		if n.Children.Dirty() {
			return FieldState{Dirty: true}, nil
		}
		kids := n.Children.Get()
		names := make([]any, len(kids))
		for i, kid := range kids {
			names[i] = kid.Name
		}
		return FieldState{Value: names}, nil
	default:
		return FieldState{}, fmt.Errorf("layout: unknown field %q on node %q", fieldName, nodeName)
	}
}

func intState(f *field.Field[int]) FieldState {
	if f.Dirty() {
		return FieldState{Dirty: true}
	}
	return FieldState{Value: f.Get()}
}
